/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion_test

import (
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/mirmarbles/pkg/assertion"
	"github.com/hyperledger-labs/mirmarbles/pkg/marblizer"
	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

func mismatchOf(err error) *assertion.Mismatch {
	mismatch, ok := err.(*assertion.Mismatch)
	Expect(ok).To(BeTrue(), "expected a *Mismatch, got %v", err)
	return mismatch
}

var _ = Describe("AssertDeepEqual", func() {
	var (
		ab = types.Notifications(
			types.Next(10, "a"),
			types.Next(30, "b"),
			types.Complete(40),
		)
		interval = types.Interval{Subscribed: 30, Unsubscribed: 60}
	)

	It("accepts anything when nothing was expected", func() {
		Expect(assertion.AssertDeepEqual(ab, types.ResultSet{})).To(Succeed())
		Expect(assertion.AssertDeepEqual(types.Subscriptions(interval), types.ResultSet{})).To(Succeed())
	})

	It("accepts two empty sets of any kind", func() {
		Expect(assertion.AssertDeepEqual(types.Notifications(), types.Notifications())).To(Succeed())
		Expect(assertion.AssertDeepEqual(types.Subscriptions(), types.Notifications())).To(Succeed())
		Expect(assertion.AssertDeepEqual(types.Notifications(), types.Subscriptions())).To(Succeed())
	})

	It("reports subscriptions where none were expected", func() {
		err := assertion.AssertDeepEqual(types.Subscriptions(interval), types.Subscriptions())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(MatchRegexp("no subscription points"))
		Expect(mismatchOf(err).Matcher).To(Equal(assertion.NoSubscriptionsMatcher))
		Expect(err.Error()).To(ContainSubstring(`"---^--!"`))
	})

	It("reports missing subscriptions when the roles are reversed", func() {
		err := assertion.AssertDeepEqual(types.Subscriptions(), types.Subscriptions(interval))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Expected observable to have the following subscription points"))
	})

	It("reports notifications where none were expected", func() {
		err := assertion.AssertDeepEqual(ab, types.Notifications())
		Expect(err).To(HaveOccurred())
		Expect(mismatchOf(err).Expected).To(Equal(`""`))
		Expect(mismatchOf(err).Actual).To(Equal(`"-a-b|"`))
	})

	It("refuses to compare notifications with subscriptions", func() {
		err := assertion.AssertDeepEqual(ab, types.Subscriptions(interval))
		Expect(err).To(MatchError("cannot compare notifications with subscription points"))
		Expect(mismatchOf(err).Matcher).To(Equal(assertion.SubscriptionsMatcher))
		Expect(mismatchOf(err).Expected).To(Equal(`["---^--!"]`))
		Expect(mismatchOf(err).Actual).To(Equal(`"-a-b|"`))
	})

	It("labels a kind mismatch after the expected side", func() {
		err := assertion.AssertDeepEqual(types.Subscriptions(interval), ab)
		Expect(err).To(MatchError("cannot compare subscription points with notifications"))
		Expect(mismatchOf(err).Matcher).To(Equal(assertion.NotificationsMatcher))
		Expect(mismatchOf(err).Expected).To(Equal(`"-a-b|"`))
		Expect(mismatchOf(err).Actual).To(Equal(`["---^--!"]`))
	})

	It("passes equal diagrams", func() {
		Expect(assertion.AssertDeepEqual(ab, types.Notifications(
			types.Next(10, "a"),
			types.Next(30, "b"),
			types.Complete(40),
		))).To(Succeed())
	})
})

var _ = Describe("CompareNotifications", func() {
	It("diffs the diagrams when both sides can be drawn", func() {
		err := assertion.CompareNotifications(
			[]types.Notification{types.Next(10, "a"), types.Complete(20)},
			[]types.Notification{types.Next(10, "b"), types.Complete(20)},
		)
		Expect(err).To(HaveOccurred())

		mismatch := mismatchOf(err)
		Expect(mismatch.Matcher).To(Equal(assertion.NotificationsMatcher))
		Expect(mismatch.Expected).To(Equal(`"-b|"`))
		Expect(mismatch.Actual).To(Equal(`"-a|"`))
		Expect(mismatch.Diff).To(ContainSubstring(`-"-b|"`))
		Expect(mismatch.Diff).To(ContainSubstring(`+"-a|"`))
		Expect(err.Error()).To(ContainSubstring("Expected notifications to be:\n  \"-b|\"\nBut got:\n  \"-a|\"\n\nDifference:"))
	})

	It("compares raw notifications when a side cannot be drawn", func() {
		actual := []types.Notification{types.Next(10, 42)}
		Expect(marblizer.Decide(actual, actual)).To(Equal(marblizer.Structural))

		Expect(assertion.CompareNotifications(actual, []types.Notification{types.Next(10, 42)})).To(Succeed())

		err := assertion.CompareNotifications(actual, []types.Notification{types.Next(10, 43)})
		Expect(err).To(HaveOccurred())
		Expect(mismatchOf(err).Expected).To(ContainSubstring("frame=10 N 43"))
		Expect(mismatchOf(err).Actual).To(ContainSubstring("frame=10 N 42"))
	})

	It("never compacts one side only", func() {
		err := assertion.CompareNotifications(
			[]types.Notification{types.Next(10, "a")},
			[]types.Notification{types.Next(10, "abc")},
		)
		Expect(err).To(HaveOccurred())
		Expect(mismatchOf(err).Expected).To(ContainSubstring("abc"))
		Expect(mismatchOf(err).Expected).To(ContainSubstring("[]types.Notification"))
	})

	It("compares custom errors structurally", func() {
		boom := errors.New("boom")
		Expect(assertion.CompareNotifications(
			[]types.Notification{types.Error(20, boom)},
			[]types.Notification{types.Error(20, boom)},
		)).To(Succeed())

		Expect(assertion.CompareNotifications(
			[]types.Notification{types.Error(20, boom)},
			[]types.Notification{types.Error(20, notation.DefaultError)},
		)).NotTo(Succeed())
	})

	It("applies matchers given as expected values", func() {
		actual := []types.Notification{types.Next(10, map[string]int{"height": 7})}
		Expect(assertion.CompareNotifications(actual, []types.Notification{
			types.Next(10, HaveKeyWithValue("height", 7)),
		})).To(Succeed())
		Expect(assertion.CompareNotifications(actual, []types.Notification{
			types.Next(10, HaveKey("width")),
		})).NotTo(Succeed())
	})

	It("compares the notifications of inner streams", func() {
		inner := []types.Notification{types.Next(10, "a"), types.Complete(20)}
		actual := []types.Notification{types.Next(20, inner)}
		Expect(assertion.CompareNotifications(actual, []types.Notification{
			types.Next(20, []types.Notification{types.Next(10, "a"), types.Complete(20)}),
		})).To(Succeed())
		Expect(assertion.CompareNotifications(actual, []types.Notification{
			types.Next(20, []types.Notification{types.Next(10, "b"), types.Complete(20)}),
		})).NotTo(Succeed())
	})

	It("uses the frame step of its encoder", func() {
		comparator := assertion.Comparator{Encoder: marblizer.Encoder{FrameStep: 1}}
		err := comparator.CompareNotifications(
			[]types.Notification{types.Next(2, "a")},
			[]types.Notification{types.Next(3, "a")},
		)
		Expect(mismatchOf(err).Expected).To(Equal(`"---a"`))
		Expect(mismatchOf(err).Actual).To(Equal(`"--a"`))
	})
})

var _ = Describe("CompareSubscriptions", func() {
	first := types.Interval{Subscribed: 30, Unsubscribed: 60}
	second := types.Interval{Subscribed: 10, Unsubscribed: 50}

	It("ignores the order of the intervals", func() {
		Expect(assertion.CompareSubscriptions(
			[]types.Interval{first, second},
			[]types.Interval{second, first},
		)).To(Succeed())
		Expect(assertion.CompareSubscriptions(
			[]types.Interval{second, first},
			[]types.Interval{first, second},
		)).To(Succeed())
	})

	It("requires the same number of intervals", func() {
		err := assertion.CompareSubscriptions([]types.Interval{first}, []types.Interval{first, first})
		Expect(err).To(HaveOccurred())
		Expect(mismatchOf(err).Matcher).To(Equal(assertion.SubscriptionsMatcher))
	})

	It("matches each expected interval once", func() {
		Expect(assertion.CompareSubscriptions(
			[]types.Interval{first, first},
			[]types.Interval{first, second},
		)).NotTo(Succeed())
	})

	It("lists both sides in the failure", func() {
		err := assertion.CompareSubscriptions([]types.Interval{first}, []types.Interval{second})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`["-^---!"]`))
		Expect(err.Error()).To(ContainSubstring(`["---^--!"]`))
	})

	It("never lets an inverted interval pass as another one", func() {
		inverted := types.Interval{Subscribed: 30, Unsubscribed: 10}
		Expect(func() {
			assertion.CompareSubscriptions(
				[]types.Interval{inverted},
				[]types.Interval{{Subscribed: 30, Unsubscribed: 40}},
			)
		}).To(Panic())
	})
})

var _ = Describe("ExpectNoSubscriptions", func() {
	It("passes an empty set", func() {
		Expect(assertion.ExpectNoSubscriptions(nil)).To(Succeed())
	})

	It("fails on any interval", func() {
		err := assertion.ExpectNoSubscriptions([]types.Interval{{Subscribed: 20, Unsubscribed: types.Infinite}})
		Expect(err).To(MatchError("Expected observable to have no subscription points\nBut got:\n  [\"--^\"]\n"))
	})
})
