/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package marblizer_test

import (
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/mirmarbles/pkg/marblizer"
	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/testscheduler"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

func timelinePanic(render func()) (timelineErr *marblizer.TimelineError) {
	defer func() {
		r := recover()
		Expect(r).To(BeAssignableToTypeOf(&marblizer.TimelineError{}))
		timelineErr = r.(*marblizer.TimelineError)
	}()

	render()
	return nil
}

var _ = Describe("Notifications", func() {
	It("groups simultaneous values", func() {
		Expect(marblizer.Notifications([]types.Notification{
			types.Next(30, "b"),
			types.Next(30, "e"),
			types.Next(110, "c"),
			types.Next(130, "f"),
		})).To(Equal("---(be)----c-f"))
	})

	It("renders completion", func() {
		Expect(marblizer.Notifications([]types.Notification{
			types.Next(30, "b"),
			types.Next(110, "e"),
			types.Complete(140),
		})).To(Equal("---b-------e--|"))
	})

	It("renders an empty sequence as an empty diagram", func() {
		Expect(marblizer.Notifications(nil)).To(BeEmpty())
	})

	It("renders a lone terminal event after its offset", func() {
		Expect(marblizer.Notifications([]types.Notification{types.Complete(40)})).To(Equal("----|"))
		Expect(marblizer.Notifications([]types.Notification{types.Error(20, notation.DefaultError)})).To(Equal("--#"))
		Expect(marblizer.Notifications([]types.Notification{types.Complete(0)})).To(Equal("|"))
	})

	It("keeps recorded order inside a group and sorts groups", func() {
		Expect(marblizer.Notifications([]types.Notification{
			types.Next(60, "a"),
			types.Next(60, "x"),
			types.Complete(60),
			types.Next(0, "z"),
		})).To(Equal("z-----(ax|)"))
	})

	It("honours a custom frame step", func() {
		encoder := marblizer.Encoder{FrameStep: 1}
		Expect(encoder.Notifications([]types.Notification{
			types.Next(2, "a"),
			types.Complete(4),
		})).To(Equal("--a-|"))
	})

	It("panics on frames that are not aligned to the step", func() {
		Expect(func() {
			marblizer.Notifications([]types.Notification{types.Next(25, "a")})
		}).To(Panic())
	})

	It("panics on a group that overlaps the previous one", func() {
		err := timelinePanic(func() {
			marblizer.Notifications([]types.Notification{
				types.Next(0, "a"),
				types.Next(0, "b"),
				types.Next(10, "c"),
			})
		})
		Expect(err.Frame).To(Equal(int64(10)))
		Expect(err.Error()).To(Equal("frame 10 overlaps the group ending at column 4"))
	})

	It("panics on a negative frame", func() {
		err := timelinePanic(func() {
			marblizer.Notifications([]types.Notification{types.Next(-20, "a")})
		})
		Expect(err.Error()).To(Equal("frame -20 is before the start of the timeline"))
	})

	It("panics on values wider than one column", func() {
		err := timelinePanic(func() {
			marblizer.Notifications([]types.Notification{types.Next(10, 42)})
		})
		Expect(err.Error()).To(ContainSubstring("holds 42, which is not one column wide"))

		timelinePanic(func() {
			marblizer.Notifications([]types.Notification{types.Next(10, "ab")})
		})
	})
})

var _ = Describe("Subscriptions", func() {
	It("renders an open subscription without an unsubscription point", func() {
		Expect(marblizer.Subscriptions([]types.Interval{
			{Subscribed: 20, Unsubscribed: types.Infinite},
		})).To(Equal([]string{"--^"}))
	})

	It("renders a closed subscription", func() {
		Expect(marblizer.Subscriptions([]types.Interval{
			{Subscribed: 20, Unsubscribed: 80},
		})).To(Equal([]string{"--^-----!"}))
	})

	It("renders each subscription on its own timeline", func() {
		Expect(marblizer.Subscriptions([]types.Interval{
			{Subscribed: 30, Unsubscribed: 60},
			{Subscribed: 10, Unsubscribed: 50},
		})).To(Equal([]string{"---^--!", "-^---!"}))
	})

	It("groups a subscription closed in the frame it opened", func() {
		Expect(marblizer.Subscriptions([]types.Interval{
			{Subscribed: 20, Unsubscribed: 20},
		})).To(Equal([]string{"--(^!)"}))
	})

	It("renders nothing for an empty set", func() {
		Expect(marblizer.Subscriptions(nil)).To(BeEmpty())
	})

	It("panics on misaligned intervals", func() {
		Expect(func() {
			marblizer.Subscriptions([]types.Interval{{Subscribed: 15, Unsubscribed: 30}})
		}).To(Panic())
	})

	It("panics on an interval that closes before it opens", func() {
		err := timelinePanic(func() {
			marblizer.Subscriptions([]types.Interval{{Subscribed: 30, Unsubscribed: 10}})
		})
		Expect(err.Frame).To(Equal(int64(10)))
		Expect(err.Error()).To(Equal("frame 10 closes a subscription opened at frame 30"))
	})

	It("panics on an interval opened before frame zero", func() {
		err := timelinePanic(func() {
			marblizer.Subscriptions([]types.Interval{{Subscribed: -10, Unsubscribed: types.Infinite}})
		})
		Expect(err.Error()).To(Equal("frame -10 is before the start of the timeline"))
	})

	DescribeTable("round-trips through the subscription parser",
		func(set []types.Interval) {
			for i, marbles := range marblizer.Subscriptions(set) {
				interval, err := testscheduler.ParseSubscription(marbles, notation.DefaultFrameStep)
				Expect(err).NotTo(HaveOccurred())
				Expect(interval).To(Equal(set[i]))
			}
		},
		Entry("open", []types.Interval{{Subscribed: 0, Unsubscribed: types.Infinite}}),
		Entry("closed", []types.Interval{{Subscribed: 30, Unsubscribed: 60}}),
		Entry("instant", []types.Interval{{Subscribed: 40, Unsubscribed: 40}}),
		Entry("several", []types.Interval{
			{Subscribed: 30, Unsubscribed: 60},
			{Subscribed: 10, Unsubscribed: 50},
			{Subscribed: 70, Unsubscribed: types.Infinite},
		}),
	)
})

var _ = Describe("Compaction", func() {
	var chars []types.Notification

	BeforeEach(func() {
		chars = []types.Notification{
			types.Next(30, "b"),
			types.Next(110, "e"),
		}
	})

	It("compacts single characters and completion", func() {
		Expect(marblizer.Decide(chars, append(chars, types.Complete(140)))).To(Equal(marblizer.Compact))
	})

	It("compacts the default error", func() {
		Expect(marblizer.Decide(chars, append(chars, types.Error(140, notation.DefaultError)))).To(Equal(marblizer.Compact))
	})

	It("compacts empty sequences", func() {
		Expect(marblizer.Decide(nil, nil)).To(Equal(marblizer.Compact))
		Expect(marblizer.Decide(nil, chars)).To(Equal(marblizer.Compact))
	})

	It("keeps any other error payload structural", func() {
		Expect(marblizer.Decide(chars, append(chars, types.Error(140, errors.New("A"))))).To(Equal(marblizer.Structural))
	})

	It("keeps non-string values structural on both sides", func() {
		Expect(marblizer.Decide(append(chars, types.Next(140, 0)), chars)).To(Equal(marblizer.Structural))
		Expect(marblizer.Decide(chars, append(chars, types.Next(140, 42)))).To(Equal(marblizer.Structural))
	})

	It("keeps multi-character and reserved values structural", func() {
		Expect(marblizer.Decide(chars, []types.Notification{types.Next(10, "ab")})).To(Equal(marblizer.Structural))
		Expect(marblizer.Decide(chars, []types.Notification{types.Next(10, "|")})).To(Equal(marblizer.Structural))
		Expect(marblizer.Decide(chars, []types.Notification{types.Next(10, "")})).To(Equal(marblizer.Structural))
	})

	It("keeps sequences that do not fit the time axis structural", func() {
		overlapping := []types.Notification{
			types.Next(30, "a"),
			types.Next(30, "b"),
			types.Next(40, "c"),
		}
		Expect(marblizer.Decide(chars, overlapping)).To(Equal(marblizer.Structural))

		misaligned := []types.Notification{types.Next(25, "a")}
		Expect(marblizer.Decide(misaligned, chars)).To(Equal(marblizer.Structural))
	})

	It("accepts groups that end exactly where the next one starts", func() {
		adjacent := []types.Notification{
			types.Next(30, "a"),
			types.Next(30, "b"),
			types.Next(70, "c"),
		}
		Expect(marblizer.Decide(adjacent, adjacent)).To(Equal(marblizer.Compact))
		Expect(marblizer.Notifications(adjacent)).To(Equal("---(ab)c"))
	})

	DescribeTable("is idempotent on canonical diagrams",
		func(marbles string) {
			parsed, err := testscheduler.ParseMarbles(marbles, nil, nil, notation.DefaultFrameStep)
			Expect(err).NotTo(HaveOccurred())
			Expect(marblizer.Decide(parsed, parsed)).To(Equal(marblizer.Compact))

			once := marblizer.Notifications(parsed)
			Expect(once).To(Equal(marbles))

			reparsed, err := testscheduler.ParseMarbles(once, nil, nil, notation.DefaultFrameStep)
			Expect(err).NotTo(HaveOccurred())
			Expect(marblizer.Notifications(reparsed)).To(Equal(once))
		},
		Entry("values", "--a-b--c"),
		Entry("group", "---(be)----c-f"),
		Entry("completion", "---b-------e--|"),
		Entry("error", "--a-#"),
		Entry("terminal group", "------(a|)"),
	)
})
