/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package assertion decides whether a recorded result set matches the
// expected one, comparing marble diagrams where both sides can be drawn and
// raw notifications otherwise.
package assertion

import (
	"fmt"

	gomegatypes "github.com/onsi/gomega/types"
	"github.com/stretchr/testify/assert"

	"github.com/hyperledger-labs/mirmarbles/pkg/marblizer"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

const (
	NotificationsMatcher   = "BeNotifications"
	SubscriptionsMatcher   = "HaveSubscriptions"
	NoSubscriptionsMatcher = "HaveNoSubscriptions"
)

// Comparator compares result sets drawn with Encoder.
type Comparator struct {
	Encoder marblizer.Encoder
}

var defaultComparator = Comparator{}

// AssertDeepEqual compares with the default frame step.
func AssertDeepEqual(actual, expected types.ResultSet) error {
	return defaultComparator.AssertDeepEqual(actual, expected)
}

// CompareNotifications compares with the default frame step.
func CompareNotifications(actual, expected []types.Notification) error {
	return defaultComparator.CompareNotifications(actual, expected)
}

// CompareSubscriptions compares with the default frame step.
func CompareSubscriptions(actual, expected []types.Interval) error {
	return defaultComparator.CompareSubscriptions(actual, expected)
}

// ExpectNoSubscriptions fails when actual holds any interval.
func ExpectNoSubscriptions(actual []types.Interval) error {
	return defaultComparator.ExpectNoSubscriptions(actual)
}

// AssertDeepEqual returns nil when actual is equivalent to expected and a
// *Mismatch otherwise. An Absent expected set matches anything. When one side
// is empty, the kind of the other side decides how both are compared.
func (c Comparator) AssertDeepEqual(actual, expected types.ResultSet) error {
	if expected.Kind == types.Absent {
		return nil
	}

	if !expected.Empty() {
		if !actual.Empty() && actual.Kind != expected.Kind {
			matcher := NotificationsMatcher
			if expected.Kind == types.SubscriptionSet {
				matcher = SubscriptionsMatcher
			}
			return &Mismatch{
				Matcher:  matcher,
				Expected: c.describe(expected),
				Actual:   c.describe(actual),
				Message:  fmt.Sprintf("cannot compare %s with %s", kindName(actual.Kind), kindName(expected.Kind)),
			}
		}

		if expected.Kind == types.SubscriptionSet {
			return c.CompareSubscriptions(actual.Subscriptions, expected.Subscriptions)
		}
		return c.CompareNotifications(actual.Notifications, expected.Notifications)
	}

	switch {
	case actual.Empty():
		return nil
	case actual.Kind == types.SubscriptionSet:
		return c.ExpectNoSubscriptions(actual.Subscriptions)
	default:
		return c.CompareNotifications(actual.Notifications, nil)
	}
}

// describe renders rs the way a mismatch of its own kind would show it.
func (c Comparator) describe(rs types.ResultSet) string {
	if rs.Kind == types.SubscriptionSet {
		return listing(c.Encoder.Subscriptions(rs.Subscriptions))
	}
	if c.Encoder.Marblizable(rs.Notifications) {
		return fmt.Sprintf("%q", c.Encoder.Notifications(rs.Notifications))
	}
	return dump(rs.Notifications)
}

func kindName(kind types.SetKind) string {
	if kind == types.SubscriptionSet {
		return "subscription points"
	}
	return "notifications"
}

// CompareNotifications compares marble diagrams when both sequences can be
// drawn and the raw notifications otherwise.
func (c Comparator) CompareNotifications(actual, expected []types.Notification) error {
	if c.Encoder.Decide(actual, expected) == marblizer.Compact {
		actualMarbles := c.Encoder.Notifications(actual)
		expectedMarbles := c.Encoder.Notifications(expected)
		if actualMarbles == expectedMarbles {
			return nil
		}
		return contentMismatch(NotificationsMatcher, "Expected notifications to be",
			fmt.Sprintf("%q", expectedMarbles), fmt.Sprintf("%q", actualMarbles))
	}

	if notificationsEqual(actual, expected) {
		return nil
	}

	if expected == nil {
		expected = []types.Notification{}
	}
	return contentMismatch(NotificationsMatcher, "Expected notifications to be", dump(expected), dump(actual))
}

// CompareSubscriptions passes when both sets draw to the same diagrams,
// regardless of order. Each expected diagram matches at most one actual one.
func (c Comparator) CompareSubscriptions(actual, expected []types.Interval) error {
	actualMarbles := c.Encoder.Subscriptions(actual)
	expectedMarbles := c.Encoder.Subscriptions(expected)

	if sameDiagrams(actualMarbles, expectedMarbles) {
		return nil
	}

	return contentMismatch(SubscriptionsMatcher, "Expected observable to have the following subscription points",
		listing(expectedMarbles), listing(actualMarbles))
}

// ExpectNoSubscriptions fails when actual holds any interval.
func (c Comparator) ExpectNoSubscriptions(actual []types.Interval) error {
	if len(actual) == 0 {
		return nil
	}

	actualMarbles := listing(c.Encoder.Subscriptions(actual))
	return &Mismatch{
		Matcher: NoSubscriptionsMatcher,
		Actual:  actualMarbles,
		Message: fmt.Sprintf("Expected observable to have no subscription points\nBut got:\n%s\n", indent(actualMarbles)),
	}
}

func sameDiagrams(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	consumed := make([]bool, len(expected))
outer:
	for _, a := range actual {
		for i, e := range expected {
			if !consumed[i] && a == e {
				consumed[i] = true
				continue outer
			}
		}
		return false
	}

	return true
}

func listing(marbles []string) string {
	return fmt.Sprintf("%q", marbles)
}

func notificationsEqual(actual, expected []types.Notification) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i := range actual {
		a, e := actual[i], expected[i]
		if a.Frame != e.Frame || a.Kind != e.Kind {
			return false
		}

		switch e.Kind {
		case types.KindNext:
			if !valuesEqual(a.Value, e.Value) {
				return false
			}
		case types.KindError:
			if !valuesEqual(a.Err, e.Err) {
				return false
			}
		}
	}

	return true
}

// valuesEqual applies expected when it is a gomega matcher and compares the
// notifications of inner streams one by one.
func valuesEqual(actual, expected interface{}) bool {
	switch e := expected.(type) {
	case gomegatypes.GomegaMatcher:
		ok, err := e.Match(actual)
		return err == nil && ok
	case []types.Notification:
		a, ok := actual.([]types.Notification)
		return ok && notificationsEqual(a, e)
	default:
		return assert.ObjectsAreEqual(expected, actual)
	}
}
