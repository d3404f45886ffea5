/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"fmt"
	"math"
)

// Infinite marks a frame that never arrives, e.g. the end of a subscription
// that was still open when the scheduler stopped.
const Infinite int64 = math.MaxInt64

// ================================================================================

// NotificationKind distinguishes the three events a stream can deliver.
type NotificationKind int

const (
	KindNext NotificationKind = iota
	KindComplete
	KindError
)

func (k NotificationKind) String() string {
	switch k {
	case KindNext:
		return "N"
	case KindComplete:
		return "C"
	case KindError:
		return "E"
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// Notification is a single event observed at Frame. Value is only meaningful
// for KindNext, Err only for KindError.
type Notification struct {
	Frame int64
	Kind  NotificationKind
	Value interface{}
	Err   error
}

// Next builds a value notification.
func Next(frame int64, value interface{}) Notification {
	return Notification{Frame: frame, Kind: KindNext, Value: value}
}

// Complete builds a completion notification.
func Complete(frame int64) Notification {
	return Notification{Frame: frame, Kind: KindComplete}
}

// Error builds a failure notification.
func Error(frame int64, err error) Notification {
	return Notification{Frame: frame, Kind: KindError, Err: err}
}

func (n Notification) String() string {
	switch n.Kind {
	case KindNext:
		return fmt.Sprintf("{frame=%d N %v}", n.Frame, n.Value)
	case KindError:
		return fmt.Sprintf("{frame=%d E %v}", n.Frame, n.Err)
	default:
		return fmt.Sprintf("{frame=%d %s}", n.Frame, n.Kind)
	}
}

// ================================================================================

// Interval is the lifetime of one subscription. Unsubscribed is Infinite when
// the subscription was never closed.
type Interval struct {
	Subscribed   int64
	Unsubscribed int64
}

// Open reports whether the subscription is still active.
func (i Interval) Open() bool {
	return i.Unsubscribed == Infinite
}

func (i Interval) String() string {
	if i.Open() {
		return fmt.Sprintf("[%d, inf)", i.Subscribed)
	}
	return fmt.Sprintf("[%d, %d]", i.Subscribed, i.Unsubscribed)
}

// ================================================================================

// SetKind tags what a ResultSet holds.
type SetKind int

const (
	// Absent means no expectation was declared at all.
	Absent SetKind = iota
	NotificationSet
	SubscriptionSet
)

func (k SetKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case NotificationSet:
		return "notifications"
	case SubscriptionSet:
		return "subscriptions"
	default:
		return fmt.Sprintf("SetKind(%d)", int(k))
	}
}

// ResultSet is either a notification sequence or a subscription set. The zero
// value is Absent.
type ResultSet struct {
	Kind          SetKind
	Notifications []Notification
	Subscriptions []Interval
}

// Notifications tags a notification sequence.
func Notifications(ns ...Notification) ResultSet {
	return ResultSet{Kind: NotificationSet, Notifications: ns}
}

// Subscriptions tags a subscription set.
func Subscriptions(is ...Interval) ResultSet {
	return ResultSet{Kind: SubscriptionSet, Subscriptions: is}
}

// Len returns the number of records held.
func (rs ResultSet) Len() int {
	switch rs.Kind {
	case NotificationSet:
		return len(rs.Notifications)
	case SubscriptionSet:
		return len(rs.Subscriptions)
	default:
		return 0
	}
}

// Empty reports whether the set holds no records. Absent sets are empty.
func (rs ResultSet) Empty() bool {
	return rs.Len() == 0
}
