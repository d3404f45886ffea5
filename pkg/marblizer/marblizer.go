/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package marblizer renders recorded notifications and subscription logs as
// marble diagrams, and decides when such a rendering is faithful enough to be
// compared instead of the raw records.
package marblizer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// Encoder renders marble diagrams using a fixed frame step.
// The zero value uses notation.DefaultFrameStep.
type Encoder struct {
	FrameStep int64
}

var defaultEncoder = Encoder{FrameStep: notation.DefaultFrameStep}

// TimelineError reports a notification group or subscription interval that
// cannot be placed on the time axis without moving other events.
type TimelineError struct {
	Frame  int64
	Reason string
}

func (e *TimelineError) Error() string {
	return fmt.Sprintf("frame %d %s", e.Frame, e.Reason)
}

// Notifications renders seq with the default frame step.
func Notifications(seq []types.Notification) string {
	return defaultEncoder.Notifications(seq)
}

// Subscriptions renders set with the default frame step.
func Subscriptions(set []types.Interval) []string {
	return defaultEncoder.Subscriptions(set)
}

func (e Encoder) step() int64 {
	if e.FrameStep == 0 {
		return notation.DefaultFrameStep
	}
	return e.FrameStep
}

// Notifications renders seq on a single timeline. Notifications sharing a
// frame are wrapped in parentheses in recorded order, and each group takes up
// as many columns as characters it renders. Nothing is emitted after the last
// group. A frame that is not a multiple of the frame step panics with a
// *notation.MisalignedFrameError. A negative frame, a group starting before
// the previous one ends, or a value that is not a single character panics
// with a *TimelineError. Callers holding arbitrary input check Marblizable
// first.
func (e Encoder) Notifications(seq []types.Notification) string {
	var b strings.Builder
	column := 0

	for _, group := range groupByFrame(seq) {
		frame := group[0].Frame
		start := notation.Columns(frame, e.step())
		switch {
		case start < 0:
			panic(&TimelineError{Frame: frame, Reason: "is before the start of the timeline"})
		case start < column:
			panic(&TimelineError{Frame: frame, Reason: fmt.Sprintf("overlaps the group ending at column %d", column)})
		}
		b.WriteString(notation.Gap(start - column))

		rendered := renderGroup(group)
		b.WriteString(rendered)
		column = start + utf8.RuneCountInString(rendered)
	}

	return b.String()
}

// Subscriptions renders every interval on its own timeline so that
// overlapping subscriptions stay distinguishable. Open intervals have no '!'.
// An interval starting before frame zero or closing before it opens panics
// with a *TimelineError.
func (e Encoder) Subscriptions(set []types.Interval) []string {
	result := make([]string, 0, len(set))
	for _, interval := range set {
		result = append(result, e.subscription(interval))
	}
	return result
}

func (e Encoder) subscription(interval types.Interval) string {
	if interval.Subscribed == types.Infinite {
		return ""
	}

	switch {
	case interval.Subscribed < 0:
		panic(&TimelineError{Frame: interval.Subscribed, Reason: "is before the start of the timeline"})
	case interval.Unsubscribed < interval.Subscribed:
		panic(&TimelineError{
			Frame:  interval.Unsubscribed,
			Reason: fmt.Sprintf("closes a subscription opened at frame %d", interval.Subscribed),
		})
	}

	prefix := notation.Gap(notation.Columns(interval.Subscribed, e.step()))

	switch {
	case interval.Open():
		return prefix + string(notation.Subscription)
	case interval.Unsubscribed == interval.Subscribed:
		return prefix + string([]rune{notation.GroupStart, notation.Subscription, notation.Unsubscription, notation.GroupEnd})
	default:
		length := notation.Columns(interval.Unsubscribed-interval.Subscribed, e.step())
		return prefix + string(notation.Subscription) + notation.Gap(length-1) + string(notation.Unsubscription)
	}
}

// groupByFrame splits seq into runs of equal frames, ascending, keeping the
// recorded order inside each run.
func groupByFrame(seq []types.Notification) [][]types.Notification {
	if len(seq) == 0 {
		return nil
	}

	sorted := make([]types.Notification, len(seq))
	copy(sorted, seq)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})

	var groups [][]types.Notification
	begin := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].Frame != sorted[begin].Frame {
			groups = append(groups, sorted[begin:i])
			begin = i
		}
	}
	return groups
}

func renderGroup(group []types.Notification) string {
	var b strings.Builder
	for _, n := range group {
		b.WriteString(symbol(n))
	}

	if len(group) == 1 {
		return b.String()
	}
	return string(notation.GroupStart) + b.String() + string(notation.GroupEnd)
}

func symbol(n types.Notification) string {
	switch n.Kind {
	case types.KindComplete:
		return string(notation.Completion)
	case types.KindError:
		return string(notation.Failure)
	default:
		s, ok := n.Value.(string)
		if !ok || utf8.RuneCountInString(s) != 1 {
			panic(&TimelineError{Frame: n.Frame, Reason: fmt.Sprintf("holds %#v, which is not one column wide", n.Value)})
		}
		return s
	}
}
