/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testscheduler

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// Values maps value literals of a diagram to the values emitted for them.
type Values map[string]interface{}

// ParseMarbles decodes a diagram into notifications. Every character,
// including ' ', '(' and ')', advances time by one column, and all members of a
// group are stamped with the frame of its '('. A '^' marks frame 0 so that
// characters before it get negative frames. Value literals are looked up in
// values when it is not nil; '#' fails with errValue, or notation.DefaultError
// when errValue is nil.
func ParseMarbles(marbles string, values Values, errValue error, step int64) ([]types.Notification, error) {
	if strings.ContainsRune(marbles, notation.Unsubscription) {
		return nil, errors.New(`conventional marble diagrams cannot have the unsubscription marker "!"`)
	}

	if strings.Count(marbles, string(notation.Subscription)) > 1 {
		return nil, errors.Errorf("marble diagram %q has more than one subscription point '^'", marbles)
	}

	if errValue == nil {
		errValue = notation.DefaultError
	}

	var frame int64
	if subIndex := runeIndex(marbles, notation.Subscription); subIndex >= 0 {
		frame = -int64(subIndex) * step
	}

	var notifications []types.Notification
	groupStart := int64(-1)
	inGroup := false

	for _, c := range marbles {
		var (
			notification types.Notification
			emit         bool
		)

		stamp := frame
		if inGroup {
			stamp = groupStart
		}

		switch c {
		case ' ', notation.TimeFrame, notation.Subscription:
		case notation.GroupStart:
			if inGroup {
				return nil, errors.Errorf("nested group at frame %d", frame)
			}
			inGroup, groupStart = true, frame
		case notation.GroupEnd:
			if !inGroup {
				return nil, errors.Errorf("unbalanced ')' at frame %d", frame)
			}
			inGroup = false
		case notation.Completion:
			notification, emit = types.Complete(stamp), true
		case notation.Failure:
			notification, emit = types.Error(stamp, errValue), true
		default:
			literal := string(c)
			var value interface{} = literal
			if values != nil {
				value = values[literal]
			}
			notification, emit = types.Next(stamp, value), true
		}

		if emit {
			notifications = append(notifications, notification)
		}
		frame += step
	}

	if inGroup {
		return nil, errors.New("unbalanced '(' in marble diagram")
	}

	return notifications, nil
}

// ParseSubscription decodes a subscription diagram made of '-', ' ', groups,
// one '^' and at most one '!'. The '!' does not take up a column. A missing
// marker yields types.Infinite.
func ParseSubscription(marbles string, step int64) (types.Interval, error) {
	interval := types.Interval{
		Subscribed:   types.Infinite,
		Unsubscribed: types.Infinite,
	}

	var frame int64
	groupStart := int64(-1)

	for _, c := range marbles {
		stamp := frame
		if groupStart > -1 {
			stamp = groupStart
		}

		switch c {
		case ' ', notation.TimeFrame:
			frame += step
		case notation.GroupStart:
			groupStart = frame
			frame += step
		case notation.GroupEnd:
			groupStart = -1
			frame += step
		case notation.Subscription:
			if interval.Subscribed != types.Infinite {
				return interval, errors.Errorf("second subscription point '^' at frame %d", stamp)
			}
			interval.Subscribed = stamp
			frame += step
		case notation.Unsubscription:
			if interval.Unsubscribed != types.Infinite {
				return interval, errors.Errorf("second unsubscription point '!' at frame %d", stamp)
			}
			interval.Unsubscribed = stamp
		default:
			return interval, errors.Errorf("unexpected %q at frame %d in subscription diagram", c, frame)
		}
	}

	if interval.Unsubscribed != types.Infinite && interval.Subscribed != types.Infinite && interval.Unsubscribed < interval.Subscribed {
		return interval, errors.Errorf("unsubscription point at frame %d precedes subscription point at frame %d", interval.Unsubscribed, interval.Subscribed)
	}

	return interval, nil
}

// ParseTime returns the frame of the first '|' in marbles.
func ParseTime(marbles string, step int64) (int64, error) {
	index := runeIndex(marbles, notation.Completion)
	if index == -1 {
		return 0, errors.New(`marble diagram for time should have a completion marker "|"`)
	}
	return int64(index) * step, nil
}

func runeIndex(s string, target rune) int {
	i := 0
	for _, c := range s {
		if c == target {
			return i
		}
		i++
	}
	return -1
}
