/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// RecordedError is an error payload that was read back from a recording and
// only carries its message.
type RecordedError string

func (e RecordedError) Error() string {
	return string(e)
}

// Untagged builds a ResultSet from records whose kind was not supplied by the
// caller, e.g. lists decoded from YAML or JSON. It is a compatibility shim:
// the kind is inferred from the first record, which is a subscription when it
// carries a subscribed frame. An empty list becomes an empty notification
// sequence, which compares equal to any other empty set.
//
// Supported records are Notification, Interval, pointers to them, and
// map[string]interface{} with the keys frame/kind/value/error or
// subscribedFrame/unsubscribedFrame. A missing error payload on an 'E' record
// yields defaultErr.
func Untagged(records []interface{}, defaultErr error) (ResultSet, error) {
	if len(records) == 0 {
		return Notifications(), nil
	}

	if isSubscriptionRecord(records[0]) {
		intervals := make([]Interval, 0, len(records))
		for i, record := range records {
			interval, err := toInterval(record)
			if err != nil {
				return ResultSet{}, errors.WithMessagef(err, "record %d", i)
			}
			intervals = append(intervals, interval)
		}
		return Subscriptions(intervals...), nil
	}

	notifications := make([]Notification, 0, len(records))
	for i, record := range records {
		notification, err := toNotification(record, defaultErr)
		if err != nil {
			return ResultSet{}, errors.WithMessagef(err, "record %d", i)
		}
		notifications = append(notifications, notification)
	}
	return Notifications(notifications...), nil
}

func isSubscriptionRecord(record interface{}) bool {
	switch r := record.(type) {
	case Interval, *Interval:
		return true
	case map[string]interface{}:
		_, ok := r["subscribedFrame"]
		return ok
	default:
		return false
	}
}

func toInterval(record interface{}) (Interval, error) {
	switch r := record.(type) {
	case Interval:
		return r, nil
	case *Interval:
		if r == nil {
			return Interval{}, errors.New("nil interval")
		}
		return *r, nil
	case map[string]interface{}:
		subscribed, err := frameField(r, "subscribedFrame")
		if err != nil {
			return Interval{}, err
		}
		switch {
		case subscribed == Infinite:
			return Interval{}, errors.New("subscription record has no subscribedFrame")
		case subscribed < 0:
			return Interval{}, errors.Errorf("subscribedFrame %d is negative", subscribed)
		}
		unsubscribed, err := frameField(r, "unsubscribedFrame")
		if err != nil {
			return Interval{}, err
		}
		if unsubscribed < subscribed {
			return Interval{}, errors.Errorf("unsubscribed frame %d precedes subscribed frame %d", unsubscribed, subscribed)
		}
		return Interval{Subscribed: subscribed, Unsubscribed: unsubscribed}, nil
	default:
		return Interval{}, errors.Errorf("expected a subscription record, got %T", record)
	}
}

func toNotification(record interface{}, defaultErr error) (Notification, error) {
	switch r := record.(type) {
	case Notification:
		return r, nil
	case *Notification:
		if r == nil {
			return Notification{}, errors.New("nil notification")
		}
		return *r, nil
	case map[string]interface{}:
		if _, ok := r["subscribedFrame"]; ok {
			return Notification{}, errors.New("subscription record mixed into notifications")
		}
		frame, err := frameField(r, "frame")
		if err != nil {
			return Notification{}, err
		}
		if frame == Infinite {
			return Notification{}, errors.New("notification is missing its frame")
		}

		kind, _ := r["kind"].(string)
		switch kind {
		case "N", "":
			return Next(frame, r["value"]), nil
		case "C":
			return Complete(frame), nil
		case "E":
			payload, ok := r["error"]
			if !ok || payload == nil {
				return Error(frame, defaultErr), nil
			}
			if err, ok := payload.(error); ok {
				return Error(frame, err), nil
			}
			return Error(frame, RecordedError(fmt.Sprint(payload))), nil
		default:
			return Notification{}, errors.Errorf("unknown notification kind %q", kind)
		}
	default:
		return Notification{}, errors.Errorf("expected a notification record, got %T", record)
	}
}

// frameField reads a frame number. Missing, nil and infinite values are
// Infinite.
func frameField(record map[string]interface{}, key string) (int64, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return Infinite, nil
	}

	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > uint64(math.MaxInt64) {
			return 0, errors.Errorf("%s %d overflows", key, v)
		}
		return int64(v), nil
	case float64:
		if math.IsInf(v, 1) {
			return Infinite, nil
		}
		if v != math.Trunc(v) {
			return 0, errors.Errorf("%s %v is not a whole frame", key, v)
		}
		return int64(v), nil
	case string:
		if v == "inf" || v == "Infinity" {
			return Infinite, nil
		}
		return 0, errors.Errorf("%s %q is not a frame", key, v)
	default:
		return 0, errors.Errorf("%s has unsupported type %T", key, raw)
	}
}
