/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testscheduler

import (
	"bytes"
	"container/list"
	"fmt"
)

// Event is a unit of work due at a virtual time.
type Event struct {
	Time int64
	Work func()

	// Label is only used when printing the queue status.
	Label string

	element *list.Element
}

type EventQueue struct {
	// List is a list of *Event messages, in order of time. Events sharing a
	// time are kept in insertion order.
	List *list.List

	// FakeTime is the current 'time' according to this queue.
	FakeTime int64
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		List: list.New(),
	}
}

// Len returns the number of pending events.
func (l *EventQueue) Len() int {
	return l.List.Len()
}

// Peek returns the next event without consuming it, or nil if the queue is
// empty.
func (l *EventQueue) Peek() *Event {
	front := l.List.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Event)
}

// ConsumeEvent removes the next event and advances FakeTime to it. It returns
// nil if the queue is empty.
func (l *EventQueue) ConsumeEvent() *Event {
	front := l.List.Front()
	if front == nil {
		return nil
	}

	event := l.List.Remove(front).(*Event)
	event.element = nil
	l.FakeTime = event.Time
	return event
}

// Insert schedules work fromNow frames after the current time.
func (l *EventQueue) Insert(label string, work func(), fromNow int64) *Event {
	event := &Event{
		Time:  l.FakeTime + fromNow,
		Work:  work,
		Label: label,
	}
	l.InsertEvent(event)
	return event
}

func (l *EventQueue) InsertEvent(event *Event) {
	if event.Time < l.FakeTime {
		panic("attempted to modify the past")
	}

	for el := l.List.Front(); el != nil; el = el.Next() {
		if el.Value.(*Event).Time > event.Time {
			event.element = l.List.InsertBefore(event, el)
			return
		}
	}

	event.element = l.List.PushBack(event)
}

// Remove drops a pending event. Removing an event that already ran or was
// already removed is a no-op.
func (l *EventQueue) Remove(event *Event) {
	if event == nil || event.element == nil {
		return
	}

	l.List.Remove(event.element)
	event.element = nil
}

func (l *EventQueue) Status() string {
	count := l.List.Len()
	if count == 0 {
		return "Empty EventQueue"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "EventQueue at time=%d\n", l.FakeTime)
	i := 0
	for el := l.List.Front(); el != nil; el = el.Next() {
		if i == 50 {
			fmt.Fprintf(&buf, "\n ... skipping %d entries ... \n", count-50)
			return buf.String()
		}

		event := el.Value.(*Event)
		fmt.Fprintf(&buf, "[time=%d] %s\n", event.Time, event.Label)
		i++
	}

	fmt.Fprintf(&buf, "\nCompleted eventqueue summary of %d events\n", count)
	return buf.String()
}
