/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testscheduler

import (
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// subscriptionLog records when subscribers attach to and detach from a test
// stream.
type subscriptionLog struct {
	scheduler     *Scheduler
	subscriptions []types.Interval
}

func (l *subscriptionLog) logSubscribed() int {
	l.subscriptions = append(l.subscriptions, types.Interval{
		Subscribed:   l.scheduler.Now(),
		Unsubscribed: types.Infinite,
	})
	return len(l.subscriptions) - 1
}

func (l *subscriptionLog) logUnsubscribed(index int) {
	l.subscriptions[index].Unsubscribed = l.scheduler.Now()
}

// Subscriptions returns a copy of the intervals recorded so far.
func (l *subscriptionLog) Subscriptions() []types.Interval {
	result := make([]types.Interval, len(l.subscriptions))
	copy(result, l.subscriptions)
	return result
}

// ColdStream replays its diagram from the start for every subscriber.
type ColdStream struct {
	subscriptionLog

	Marbles  string
	Values   Values
	Err      error
	Messages []types.Notification
}

func (c *ColdStream) Subscribe(observer Observer) *Subscription {
	return ObservableFunc(func(subscriber *Subscriber) {
		index := c.logSubscribed()
		subscriber.Add(func() { c.logUnsubscribed(index) })

		for _, message := range c.Messages {
			message := message
			event := c.scheduler.queue.Insert("cold "+c.Marbles, func() {
				deliver(subscriber, message)
			}, message.Frame)
			subscriber.Add(func() { c.scheduler.queue.Remove(event) })
		}
	}).Subscribe(observer)
}

// HotStream plays its diagram once, from the start of the flush, whether or
// not anybody listens. Notifications before the '^' are never observed.
type HotStream struct {
	subscriptionLog

	Marbles  string
	Values   Values
	Err      error
	Messages []types.Notification

	subject *Subject
}

func (h *HotStream) Subscribe(observer Observer) *Subscription {
	return ObservableFunc(func(subscriber *Subscriber) {
		index := h.logSubscribed()
		subscriber.Add(func() { h.logUnsubscribed(index) })

		inner := h.subject.Subscribe(Observer{
			Next:     subscriber.Next,
			Error:    subscriber.Error,
			Complete: subscriber.Complete,
		})
		subscriber.Add(inner.Unsubscribe)
	}).Subscribe(observer)
}

func (h *HotStream) setup() {
	for _, message := range h.Messages {
		if message.Frame < 0 {
			continue
		}

		message := message
		h.scheduler.queue.Insert("hot "+h.Marbles, func() {
			deliver(h.subject, message)
		}, message.Frame)
	}
}
