/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testscheduler

import (
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// Observer receives the notifications of a stream. Nil callbacks are
// ignored.
type Observer struct {
	Next     func(value interface{})
	Error    func(err error)
	Complete func()
}

// Observable is anything that can be subscribed to.
type Observable interface {
	Subscribe(observer Observer) *Subscription
}

// Subscription tears down a subscription exactly once.
type Subscription struct {
	closed    bool
	teardowns []func()
}

// Add registers a teardown. On a closed subscription it runs immediately.
func (s *Subscription) Add(teardown func()) {
	if s.closed {
		teardown()
		return
	}
	s.teardowns = append(s.teardowns, teardown)
}

// Unsubscribe runs every teardown in registration order.
func (s *Subscription) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true

	teardowns := s.teardowns
	s.teardowns = nil
	for _, teardown := range teardowns {
		teardown()
	}
}

func (s *Subscription) Closed() bool {
	return s.closed
}

// Subscriber is the producer side of a subscription. After Error or
// Complete it delivers nothing more and unsubscribes itself.
type Subscriber struct {
	observer     Observer
	subscription *Subscription
	stopped      bool
}

func (s *Subscriber) Next(value interface{}) {
	if s.Closed() || s.observer.Next == nil {
		return
	}
	s.observer.Next(value)
}

func (s *Subscriber) Error(err error) {
	if s.Closed() {
		return
	}
	s.stopped = true
	if s.observer.Error != nil {
		s.observer.Error(err)
	}
	s.subscription.Unsubscribe()
}

func (s *Subscriber) Complete() {
	if s.Closed() {
		return
	}
	s.stopped = true
	if s.observer.Complete != nil {
		s.observer.Complete()
	}
	s.subscription.Unsubscribe()
}

// Add ties a teardown to this subscription.
func (s *Subscriber) Add(teardown func()) {
	s.subscription.Add(teardown)
}

func (s *Subscriber) Closed() bool {
	return s.stopped || s.subscription.Closed()
}

// ObservableFunc adapts a producer function to Observable.
type ObservableFunc func(subscriber *Subscriber)

func (f ObservableFunc) Subscribe(observer Observer) *Subscription {
	subscription := &Subscription{}
	subscriber := &Subscriber{
		observer:     observer,
		subscription: subscription,
	}
	subscription.Add(func() { subscriber.stopped = true })
	f(subscriber)
	return subscription
}

// Create builds an Observable from a producer function.
func Create(produce func(subscriber *Subscriber)) Observable {
	return ObservableFunc(produce)
}

// Subject multicasts to every current subscriber. Subscribing after it
// terminated replays the termination only.
type Subject struct {
	subscribers []*Subscriber
	stopped     bool
	failed      bool
	err         error
}

func NewSubject() *Subject {
	return &Subject{}
}

func (s *Subject) Subscribe(observer Observer) *Subscription {
	return ObservableFunc(func(subscriber *Subscriber) {
		if s.stopped {
			if s.failed {
				subscriber.Error(s.err)
			} else {
				subscriber.Complete()
			}
			return
		}

		s.subscribers = append(s.subscribers, subscriber)
		subscriber.Add(func() { s.remove(subscriber) })
	}).Subscribe(observer)
}

func (s *Subject) Next(value interface{}) {
	if s.stopped {
		return
	}
	for _, subscriber := range s.snapshot() {
		subscriber.Next(value)
	}
}

func (s *Subject) Error(err error) {
	if s.stopped {
		return
	}
	s.stopped, s.failed, s.err = true, true, err
	subscribers := s.snapshot()
	s.subscribers = nil
	for _, subscriber := range subscribers {
		subscriber.Error(err)
	}
}

func (s *Subject) Complete() {
	if s.stopped {
		return
	}
	s.stopped = true
	subscribers := s.snapshot()
	s.subscribers = nil
	for _, subscriber := range subscribers {
		subscriber.Complete()
	}
}

func (s *Subject) snapshot() []*Subscriber {
	subscribers := make([]*Subscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	return subscribers
}

func (s *Subject) remove(target *Subscriber) {
	for i, subscriber := range s.subscribers {
		if subscriber == target {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// Merge interleaves sources. It completes once all of them completed and
// fails as soon as one fails.
func Merge(sources ...Observable) Observable {
	return Create(func(subscriber *Subscriber) {
		active := len(sources)
		if active == 0 {
			subscriber.Complete()
			return
		}

		for _, source := range sources {
			if subscriber.Closed() {
				return
			}

			inner := source.Subscribe(Observer{
				Next:  subscriber.Next,
				Error: subscriber.Error,
				Complete: func() {
					active--
					if active == 0 {
						subscriber.Complete()
					}
				},
			})
			subscriber.Add(inner.Unsubscribe)
		}
	})
}

// Concat subscribes to each source once the previous one completed.
func Concat(sources ...Observable) Observable {
	return Create(func(subscriber *Subscriber) {
		var (
			current *Subscription
			index   int
			next    func(i int)
		)

		subscriber.Add(func() {
			if current != nil {
				current.Unsubscribe()
			}
		})

		next = func(i int) {
			if subscriber.Closed() {
				return
			}
			if i == len(sources) {
				subscriber.Complete()
				return
			}

			index = i
			inner := sources[i].Subscribe(Observer{
				Next:     subscriber.Next,
				Error:    subscriber.Error,
				Complete: func() { next(i + 1) },
			})
			// A source completing synchronously has already moved index on.
			if index == i {
				current = inner
			}
		}

		next(0)
	})
}

// SwitchAll mirrors the latest stream emitted by source and unsubscribes from
// the one before. It completes once source and the current inner stream have
// both completed.
func SwitchAll(source Observable) Observable {
	return Create(func(subscriber *Subscriber) {
		var (
			inner       *Subscription
			generation  int
			innerActive bool
			outerDone   bool
		)

		subscriber.Add(func() {
			if inner != nil {
				inner.Unsubscribe()
			}
		})

		outer := source.Subscribe(Observer{
			Next: func(value interface{}) {
				next, ok := value.(Observable)
				if !ok {
					subscriber.Error(errors.Errorf("cannot switch to a value of type %T", value))
					return
				}

				if inner != nil {
					inner.Unsubscribe()
					inner = nil
				}

				generation++
				current := generation
				innerActive = true
				subscription := next.Subscribe(Observer{
					Next: func(value interface{}) {
						if current == generation {
							subscriber.Next(value)
						}
					},
					Error: subscriber.Error,
					Complete: func() {
						if current != generation {
							return
						}
						innerActive = false
						if outerDone {
							subscriber.Complete()
						}
					},
				})
				if current == generation {
					inner = subscription
				}
			},
			Error: subscriber.Error,
			Complete: func() {
				outerDone = true
				if !innerActive {
					subscriber.Complete()
				}
			},
		})
		subscriber.Add(outer.Unsubscribe)
	})
}

// Tap passes every notification of source to spy before forwarding it.
func Tap(source Observable, spy Observer) Observable {
	return Create(func(subscriber *Subscriber) {
		inner := source.Subscribe(Observer{
			Next: func(value interface{}) {
				if spy.Next != nil {
					spy.Next(value)
				}
				subscriber.Next(value)
			},
			Error: func(err error) {
				if spy.Error != nil {
					spy.Error(err)
				}
				subscriber.Error(err)
			},
			Complete: func() {
				if spy.Complete != nil {
					spy.Complete()
				}
				subscriber.Complete()
			},
		})
		subscriber.Add(inner.Unsubscribe)
	})
}

// notifiable is the receiving side shared by Subscriber and Subject.
type notifiable interface {
	Next(value interface{})
	Error(err error)
	Complete()
}

func deliver(target notifiable, notification types.Notification) {
	switch notification.Kind {
	case types.KindNext:
		target.Next(notification.Value)
	case types.KindError:
		target.Error(notification.Err)
	case types.KindComplete:
		target.Complete()
	}
}
