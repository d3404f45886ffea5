/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testscheduler is a deterministic virtual-time scheduler for testing
// streams described with marble diagrams. Nothing runs until Flush, which
// executes every scheduled event in time order and then hands each ready
// expectation to a comparison callback.
package testscheduler

import (
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/mirmarbles/pkg/logging"
	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// DefaultMaxFrames bounds how far a flush advances virtual time. Events due
// later are never executed.
const DefaultMaxFrames int64 = 750

// AssertFunc compares the actual and expected results of one expectation and
// returns a non-nil error when they differ. An Absent expected set means the
// expectation only wanted the actual side to be subscribed.
type AssertFunc func(actual, expected types.ResultSet) error

type SchedulerOpt interface{}

type frameStepOpt int64

// FrameStepOpt sets how many frames one diagram column spans.
func FrameStepOpt(step int64) SchedulerOpt {
	return frameStepOpt(step)
}

type maxFramesOpt int64

// MaxFramesOpt overrides DefaultMaxFrames. Pass types.Infinite to lift the
// bound.
func MaxFramesOpt(frames int64) SchedulerOpt {
	return maxFramesOpt(frames)
}

type loggerOpt struct {
	logger logging.Logger
}

// LoggerOpt sets the logger receiving flush diagnostics.
func LoggerOpt(logger logging.Logger) SchedulerOpt {
	return loggerOpt{logger: logger}
}

type flushTest struct {
	ready    bool
	actual   func() types.ResultSet
	expected func() types.ResultSet
}

type Scheduler struct {
	queue      *EventQueue
	frameStep  int64
	maxFrames  int64
	logger     logging.Logger
	assert     AssertFunc
	hot        []*HotStream
	flushTests []*flushTest
}

func NewScheduler(assert AssertFunc, opts ...SchedulerOpt) *Scheduler {
	if assert == nil {
		panic("scheduler requires a comparison callback")
	}

	s := &Scheduler{
		queue:     NewEventQueue(),
		frameStep: notation.DefaultFrameStep,
		maxFrames: DefaultMaxFrames,
		logger:    logging.NilLogger,
		assert:    assert,
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case frameStepOpt:
			if v <= 0 {
				panic(errors.Errorf("frame step must be positive, got %d", v))
			}
			s.frameStep = int64(v)
		case maxFramesOpt:
			s.maxFrames = int64(v)
		case loggerOpt:
			s.logger = v.logger
		}
	}

	return s
}

// Now returns the current virtual frame.
func (s *Scheduler) Now() int64 {
	return s.queue.FakeTime
}

func (s *Scheduler) FrameStep() int64 {
	return s.frameStep
}

// Status describes the events still pending.
func (s *Scheduler) Status() string {
	return s.queue.Status()
}

// Schedule runs work delay frames from now. Unsubscribing the returned
// subscription cancels it if it has not run yet.
func (s *Scheduler) Schedule(work func(), delay int64) *Subscription {
	event := s.queue.Insert("scheduled work", work, delay)
	subscription := &Subscription{}
	subscription.Add(func() { s.queue.Remove(event) })
	return subscription
}

// CreateTime converts the position of the '|' in marbles into frames.
func (s *Scheduler) CreateTime(marbles string) (int64, error) {
	return ParseTime(marbles, s.frameStep)
}

// CreateColdObservable builds a stream replaying marbles for each subscriber.
func (s *Scheduler) CreateColdObservable(marbles string, values Values, errValue error) (*ColdStream, error) {
	for _, r := range marbles {
		switch r {
		case notation.Subscription:
			return nil, errors.New(`cold observable cannot have subscription offset "^"`)
		case notation.Unsubscription:
			return nil, errors.New(`cold observable cannot have unsubscription marker "!"`)
		}
	}

	messages, err := ParseMarbles(marbles, values, errValue, s.frameStep)
	if err != nil {
		return nil, err
	}

	return &ColdStream{
		subscriptionLog: subscriptionLog{scheduler: s},
		Marbles:         marbles,
		Values:          values,
		Err:             errValue,
		Messages:        messages,
	}, nil
}

// CreateHotObservable builds a stream playing marbles once from the start of
// the flush.
func (s *Scheduler) CreateHotObservable(marbles string, values Values, errValue error) (*HotStream, error) {
	messages, err := ParseMarbles(marbles, values, errValue, s.frameStep)
	if err != nil {
		return nil, err
	}

	hot := &HotStream{
		subscriptionLog: subscriptionLog{scheduler: s},
		Marbles:         marbles,
		Values:          values,
		Err:             errValue,
		Messages:        messages,
		subject:         NewSubject(),
	}
	s.hot = append(s.hot, hot)
	return hot, nil
}

// ObservableExpectation is the pending comparison created by
// ExpectObservable.
type ObservableExpectation struct {
	scheduler *Scheduler
	window    types.Interval
	test      *flushTest
}

// ExpectObservable subscribes to observable within the window described by
// subscriptionMarbles (the whole flush when empty) and records what it emits.
func (s *Scheduler) ExpectObservable(observable Observable, subscriptionMarbles string) (*ObservableExpectation, error) {
	window, err := ParseSubscription(subscriptionMarbles, s.frameStep)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid subscription diagram")
	}

	actual := s.record(observable, window)
	expectation := &ObservableExpectation{
		scheduler: s,
		window:    window,
		test: &flushTest{
			actual: actual.resultSet,
		},
	}
	s.flushTests = append(s.flushTests, expectation.test)
	return expectation, nil
}

// ToBe expects the notifications described by marbles.
func (e *ObservableExpectation) ToBe(marbles string, values Values, errValue error) error {
	expected, err := ParseMarbles(marbles, values, errValue, e.scheduler.frameStep)
	if err != nil {
		return errors.WithMessage(err, "invalid expected diagram")
	}

	for i, n := range expected {
		if cold, ok := n.Value.(*ColdStream); ok {
			expected[i].Value = cold.Messages
		}
	}

	e.test.ready = true
	e.test.expected = func() types.ResultSet {
		return types.Notifications(expected...)
	}
	return nil
}

// ToEqual expects the notifications other emits within the same window.
func (e *ObservableExpectation) ToEqual(other Observable) {
	expected := e.scheduler.record(other, e.window)
	e.test.ready = true
	e.test.expected = expected.resultSet
}

// Ready marks the expectation for flushing without anything to compare.
func (e *ObservableExpectation) Ready() {
	e.test.ready = true
	e.test.expected = func() types.ResultSet {
		return types.ResultSet{}
	}
}

// SubscriptionExpectation is the pending comparison created by
// ExpectSubscriptions.
type SubscriptionExpectation struct {
	scheduler *Scheduler
	test      *flushTest
}

// ExpectSubscriptions compares the intervals returned by source once the
// flush is over.
func (s *Scheduler) ExpectSubscriptions(source func() []types.Interval) *SubscriptionExpectation {
	expectation := &SubscriptionExpectation{
		scheduler: s,
		test: &flushTest{
			actual: func() types.ResultSet {
				return types.Subscriptions(source()...)
			},
		},
	}
	s.flushTests = append(s.flushTests, expectation.test)
	return expectation
}

// ToBe expects exactly the subscriptions described by marbles, in any order.
// Diagrams without a '^' describe no subscription.
func (e *SubscriptionExpectation) ToBe(marbles ...string) error {
	intervals := make([]types.Interval, 0, len(marbles))
	for i, m := range marbles {
		interval, err := ParseSubscription(m, e.scheduler.frameStep)
		if err != nil {
			return errors.WithMessagef(err, "invalid subscription diagram %d", i)
		}
		if interval.Subscribed == types.Infinite {
			continue
		}
		intervals = append(intervals, interval)
	}

	e.test.ready = true
	e.test.expected = func() types.ResultSet {
		return types.Subscriptions(intervals...)
	}
	return nil
}

// Flush starts the hot streams, runs every event due up to the frame bound,
// then compares every ready expectation in registration order. It returns
// the first failed comparison; the expectations after it are dropped.
func (s *Scheduler) Flush() error {
	hot := s.hot
	s.hot = nil
	for _, h := range hot {
		h.setup()
	}

	s.logger.Log(logging.LevelDebug, "flushing", "hot", len(hot), "pending", s.queue.Len())

	executed := 0
	for {
		event := s.queue.Peek()
		if event == nil || event.Time > s.maxFrames {
			break
		}
		s.queue.ConsumeEvent()
		event.Work()
		executed++
	}

	s.logger.Log(logging.LevelDebug, "flushed", "frame", s.Now(), "executed", executed, "remaining", s.queue.Len())

	tests := s.flushTests
	s.flushTests = nil
	for i, test := range tests {
		if !test.ready {
			s.flushTests = append(s.flushTests, test)
			continue
		}

		if err := s.assert(test.actual(), test.expected()); err != nil {
			s.logger.Log(logging.LevelDebug, "expectation failed", "index", i, "status", s.Status())
			return err
		}
	}

	return nil
}

// recording collects what one subscription observed.
type recording struct {
	notifications []types.Notification
}

func (r *recording) resultSet() types.ResultSet {
	notifications := make([]types.Notification, len(r.notifications))
	for i, n := range r.notifications {
		if inner, ok := n.Value.(*recording); ok {
			n.Value = inner.resultSet().Notifications
		}
		notifications[i] = n
	}
	return types.Notifications(notifications...)
}

// record subscribes to observable during window. Values that are themselves
// observables are recorded too, with frames relative to their arrival.
func (s *Scheduler) record(observable Observable, window types.Interval) *recording {
	result := &recording{}

	subscribeAt := window.Subscribed
	if subscribeAt == types.Infinite {
		subscribeAt = 0
	}

	var subscription *Subscription
	s.queue.Insert("subscribe", func() {
		subscription = observable.Subscribe(s.recordingObserver(result, 0))
	}, subscribeAt)

	if window.Unsubscribed != types.Infinite {
		s.queue.Insert("unsubscribe", func() {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}, window.Unsubscribed)
	}

	return result
}

func (s *Scheduler) recordingObserver(result *recording, origin int64) Observer {
	return Observer{
		Next: func(value interface{}) {
			if inner, ok := value.(Observable); ok {
				innerResult := &recording{}
				inner.Subscribe(s.recordingObserver(innerResult, s.Now()))
				value = innerResult
			}
			result.notifications = append(result.notifications, types.Next(s.Now()-origin, value))
		},
		Error: func(err error) {
			result.notifications = append(result.notifications, types.Error(s.Now()-origin, err))
		},
		Complete: func() {
			result.notifications = append(result.notifications, types.Complete(s.Now()-origin))
		},
	}
}
