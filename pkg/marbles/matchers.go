/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package marbles

import (
	"fmt"

	"github.com/onsi/gomega/types"
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/testscheduler"
	mtypes "github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// SubscriptionSource is a stream which logs who subscribed to it and when,
// such as the streams returned by Cold and Hot.
type SubscriptionSource interface {
	Subscriptions() []mtypes.Interval
}

// deferredMatcher registers its expectation with the context when matched and
// always succeeds; the comparison happens in Flush.
type deferredMatcher struct {
	name     string
	ctx      *Context
	register func(scheduler *testscheduler.Scheduler, actual interface{}) error
}

func (m *deferredMatcher) Match(actual interface{}) (bool, error) {
	if err := m.register(m.ctx.active(), actual); err != nil {
		return false, errors.WithMessage(err, m.name)
	}
	return true, nil
}

func (m *deferredMatcher) FailureMessage(actual interface{}) string {
	return fmt.Sprintf("%s is checked when the context is flushed", m.name)
}

func (m *deferredMatcher) NegatedFailureMessage(actual interface{}) string {
	return fmt.Sprintf("%s is checked when the context is flushed and cannot be negated", m.name)
}

func observableOf(actual interface{}) (testscheduler.Observable, error) {
	observable, ok := actual.(testscheduler.Observable)
	if !ok {
		return nil, errors.Errorf("expected an observable, got %T", actual)
	}
	return observable, nil
}

func subscriptionWindow(subscription []string) (string, error) {
	switch len(subscription) {
	case 0:
		return "", nil
	case 1:
		return notation.StripAlignment(subscription[0]), nil
	default:
		return "", errors.Errorf("expected at most one subscription diagram, got %d", len(subscription))
	}
}

// BeObservable expects the actual stream to emit what expected emits. Both
// are subscribed at the start of virtual time, or during the window given by
// a subscription diagram.
func (c *Context) BeObservable(expected testscheduler.Observable, subscription ...string) types.GomegaMatcher {
	return &deferredMatcher{
		name: "BeObservable",
		ctx:  c,
		register: func(scheduler *testscheduler.Scheduler, actual interface{}) error {
			observable, err := observableOf(actual)
			if err != nil {
				return err
			}

			window, err := subscriptionWindow(subscription)
			if err != nil {
				return err
			}

			expectation, err := scheduler.ExpectObservable(observable, window)
			if err != nil {
				return err
			}
			expectation.ToEqual(expected)
			return nil
		},
	}
}

// BeMarble expects the actual stream to emit what marbles describes. Values
// given with ValuesOpt may be gomega matchers.
func (c *Context) BeMarble(marbles string, opts ...MarbleOpt) types.GomegaMatcher {
	return &deferredMatcher{
		name: "BeMarble",
		ctx:  c,
		register: func(scheduler *testscheduler.Scheduler, actual interface{}) error {
			observable, err := observableOf(actual)
			if err != nil {
				return err
			}

			expectation, err := scheduler.ExpectObservable(observable, "")
			if err != nil {
				return err
			}

			values, errValue := marbleOpts(opts)
			return expectation.ToBe(notation.StripAlignment(marbles), values, errValue)
		},
	}
}

// HaveSubscriptions expects the actual stream to have been subscribed exactly
// as the diagrams describe, in any order. Without diagrams it expects no
// subscription at all.
func (c *Context) HaveSubscriptions(marbles ...string) types.GomegaMatcher {
	return &deferredMatcher{
		name: "HaveSubscriptions",
		ctx:  c,
		register: func(scheduler *testscheduler.Scheduler, actual interface{}) error {
			source, ok := actual.(SubscriptionSource)
			if !ok {
				return errors.Errorf("expected a stream logging its subscriptions, got %T", actual)
			}

			stripped := make([]string, len(marbles))
			for i, m := range marbles {
				stripped[i] = notation.StripAlignment(m)
			}

			return scheduler.ExpectSubscriptions(source.Subscriptions).ToBe(stripped...)
		},
	}
}

// HaveNoSubscriptions expects the actual stream never to have been
// subscribed.
func (c *Context) HaveNoSubscriptions() types.GomegaMatcher {
	matcher := c.HaveSubscriptions().(*deferredMatcher)
	matcher.name = "HaveNoSubscriptions"
	return matcher
}

// SatisfyOnFlush subscribes to the actual stream and runs callback once the
// context has been flushed and every other expectation has passed.
func (c *Context) SatisfyOnFlush(callback func()) types.GomegaMatcher {
	return &deferredMatcher{
		name: "SatisfyOnFlush",
		ctx:  c,
		register: func(scheduler *testscheduler.Scheduler, actual interface{}) error {
			observable, err := observableOf(actual)
			if err != nil {
				return err
			}

			expectation, err := scheduler.ExpectObservable(observable, "")
			if err != nil {
				return err
			}
			expectation.Ready()
			c.registry.Register(callback)
			return nil
		},
	}
}
