/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package marbles is the test-facing surface: a per-test Context owning a
// virtual-time scheduler, and gomega matchers which compare streams against
// marble diagrams once the context is flushed.
//
//	ctx := marbles.NewContext()
//	Expect(ctx.Cold("--a-b|")).To(ctx.BeMarble("--a-b|"))
//	Expect(ctx.Flush()).To(Succeed())
package marbles

import (
	"github.com/pkg/errors"

	"github.com/hyperledger-labs/mirmarbles/pkg/assertion"
	"github.com/hyperledger-labs/mirmarbles/pkg/flush"
	"github.com/hyperledger-labs/mirmarbles/pkg/logging"
	"github.com/hyperledger-labs/mirmarbles/pkg/marblizer"
	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/testscheduler"
)

// ErrNotInitialized is the panic value when a context is used after its
// flush, or without NewContext.
var ErrNotInitialized = errors.New("marble context is not initialized, create one per test with NewContext")

type ContextOpt interface{}

type frameStepOpt int64

// FrameStepOpt sets how many frames one diagram column spans.
func FrameStepOpt(step int64) ContextOpt {
	return frameStepOpt(step)
}

type maxFramesOpt int64

// MaxFramesOpt bounds how far Flush advances virtual time.
func MaxFramesOpt(frames int64) ContextOpt {
	return maxFramesOpt(frames)
}

type loggerOpt struct {
	logger logging.Logger
}

func LoggerOpt(logger logging.Logger) ContextOpt {
	return loggerOpt{logger: logger}
}

// Context is the virtual time of a single test. It is not safe for
// concurrent use.
type Context struct {
	scheduler *testscheduler.Scheduler
	registry  *flush.Registry
	logger    logging.Logger
}

func NewContext(opts ...ContextOpt) *Context {
	step := notation.DefaultFrameStep
	logger := logging.NilLogger
	var schedulerOpts []testscheduler.SchedulerOpt

	for _, opt := range opts {
		switch v := opt.(type) {
		case frameStepOpt:
			step = int64(v)
		case maxFramesOpt:
			schedulerOpts = append(schedulerOpts, testscheduler.MaxFramesOpt(int64(v)))
		case loggerOpt:
			logger = v.logger
		}
	}

	comparator := assertion.Comparator{
		Encoder: marblizer.Encoder{FrameStep: step},
	}

	schedulerOpts = append(schedulerOpts,
		testscheduler.FrameStepOpt(step),
		testscheduler.LoggerOpt(logging.Decorate(logger, "scheduler: ")),
	)

	return &Context{
		scheduler: testscheduler.NewScheduler(comparator.AssertDeepEqual, schedulerOpts...),
		registry:  &flush.Registry{},
		logger:    logger,
	}
}

func (c *Context) active() *testscheduler.Scheduler {
	if c == nil || c.scheduler == nil {
		panic(ErrNotInitialized)
	}
	return c.scheduler
}

// Scheduler exposes the underlying scheduler, for expectations the matchers
// do not cover.
func (c *Context) Scheduler() *testscheduler.Scheduler {
	return c.active()
}

type MarbleOpt interface{}

type valuesOpt testscheduler.Values

// ValuesOpt maps the value literals of a diagram to the values they stand for.
func ValuesOpt(values map[string]interface{}) MarbleOpt {
	return valuesOpt(values)
}

type errorOpt struct {
	err error
}

// ErrorOpt sets the error a '#' stands for.
func ErrorOpt(err error) MarbleOpt {
	return errorOpt{err: err}
}

func marbleOpts(opts []MarbleOpt) (testscheduler.Values, error) {
	var (
		values testscheduler.Values
		err    error
	)

	for _, opt := range opts {
		switch v := opt.(type) {
		case valuesOpt:
			values = testscheduler.Values(v)
		case errorOpt:
			err = v.err
		}
	}

	return values, err
}

// Cold creates a stream replaying marbles for every subscriber. It panics if
// the diagram is malformed.
func (c *Context) Cold(marbles string, opts ...MarbleOpt) *testscheduler.ColdStream {
	values, errValue := marbleOpts(opts)
	stream, err := c.active().CreateColdObservable(notation.StripAlignment(marbles), values, errValue)
	if err != nil {
		panic(errors.WithMessagef(err, "invalid cold diagram %q", marbles))
	}
	return stream
}

// Hot creates a stream playing marbles once from the start of the flush. It
// panics if the diagram is malformed.
func (c *Context) Hot(marbles string, opts ...MarbleOpt) *testscheduler.HotStream {
	values, errValue := marbleOpts(opts)
	stream, err := c.active().CreateHotObservable(notation.StripAlignment(marbles), values, errValue)
	if err != nil {
		panic(errors.WithMessagef(err, "invalid hot diagram %q", marbles))
	}
	return stream
}

// Time returns the frame of the '|' in marbles. It panics if there is none.
func (c *Context) Time(marbles string) int64 {
	frames, err := c.active().CreateTime(notation.StripAlignment(marbles))
	if err != nil {
		panic(errors.WithMessagef(err, "invalid time diagram %q", marbles))
	}
	return frames
}

// Schedule runs work after delay frames of virtual time.
func (c *Context) Schedule(work func(), delay int64) *testscheduler.Subscription {
	return c.active().Schedule(work, delay)
}

// Flush runs the virtual time to completion, checks every expectation in the
// order they were made and then runs the callbacks registered with
// SatisfyOnFlush. The context cannot be used afterwards, whether or not the
// flush succeeded. A callback failing through a panic, as gomega's Fail does
// under ginkgo, propagates to the caller.
func (c *Context) Flush() error {
	scheduler := c.active()
	defer c.reset()

	if err := scheduler.Flush(); err != nil {
		c.logger.Log(logging.LevelDebug, "flush failed", "err", err.Error())
		return err
	}

	c.logger.Log(logging.LevelDebug, "draining flush callbacks", "count", c.registry.Len())
	c.registry.Drain()
	return nil
}

func (c *Context) reset() {
	c.registry.Reset()
	c.scheduler = nil
}
