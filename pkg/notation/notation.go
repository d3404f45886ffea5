/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package notation holds the marble alphabet shared by the encoder and the
// virtual-time scheduler. One symbol is one column, and one column spans
// FrameStep virtual frames.
package notation

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	TimeFrame      = '-'
	Subscription   = '^'
	Unsubscription = '!'
	Completion     = '|'
	Failure        = '#'
	GroupStart     = '('
	GroupEnd       = ')'
)

// DefaultFrameStep is the number of virtual frames covered by one column.
const DefaultFrameStep int64 = 10

// DefaultError is the payload of an unparameterized '#'. It is the only error
// value that may be rendered as '#' when compacting notifications.
var DefaultError = errors.New("error")

// MisalignedFrameError reports a frame delta that is not a whole number of
// columns.
type MisalignedFrameError struct {
	Delta int64
	Step  int64
}

func (e *MisalignedFrameError) Error() string {
	return fmt.Sprintf("frame delta %d is not a multiple of the frame step %d", e.Delta, e.Step)
}

// Columns converts a frame delta into a column count. A delta that does not
// divide evenly by step corrupts the time axis, so it panics with a
// *MisalignedFrameError instead of rounding.
func Columns(delta, step int64) int {
	if step <= 0 {
		panic(errors.Errorf("frame step must be positive, got %d", step))
	}

	if delta%step != 0 {
		panic(&MisalignedFrameError{Delta: delta, Step: step})
	}

	return int(delta / step)
}

// Aligned reports whether frame sits on a column boundary.
func Aligned(frame, step int64) bool {
	return step > 0 && frame%step == 0
}

// IsReserved reports whether r has a meaning other than a value literal.
func IsReserved(r rune) bool {
	switch r {
	case TimeFrame, Subscription, Unsubscription, Completion, Failure, GroupStart, GroupEnd, ' ':
		return true
	default:
		return false
	}
}

// Gap renders n columns of elapsed time.
func Gap(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(TimeFrame), n)
}

// StripAlignment removes the whitespace used to line up parallel diagrams in
// source code. It never touches inner characters, so timing is preserved.
func StripAlignment(marbles string) string {
	return strings.TrimSpace(marbles)
}
