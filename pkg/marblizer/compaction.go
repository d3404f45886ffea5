/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package marblizer

import (
	"sort"
	"unicode/utf8"

	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

// Compaction is the outcome of deciding how two notification sequences are
// compared.
type Compaction int

const (
	// Structural compares the raw notifications.
	Structural Compaction = iota
	// Compact compares the rendered marble diagrams.
	Compact
)

func (c Compaction) String() string {
	if c == Compact {
		return "Compact"
	}
	return "Structural"
}

// Decide returns Compact only when both sides can be rendered without losing
// information. A single side is never compacted.
func Decide(actual, expected []types.Notification) Compaction {
	return defaultEncoder.Decide(actual, expected)
}

// Decide applies the same rule as the package-level Decide with e's frame
// step.
func (e Encoder) Decide(actual, expected []types.Notification) Compaction {
	if e.Marblizable(actual) && e.Marblizable(expected) {
		return Compact
	}
	return Structural
}

// Marblizable reports whether seq renders to a diagram that identifies it.
// Every value must be a single non-reserved character, the only error allowed
// is notation.DefaultError, and every group must fit on the time axis after
// the previous one.
func (e Encoder) Marblizable(seq []types.Notification) bool {
	for _, n := range seq {
		if !marblizableEntry(n) {
			return false
		}
	}
	return e.fitsTimeline(seq)
}

func marblizableEntry(n types.Notification) bool {
	switch n.Kind {
	case types.KindComplete:
		return true
	case types.KindError:
		return n.Err == notation.DefaultError
	case types.KindNext:
		s, ok := n.Value.(string)
		if !ok || utf8.RuneCountInString(s) != 1 {
			return false
		}
		r, _ := utf8.DecodeRuneInString(s)
		return !notation.IsReserved(r)
	default:
		return false
	}
}

func (e Encoder) fitsTimeline(seq []types.Notification) bool {
	step := e.step()
	sizes := map[int64]int{}
	frames := []int64{}
	for _, n := range seq {
		if n.Frame < 0 || !notation.Aligned(n.Frame, step) {
			return false
		}
		if _, ok := sizes[n.Frame]; !ok {
			frames = append(frames, n.Frame)
		}
		sizes[n.Frame]++
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })

	column := 0
	for _, frame := range frames {
		start := int(frame / step)
		if start < column {
			return false
		}
		width := sizes[frame]
		if width > 1 {
			width += 2
		}
		column = start + width
	}
	return true
}
