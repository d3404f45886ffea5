/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assertion

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

// Mismatch is the failure returned when an actual result set is not
// equivalent to the expected one.
type Mismatch struct {
	// Matcher names the comparison which failed.
	Matcher string

	// Expected and Actual are the rendered forms which were compared, either
	// marble diagrams or raw dumps.
	Expected string
	Actual   string

	// Diff is a unified diff from Expected to Actual, empty when the failure
	// is not about content.
	Diff string

	Message string
}

func (m *Mismatch) Error() string {
	return m.Message
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func dump(v interface{}) string {
	return strings.TrimRight(dumper.Sdump(v), "\n")
}

func unifiedDiff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected + "\n"),
		B:        difflib.SplitLines(actual + "\n"),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("could not compute difference: %s", err)
	}
	return diff
}

func indent(s string) string {
	return "  " + strings.Replace(s, "\n", "\n  ", -1)
}

func contentMismatch(matcher, headline, expected, actual string) *Mismatch {
	diff := unifiedDiff(expected, actual)
	return &Mismatch{
		Matcher:  matcher,
		Expected: expected,
		Actual:   actual,
		Diff:     diff,
		Message: fmt.Sprintf("%s:\n%s\nBut got:\n%s\n\nDifference:\n\n%s",
			headline, indent(expected), indent(actual), diff),
	}
}
