/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// marblecat renders recorded stream results as marble diagrams and compares
// two recordings the way the marble matchers do.
//
// A recording is a YAML list of notification records
//
//	- {frame: 30, kind: N, value: b}
//	- {frame: 40, kind: C}
//
// or of subscription records
//
//	- {subscribedFrame: 20, unsubscribedFrame: 50}
//	- {subscribedFrame: 30}
//
// An error record without an error message stands for the default error
// drawn as '#'. A missing unsubscribed frame means the subscription is still
// open.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperledger-labs/mirmarbles/pkg/assertion"
	"github.com/hyperledger-labs/mirmarbles/pkg/logging"
	"github.com/hyperledger-labs/mirmarbles/pkg/marblizer"
	"github.com/hyperledger-labs/mirmarbles/pkg/notation"
	"github.com/hyperledger-labs/mirmarbles/pkg/types"
)

type arguments struct {
	command   string
	input     io.ReadCloser
	actual    io.ReadCloser
	expected  io.ReadCloser
	frameStep int64
	logLevel  logging.LogLevel
}

// readRecording decodes one YAML recording into a result set.
func readRecording(input io.Reader) (types.ResultSet, error) {
	var records []interface{}
	err := yaml.NewDecoder(input).Decode(&records)
	switch {
	case err == io.EOF:
		// An empty file is an empty recording.
	case err != nil:
		return types.ResultSet{}, errors.WithMessage(err, "could not decode recording")
	}

	return types.Untagged(records, notation.DefaultError)
}

func (a *arguments) encoder() marblizer.Encoder {
	return marblizer.Encoder{FrameStep: a.frameStep}
}

func (a *arguments) execute(output, logOutput io.Writer) error {
	logger := logging.NewConsoleLogger(logOutput, a.logLevel)

	switch a.command {
	case "render":
		defer a.input.Close()
		return a.render(output, logger)
	case "compare":
		defer a.actual.Close()
		defer a.expected.Close()
		return a.compare(output, logger)
	default:
		return errors.Errorf("unknown command %q", a.command)
	}
}

func (a *arguments) render(output io.Writer, logger logging.Logger) error {
	recording, err := readRecording(a.input)
	if err != nil {
		return errors.WithMessage(err, "bad input file")
	}

	logger.Log(logging.LevelDebug, "read recording", "kind", recording.Kind, "records", recording.Len())

	encoder := a.encoder()
	if recording.Kind == types.SubscriptionSet {
		for _, marbles := range encoder.Subscriptions(recording.Subscriptions) {
			fmt.Fprintln(output, marbles)
		}
		return nil
	}

	if encoder.Marblizable(recording.Notifications) {
		fmt.Fprintln(output, encoder.Notifications(recording.Notifications))
		return nil
	}

	// Values or errors which cannot be drawn are listed one per line.
	logger.Log(logging.LevelInfo, "recording cannot be drawn as a marble diagram, listing notifications")
	for _, notification := range recording.Notifications {
		fmt.Fprintln(output, notification.String())
	}
	return nil
}

func (a *arguments) compare(output io.Writer, logger logging.Logger) error {
	actual, err := readRecording(a.actual)
	if err != nil {
		return errors.WithMessage(err, "bad actual file")
	}

	expected, err := readRecording(a.expected)
	if err != nil {
		return errors.WithMessage(err, "bad expected file")
	}

	logger.Log(logging.LevelDebug, "comparing recordings", "actual", actual.Len(), "expected", expected.Len())

	comparator := assertion.Comparator{Encoder: a.encoder()}
	if err := comparator.AssertDeepEqual(actual, expected); err != nil {
		fmt.Fprintln(output, err.Error())
		return errors.New("recordings differ")
	}

	fmt.Fprintln(output, "ok")
	return nil
}

func parseArgs(args []string) (*arguments, error) {
	app := kingpin.New("marblecat", "Utility for drawing and comparing recorded stream results.")
	frameStep := app.Flag("frameStep", "The number of frames one diagram column spans.").Default("10").Int64()
	logLevel := app.Flag("logLevel", "The level at which to log to stderr.").Default("warn").Enum("debug", "info", "warn", "error")

	render := app.Command("render", "Draw a recording as marble diagrams.")
	input := render.Flag("input", "The recording to read (defaults to stdin).").Default(os.Stdin.Name()).File()

	compare := app.Command("compare", "Compare two recordings.")
	actual := compare.Flag("actual", "The recording which was observed.").Required().File()
	expected := compare.Flag("expected", "The recording which was expected.").Required().File()

	command, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	if *frameStep <= 0 {
		return nil, errors.Errorf("frame step must be positive, got %d", *frameStep)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return nil, err
	}

	parsed := &arguments{
		command:   command,
		frameStep: *frameStep,
		logLevel:  level,
	}

	switch command {
	case render.FullCommand():
		parsed.input = *input
	case compare.FullCommand():
		parsed.actual = *actual
		parsed.expected = *expected
	}

	return parsed, nil
}

func main() {
	kingpin.Version("0.0.1")
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}
	err = args.execute(os.Stdout, os.Stderr)
	if err != nil {
		kingpin.Fatalf("%s", err)
	}
}
