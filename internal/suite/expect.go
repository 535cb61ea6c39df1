package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/deixis/scaffoldcheck/internal/runner"
)

// Outcome is the required exit behaviour of a command.
type Outcome string

const (
	// OutcomeSucceed requires exit code 0.
	OutcomeSucceed Outcome = "succeed"
	// OutcomeFail requires the tool to run and exit non-zero. A command
	// that timed out or could not be started is not a rejection.
	OutcomeFail Outcome = "fail"
	// OutcomeRun requires the tool to run to completion with any exit code.
	OutcomeRun Outcome = "run"
)

// Expect describes what a command result must look like.
type Expect struct {
	Outcome  Outcome
	Contains []string // substrings of stdout
	Pattern  string   // regular expression matched against stdout
	JSON     bool     // stdout must be a single JSON document
	Artifact string   // root-relative path that must exist afterwards
}

// Evaluate returns one message per unmet expectation; nil means res
// satisfies e. Artifact is checked by the suite, which knows the root.
func (e Expect) Evaluate(res *runner.Result) []string {
	var failures []string

	switch e.Outcome {
	case OutcomeSucceed, "":
		if !res.Succeeded {
			failures = append(failures, fmt.Sprintf("expected `%s` to succeed, it failed: %s", res.Command, why(res)))
		}
	case OutcomeFail:
		if res.Succeeded {
			failures = append(failures, fmt.Sprintf("expected `%s` to fail, it succeeded", res.Command))
		} else if !res.Ran() {
			failures = append(failures, fmt.Sprintf("expected `%s` to reject the input, but it did not run: %s", res.Command, why(res)))
		}
	case OutcomeRun:
		if !res.Ran() {
			failures = append(failures, fmt.Sprintf("expected `%s` to run, it did not: %s", res.Command, why(res)))
		}
	default:
		failures = append(failures, fmt.Sprintf("unknown outcome %q", e.Outcome))
	}

	// Output checks are meaningless for a tool that never ran.
	if !res.Ran() {
		return failures
	}

	for _, want := range e.Contains {
		if !strings.Contains(res.Stdout, want) {
			failures = append(failures, fmt.Sprintf("expected output of `%s` to contain %q, got %q", res.Command, want, excerpt(res.Stdout)))
		}
	}
	if e.Pattern != "" {
		re, err := regexp.Compile(e.Pattern)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("invalid pattern %q: %v", e.Pattern, err))
		case !re.MatchString(res.Stdout):
			failures = append(failures, fmt.Sprintf("expected output of `%s` to match /%s/, got %q", res.Command, e.Pattern, excerpt(res.Stdout)))
		}
	}
	if e.JSON && !json.Valid(bytes.TrimSpace([]byte(res.Stdout))) {
		failures = append(failures, fmt.Sprintf("expected `%s` to print JSON, got %q", res.Command, excerpt(res.Stdout)))
	}
	return failures
}

// why summarises a failed result in one line.
func why(res *runner.Result) string {
	msg := firstLine(res.Stderr)
	if msg == "" {
		msg = firstLine(res.Stdout)
	}
	switch res.Failure {
	case runner.FailureExit:
		return fmt.Sprintf("exit status %d: %s", res.ExitCode, msg)
	case runner.FailureNone:
		return msg
	default:
		return fmt.Sprintf("%s: %s", res.Failure, msg)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func excerpt(s string) string {
	const limit = 120
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
