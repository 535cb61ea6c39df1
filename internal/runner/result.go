package runner

import "time"

// Failure classifies why a command did not succeed.
type Failure string

const (
	FailureNone        Failure = ""
	FailureExit        Failure = "exit"        // process ran and exited non-zero
	FailureUnavailable Failure = "unavailable" // shell reported command not found (127)
	FailureTimeout     Failure = "timeout"     // killed after the timeout expired
	FailureCanceled    Failure = "canceled"    // caller's context was canceled
	FailureSpawn       Failure = "spawn"       // process could not be started
)

// Result holds the normalised outcome of one command.
type Result struct {
	RunID     string        // unique identifier for this invocation
	Command   string        // command line as given to the shell
	Stdout    string        // captured stdout (may be truncated)
	Stderr    string        // captured stderr, or a diagnostic when none was captured
	Succeeded bool          // true iff the process exited with code 0
	ExitCode  int           // -1 when the process did not exit on its own
	Failure   Failure       // FailureNone when Succeeded
	Truncated bool          // true if output exceeded the size cap
	Duration  time.Duration // wall-clock time including teardown
}

// Ran reports whether the tool itself ran to completion, whatever its exit
// code. It separates "tool reported failure" from "harness could not run
// the tool".
func (r *Result) Ran() bool {
	return r.Failure == FailureNone || r.Failure == FailureExit
}

// Output returns stdout and stderr joined for substring checks.
func (r *Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}
