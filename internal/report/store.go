// Package report holds the outcome of a validation run and the stores
// that keep runs around for later drill-down.
package report

import (
	"strings"
	"time"
)

// Status is the outcome of one scenario.
type Status string

const (
	// StatusPass means every expectation held.
	StatusPass Status = "pass"
	// StatusFail means at least one expectation did not hold.
	StatusFail Status = "fail"
	// StatusUnavailable means a required tool is not installed.
	StatusUnavailable Status = "unavailable"
	// StatusError means the harness itself failed (fixture write, panic).
	StatusError Status = "error"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult is the outcome of one run over a project.
type RunResult struct {
	ID        string           `json:"id"`
	Root      string           `json:"root"`
	Started   time.Time        `json:"started"`
	Duration  time.Duration    `json:"duration"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Residue   []string         `json:"residue,omitempty"` // fixtures left on disk after cleanup
}

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Kind        string        `json:"kind"`
	Status      Status        `json:"status"`
	Failures    []string      `json:"failures,omitempty"`
	Command     string        `json:"command,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Truncated   bool          `json:"truncated,omitempty"`
	Fixture     string        `json:"fixture,omitempty"`
	Duration    time.Duration `json:"duration"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// Diagnostic is one finding a tool reported about a fixture or the project.
type Diagnostic struct {
	Tool     string `json:"tool"` // compiler, linter, formatter
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Col      int    `json:"col,omitempty"`
	Rule     string `json:"rule,omitempty"` // e.g. no-var, TS2322
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

// Summary counts scenarios by status.
type Summary struct {
	Total       int `json:"total"`
	Pass        int `json:"pass"`
	Fail        int `json:"fail"`
	Unavailable int `json:"unavailable"`
	Error       int `json:"error"`
}

// Summary counts the run's scenarios by status.
func (r *RunResult) Summary() Summary {
	s := Summary{Total: len(r.Scenarios)}
	for _, sc := range r.Scenarios {
		switch sc.Status {
		case StatusPass:
			s.Pass++
		case StatusFail:
			s.Fail++
		case StatusUnavailable:
			s.Unavailable++
		case StatusError:
			s.Error++
		}
	}
	return s
}

// Passed reports whether every scenario passed and no fixture survived.
func (r *RunResult) Passed() bool {
	for _, sc := range r.Scenarios {
		if sc.Status != StatusPass {
			return false
		}
	}
	return len(r.Residue) == 0
}

// Scenario returns the named scenario result.
func (r *RunResult) Scenario(name string) (*ScenarioResult, bool) {
	for i := range r.Scenarios {
		if r.Scenarios[i].Name == name {
			return &r.Scenarios[i], true
		}
	}
	return nil, false
}

// ByPrefix returns the scenarios whose name equals prefix or starts with
// prefix followed by "/", e.g. "linter" or "linter/rejects-var".
func ByPrefix(result *RunResult, prefix string) []ScenarioResult {
	prefix = strings.TrimSuffix(prefix, "/")
	var out []ScenarioResult
	for _, sc := range result.Scenarios {
		if sc.Name == prefix || strings.HasPrefix(sc.Name, prefix+"/") {
			out = append(out, sc)
		}
	}
	return out
}

// ByFile returns every diagnostic reported against file, across scenarios.
func ByFile(result *RunResult, file string) []Diagnostic {
	var out []Diagnostic
	for _, sc := range result.Scenarios {
		for _, d := range sc.Diagnostics {
			if d.File == file || strings.HasSuffix(d.File, "/"+file) {
				out = append(out, d)
			}
		}
	}
	return out
}
