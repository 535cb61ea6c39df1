package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/scaffoldcheck/internal/runner"
)

func TestEvaluate(t *testing.T) {
	ok := &runner.Result{Command: "npx tsc --version", Succeeded: true, ExitCode: 0, Stdout: "Version 5.4.5\n"}
	exit := &runner.Result{Command: "npx eslint a.ts", ExitCode: 1, Failure: runner.FailureExit, Stdout: "1 problem"}
	timeout := &runner.Result{Command: "sleep 10", ExitCode: -1, Failure: runner.FailureTimeout, Stderr: "command timed out after 100ms: sleep 10"}
	spawn := &runner.Result{Command: "x", ExitCode: -1, Failure: runner.FailureSpawn, Stderr: "executing sh: not found"}

	tests := []struct {
		name   string
		expect Expect
		res    *runner.Result
		want   []string // substrings, one per failure
	}{
		{"succeed ok", Expect{Outcome: OutcomeSucceed}, ok, nil},
		{"default outcome is succeed", Expect{}, exit, []string{"to succeed, it failed: exit status 1: 1 problem"}},
		{"contains", Expect{Contains: []string{"Version"}}, ok, nil},
		{"contains missing", Expect{Contains: []string{"Version", "tsc"}}, ok, []string{`to contain "tsc"`}},
		{"pattern", Expect{Pattern: `^Version \d+`}, ok, nil},
		{"pattern anchored at start", Expect{Pattern: `^\d+`}, ok, []string{`to match /^\d+/`}},
		{"bad pattern", Expect{Pattern: `(`}, ok, []string{"invalid pattern"}},
		{"fail ok", Expect{Outcome: OutcomeFail}, exit, nil},
		{"fail but succeeded", Expect{Outcome: OutcomeFail}, ok, []string{"to fail, it succeeded"}},
		{"timeout is not a rejection", Expect{Outcome: OutcomeFail}, timeout, []string{"did not run: timeout: command timed out"}},
		{"spawn is not a rejection", Expect{Outcome: OutcomeFail}, spawn, []string{"did not run: spawn"}},
		{"run accepts any exit", Expect{Outcome: OutcomeRun}, exit, nil},
		{"run needs the tool", Expect{Outcome: OutcomeRun}, timeout, []string{"to run, it did not"}},
		{"output checks skipped when not run", Expect{Contains: []string{"x"}, JSON: true}, timeout, []string{"to succeed"}},
		{"json", Expect{Outcome: OutcomeRun, JSON: true}, &runner.Result{Command: "c", Failure: runner.FailureExit, Stdout: " [] \n"}, nil},
		{"json invalid", Expect{Outcome: OutcomeRun, JSON: true}, exit, []string{"to print JSON"}},
		{"unknown outcome", Expect{Outcome: "maybe"}, ok, []string{`unknown outcome "maybe"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.expect.Evaluate(tt.res)
			require.Len(t, got, len(tt.want), "failures = %q", got)
			for i, w := range tt.want {
				assert.Contains(t, got[i], w)
			}
		})
	}
}

func TestScenarioValidate(t *testing.T) {
	valid := []Scenario{
		{Name: "a", Kind: KindExists, Paths: []string{"x"}},
		{Name: "b", Kind: KindStructure, Document: "package.json"},
		{Name: "c", Kind: KindPresence, Command: "node --version"},
		{Name: "d", Kind: KindReject, Command: "eslint {fixture}", Fixture: &Fixture{}},
		{Name: "e", Kind: KindArtifact, Setup: "npm run clean", Output: "dist"},
	}
	for _, sc := range valid {
		assert.NoError(t, sc.Validate(), sc.Name)
	}

	invalid := []Scenario{
		{Kind: KindExists, Paths: []string{"x"}},
		{Name: "a", Kind: KindExists},
		{Name: "b", Kind: KindStructure},
		{Name: "c", Kind: KindProbe},
		{Name: "d", Kind: KindAccept, Command: "tsc {fixture}"},
		{Name: "e", Kind: KindArtifact, Setup: "npm run clean"},
		{Name: "f", Kind: "lint"},
	}
	for _, sc := range invalid {
		assert.Error(t, sc.Validate(), sc.Name)
	}
}
