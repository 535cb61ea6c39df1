package report

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id string) *RunResult {
	return &RunResult{
		ID:       id,
		Root:     "/work/project",
		Started:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration: 2500 * time.Millisecond,
		Scenarios: []ScenarioResult{
			{Name: "layout/files", Description: "required files exist", Kind: "exists", Status: StatusPass},
			{
				Name: "linter/rejects-var", Description: "linter rejects var declarations", Kind: "reject",
				Status: StatusFail, Command: "npx eslint src/bad.ts", ExitCode: 0,
				Failures: []string{"expected the tool to fail, it succeeded"},
				Stdout:   "all good",
			},
			{
				Name: "compiler/accepts-valid", Kind: "accept", Status: StatusUnavailable,
				Failures: []string{"npx is required but not installed"},
				Diagnostics: []Diagnostic{
					{Tool: "compiler", File: "src/valid-1234.ts", Line: 3, Col: 7, Rule: "TS2322", Message: "Type 'number' is not assignable"},
				},
			},
		},
	}
}

func TestSummary(t *testing.T) {
	s := sampleRun("r").Summary()
	assert.Equal(t, Summary{Total: 3, Pass: 1, Fail: 1, Unavailable: 1}, s)
}

func TestPassed(t *testing.T) {
	r := &RunResult{Scenarios: []ScenarioResult{{Name: "a", Status: StatusPass}}}
	assert.True(t, r.Passed())

	r.Residue = []string{"src/leftover.ts"}
	assert.False(t, r.Passed(), "residue fails the run")

	assert.False(t, sampleRun("r").Passed())
}

func TestScenarioLookup(t *testing.T) {
	r := sampleRun("r")
	sc, ok := r.Scenario("linter/rejects-var")
	require.True(t, ok)
	assert.Equal(t, "reject", sc.Kind)

	_, ok = r.Scenario("linter/missing")
	assert.False(t, ok)
}

func TestByPrefix(t *testing.T) {
	r := sampleRun("r")
	assert.Len(t, ByPrefix(r, "linter"), 1)
	assert.Len(t, ByPrefix(r, "linter/"), 1)
	assert.Len(t, ByPrefix(r, "linter/rejects-var"), 1)
	assert.Empty(t, ByPrefix(r, "lint"))
}

func TestByFile(t *testing.T) {
	r := sampleRun("r")
	assert.Len(t, ByFile(r, "src/valid-1234.ts"), 1)
	assert.Len(t, ByFile(r, "valid-1234.ts"), 1)
	assert.Empty(t, ByFile(r, "src/other.ts"))
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{File: "src/a.ts", Line: 1, Col: 5, Rule: "no-var", Message: "Unexpected var"}
	assert.Equal(t, "src/a.ts:1:5: [no-var] Unexpected var", d.String())
	assert.Equal(t, "src/b.ts: Code style issues", Diagnostic{File: "src/b.ts", Message: "Code style issues"}.String())
}

func TestDiskStore_RoundTrip(t *testing.T) {
	s := NewDiskStore("")
	t.Cleanup(func() { _ = s.Close() })

	in := sampleRun("run-1")
	require.NoError(t, s.Save(in))

	out, err := s.Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, in.Root, out.Root)
	assert.Equal(t, in.Duration, out.Duration)
	assert.True(t, in.Started.Equal(out.Started))
	assert.Equal(t, in.Scenarios, out.Scenarios)
}

func TestDiskStore_Errors(t *testing.T) {
	s := NewDiskStore("")
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.Load("../escape")
	assert.ErrorContains(t, err, "invalid run id")
	assert.ErrorContains(t, s.Save(&RunResult{ID: "a/b"}), "invalid run id")
}

func TestDiskStore_TempDirRemoved(t *testing.T) {
	s := NewDiskStore("")
	require.NoError(t, s.Save(sampleRun("run-1")))
	dir, err := s.Dir()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "run-1.json"))

	require.NoError(t, s.Close())
	assert.NoDirExists(t, dir)
}

func TestDiskStore_ExplicitDirKept(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")

	s := NewDiskStore(dir)
	require.NoError(t, s.Save(sampleRun("run-1")))
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "run-1.json"))

	// A later process sees the same runs.
	out, err := NewDiskStore(dir).Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.ID)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

type countingStore struct {
	runs  map[string]*RunResult
	loads int
}

func (c *countingStore) Save(r *RunResult) error {
	if c.runs == nil {
		c.runs = map[string]*RunResult{}
	}
	c.runs[r.ID] = r
	return nil
}

func (c *countingStore) Load(id string) (*RunResult, error) {
	c.loads++
	r, ok := c.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func TestLRUStore(t *testing.T) {
	back := &countingStore{}
	s := NewLRUStore(2, back)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(&RunResult{ID: id}))
	}
	assert.Equal(t, "c", s.Latest())

	// b and c are cached
	_, err := s.Load("b")
	require.NoError(t, err)
	assert.Equal(t, 0, back.loads)

	// a was evicted and comes from the backing store
	r, err := s.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "a", r.ID)
	assert.Equal(t, 1, back.loads)

	// loading a evicted c, the least recently used
	_, err = s.Load("c")
	require.NoError(t, err)
	assert.Equal(t, 2, back.loads)

	_, err = s.Load("zzz")
	assert.Error(t, err)
}

func TestFormatText(t *testing.T) {
	out := FormatText(sampleRun("r"), true)

	assert.True(t, strings.HasPrefix(out, "FAIL\n"))
	assert.Contains(t, out, "layout/files")
	assert.Contains(t, out, "linter/rejects-var: linter rejects var declarations")
	assert.Contains(t, out, "expected the tool to fail, it succeeded")
	assert.Contains(t, out, "$ npx eslint src/bad.ts")
	assert.Contains(t, out, "    all good")
	assert.Contains(t, out, "src/valid-1234.ts:3:7: [TS2322]")
	assert.Contains(t, out, "3 scenarios: 1 passed, 1 failed, 1 unavailable, 0 errors (2.5s)")
}

func TestFormatText_AllPass(t *testing.T) {
	r := &RunResult{Scenarios: []ScenarioResult{{Name: "layout/files", Status: StatusPass}}}
	out := FormatText(r, false)
	assert.True(t, strings.HasPrefix(out, "ok\n"))
	assert.NotContains(t, out, "FAIL")
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(&buf, sampleRun("r"), false)
	out := buf.String()

	assert.Contains(t, out, "Scaffold validation")
	assert.Contains(t, out, "linter/rejects-var")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "1/3")
}
