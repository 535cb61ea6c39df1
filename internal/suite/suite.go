package suite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/deixis/scaffoldcheck/internal/fixture"
	"github.com/deixis/scaffoldcheck/internal/manifest"
	"github.com/deixis/scaffoldcheck/internal/report"
	"github.com/deixis/scaffoldcheck/internal/runner"
)

// CommandRunner executes shell commands in the project root.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, command string, opts runner.Options) *runner.Result
}

// Suite executes scenarios against one project. A Suite is built per run;
// it caches parsed documents for the lifetime of that run.
type Suite struct {
	Root       string
	Runner     CommandRunner
	Fixtures   *fixture.Manager
	FixtureExt string // appended to fixture names, e.g. ".ts"
	Parallel   int    // bound on concurrently running shareable scenarios
	Logger     zerolog.Logger

	mu   sync.Mutex
	docs map[string]docEntry
}

type docEntry struct {
	doc *manifest.Document
	err error
}

// Preload parses every document referenced by a structure scenario. A
// malformed document is returned as *manifest.ParseError; missing
// documents are left for the scenario to report.
func (s *Suite) Preload(scenarios []Scenario) error {
	for _, sc := range scenarios {
		if sc.Kind != KindStructure {
			continue
		}
		if _, err := s.document(sc.Document); err != nil {
			var pe *manifest.ParseError
			if errors.As(err, &pe) {
				return err
			}
		}
	}
	return nil
}

func (s *Suite) document(path string) (*manifest.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.docs[path]; ok {
		return e.doc, e.err
	}
	doc, err := manifest.Load(s.Root, path)
	if s.docs == nil {
		s.docs = make(map[string]docEntry)
	}
	s.docs[path] = docEntry{doc: doc, err: err}
	return doc, err
}

// Run executes scenarios and returns their results in input order.
// Shareable scenarios run first, up to Parallel at a time; exclusive
// scenarios then run one by one. Scenario failures never abort the run;
// only a malformed document does.
func (s *Suite) Run(ctx context.Context, scenarios []Scenario) (*report.RunResult, error) {
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	if err := s.Preload(scenarios); err != nil {
		return nil, err
	}

	run := &report.RunResult{
		ID:        uuid.New().String(),
		Root:      s.Root,
		Started:   time.Now(),
		Scenarios: make([]report.ScenarioResult, len(scenarios)),
	}
	log := s.Logger.With().Str("run_id", run.ID).Logger()
	log.Debug().Int("scenarios", len(scenarios)).Int("parallel", s.workers()).Msg("run")

	var g errgroup.Group
	g.SetLimit(s.workers())
	for i, sc := range scenarios {
		if sc.Exclusive {
			continue
		}
		g.Go(func() error {
			run.Scenarios[i] = s.RunScenario(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	for i, sc := range scenarios {
		if sc.Exclusive {
			run.Scenarios[i] = s.RunScenario(ctx, sc)
		}
	}

	if s.Fixtures != nil {
		s.Fixtures.Cleanup()
		run.Residue = s.Fixtures.Residue()
	}
	run.Duration = time.Since(run.Started)
	log.Debug().Dur("took", run.Duration).Bool("passed", run.Passed()).Msg("run done")
	return run, nil
}

func (s *Suite) workers() int {
	if s.Parallel > 0 {
		return s.Parallel
	}
	return 1
}

// RunScenario executes one scenario. It never panics: a panic inside the
// scenario is reported as StatusError.
func (s *Suite) RunScenario(ctx context.Context, sc Scenario) (out report.ScenarioResult) {
	start := time.Now()
	out = report.ScenarioResult{
		Name:        sc.Name,
		Description: sc.Description,
		Kind:        string(sc.Kind),
		Status:      report.StatusPass,
	}
	log := s.Logger.With().Str("scenario", sc.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scenario panicked")
			out.Status = report.StatusError
			out.Failures = append(out.Failures, fmt.Sprintf("panic: %v", r))
		}
		out.Duration = time.Since(start)
		log.Debug().Str("status", string(out.Status)).Dur("took", out.Duration).Msg("scenario done")
	}()

	x := &execution{suite: s, sc: sc, out: &out}
	switch sc.Kind {
	case KindExists:
		x.exists()
	case KindStructure:
		x.structure()
	case KindArtifact:
		x.artifact(ctx)
	case KindPresence, KindAccept, KindReject, KindProbe:
		x.invoke(ctx)
	default:
		x.errorf("unknown scenario kind %q", sc.Kind)
	}
	return out
}

// execution carries the state of one scenario run.
type execution struct {
	suite       *Suite
	sc          Scenario
	out         *report.ScenarioResult
	unavailable bool
}

func (x *execution) fail(msg string) {
	x.out.Failures = append(x.out.Failures, msg)
	if x.out.Status == report.StatusPass {
		x.out.Status = report.StatusFail
	}
	if x.unavailable && x.out.Status == report.StatusFail {
		x.out.Status = report.StatusUnavailable
	}
}

func (x *execution) errorf(format string, args ...any) {
	x.out.Failures = append(x.out.Failures, fmt.Sprintf(format, args...))
	x.out.Status = report.StatusError
}

func (x *execution) path(rel string) string {
	return filepath.Join(x.suite.Root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
}

func (x *execution) exists() {
	for _, p := range x.sc.Paths {
		info, err := os.Stat(x.path(p))
		switch {
		case err != nil:
			x.fail(fmt.Sprintf("missing %s", p))
		case strings.HasSuffix(p, "/") && !info.IsDir():
			x.fail(fmt.Sprintf("%s is not a directory", strings.TrimSuffix(p, "/")))
		}
	}
}

func (x *execution) structure() {
	doc, err := x.suite.document(x.sc.Document)
	if err != nil {
		var pe *manifest.ParseError
		if errors.As(err, &pe) {
			x.errorf("%v", err)
			return
		}
		x.fail(fmt.Sprintf("missing document %s", x.sc.Document))
		return
	}
	if err := manifest.Check(doc, x.sc.Fields); err != nil {
		x.fail(err.Error())
	}
}

// invoke writes the fixture, runs Setup and Command, and evaluates the
// expectation. The fixture is removed however the scenario ends.
func (x *execution) invoke(ctx context.Context) {
	if x.sc.Fixture == nil {
		x.exec(ctx, x.sc.Command)
		return
	}
	name, ok := x.fixtureName()
	if !ok {
		return
	}
	err := x.suite.Fixtures.With(name, x.sc.Fixture.Contents, func(rel string) {
		x.out.Fixture = rel
		x.exec(ctx, strings.ReplaceAll(x.sc.Command, Placeholder, shellQuote(rel)))
	})
	if err != nil {
		x.errorf("%v", err)
	}
}

func (x *execution) exec(ctx context.Context, command string) {
	if x.sc.Setup != "" && !x.setup(ctx) {
		return
	}

	res := x.run(ctx, command)
	for _, f := range x.sc.Expect.Evaluate(res) {
		x.fail(f)
	}
	if x.sc.Expect.Artifact != "" {
		x.checkArtifact()
	}
}

// artifact plants a stale file in the output directory, runs Setup (the
// clean) and requires the stale file to be gone. When Command is set it
// then builds and requires Expect.Artifact to exist. An output directory
// it had to create is removed again if it ends up empty.
func (x *execution) artifact(ctx context.Context) {
	outDir := x.path(x.sc.Output)
	_, statErr := os.Stat(outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		x.errorf("creating %s: %v", x.sc.Output, err)
		return
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		// Remove only succeeds on an empty directory.
		defer os.Remove(outDir)
	}
	stale := filepath.Join(outDir, ".scaffoldcheck-stale-"+uuid.NewString()[:8])
	if err := os.WriteFile(stale, []byte("stale\n"), 0o644); err != nil {
		x.errorf("planting stale output: %v", err)
		return
	}
	defer os.Remove(stale)

	if !x.setup(ctx) {
		return
	}
	if _, err := os.Stat(stale); err == nil {
		x.fail(fmt.Sprintf("stale file in %s survived `%s`", x.sc.Output, x.sc.Setup))
		return
	}
	if x.sc.Command == "" {
		return
	}

	x.sc.Setup = ""
	x.invoke(ctx)
	x.removeFixtureOutput(outDir)
}

// removeFixtureOutput deletes what the build emitted for the fixture. The
// fixture's unique stem identifies those files wherever they landed.
func (x *execution) removeFixtureOutput(outDir string) {
	if x.out.Fixture == "" {
		return
	}
	base := path.Base(x.out.Fixture)
	prefix := strings.TrimSuffix(base, path.Ext(base)) + "."
	_ = filepath.WalkDir(outDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasPrefix(d.Name(), prefix) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			x.suite.Logger.Debug().Err(err).Str("path", p).Msg("removing fixture output")
		}
		return nil
	})
}

func (x *execution) setup(ctx context.Context) bool {
	res := x.suite.Runner.Run(ctx, x.sc.Setup, runner.Options{Timeout: x.sc.Timeout})
	if res.Failure == runner.FailureUnavailable {
		x.unavailable = true
	}
	if !res.Succeeded {
		x.record(res)
		x.fail(fmt.Sprintf("setup `%s` failed: %s", x.sc.Setup, why(res)))
		return false
	}
	return true
}

func (x *execution) run(ctx context.Context, command string) *runner.Result {
	res := x.suite.Runner.Run(ctx, command, runner.Options{Timeout: x.sc.Timeout})
	if res.Failure == runner.FailureUnavailable {
		x.unavailable = true
	}
	x.record(res)
	x.out.Diagnostics = parseDiagnostics(x.suite.Root, res)
	return res
}

func (x *execution) record(res *runner.Result) {
	x.out.Command = res.Command
	x.out.ExitCode = res.ExitCode
	x.out.Stdout = res.Stdout
	x.out.Stderr = res.Stderr
	x.out.Truncated = res.Truncated
}

func (x *execution) checkArtifact() {
	if _, err := os.Stat(x.path(x.sc.Expect.Artifact)); err != nil {
		x.fail(fmt.Sprintf("expected %s to exist after `%s`", x.sc.Expect.Artifact, x.sc.Command))
	}
}

func (x *execution) fixtureName() (string, bool) {
	if x.suite.Fixtures == nil {
		x.errorf("scenario needs a fixture but no fixture manager is configured")
		return "", false
	}
	ext := x.suite.FixtureExt
	if ext == "" {
		ext = ".ts"
	}
	stem := x.sc.Fixture.Name
	if stem == "" {
		stem = x.sc.Name
	}
	return fixture.UniqueName(stem, ext), true
}

// shellQuote single-quotes s when it contains anything a POSIX shell
// would interpret.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
