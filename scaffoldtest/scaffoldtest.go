// Package scaffoldtest runs the scaffoldcheck scenarios as go test
// subtests, so a project can gate its scaffold in CI with:
//
//	func TestScaffold(t *testing.T) {
//		scaffoldtest.Run(t, "..")
//	}
package scaffoldtest

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/scaffoldcheck/internal/catalog"
	"github.com/deixis/scaffoldcheck/internal/config"
	"github.com/deixis/scaffoldcheck/internal/logging"
	"github.com/deixis/scaffoldcheck/internal/report"
	"github.com/deixis/scaffoldcheck/internal/suite"
)

// Run loads the configuration for the project containing dir and runs
// each scenario as a subtest named after it. only restricts the run to
// the given scenario names or groups.
//
// Scenarios run serially in catalog order. A malformed configuration
// document fails the test before any subtest starts, and fixtures left
// behind fail it after the last one.
func Run(t *testing.T, dir string, only ...string) {
	t.Helper()

	loaded, err := config.Load(dir)
	require.NoError(t, err, "loading scaffoldcheck config")

	scenarios := catalog.Select(catalog.Build(loaded.Config), only)
	require.NotEmpty(t, scenarios, "no scenarios match %s", strings.Join(only, ", "))

	log := logging.New(logging.ProfileTest, zerolog.TestWriter{T: t})
	s := suite.New(loaded.Root, loaded.Config, log)
	require.NoError(t, s.Preload(scenarios))

	t.Cleanup(func() {
		s.Fixtures.Cleanup()
		assert.Empty(t, s.Fixtures.Residue(), "fixtures left behind")
	})

	ctx := t.Context()
	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			check(t, runScenario(ctx, s, sc))
		})
	}
}

func runScenario(ctx context.Context, s *suite.Suite, sc suite.Scenario) report.ScenarioResult {
	if err := sc.Validate(); err != nil {
		return report.ScenarioResult{
			Name:        sc.Name,
			Description: sc.Description,
			Status:      report.StatusError,
			Failures:    []string{err.Error()},
		}
	}
	return s.RunScenario(ctx, sc)
}

func check(t *testing.T, res report.ScenarioResult) {
	t.Helper()
	if res.Status == report.StatusPass {
		return
	}

	var b strings.Builder
	b.WriteString(res.Description)
	for _, f := range res.Failures {
		b.WriteString("\n  ")
		b.WriteString(f)
	}
	for _, d := range res.Diagnostics {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	assert.Equal(t, report.StatusPass, res.Status, b.String())
}
