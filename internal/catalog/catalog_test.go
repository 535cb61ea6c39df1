package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/scaffoldcheck/internal/config"
	"github.com/deixis/scaffoldcheck/internal/suite"
)

func find(t *testing.T, scenarios []suite.Scenario, name string) suite.Scenario {
	t.Helper()
	for _, sc := range scenarios {
		if sc.Name == name {
			return sc
		}
	}
	t.Fatalf("scenario %s not in catalog", name)
	return suite.Scenario{}
}

func TestBuild_Default(t *testing.T) {
	scenarios := Build(config.Default())

	assert.Equal(t, []string{
		"layout/files", "layout/dirs", "layout/hooks",
		"manifest/metadata", "manifest/scripts", "manifest/dependencies", "manifest/jest", "manifest/lint-staged",
		"tsconfig/strict", "tsconfig/paths", "tsconfig/build", "tsconfig/build-excludes", "prettier/options",
		"compiler/version", "linter/version", "formatter/version", "runtime/version",
		"package-manager/version", "package-manager/scripts",
		"compiler/type-check", "compiler/accepts-valid", "linter/loads-config", "linter/rejects-var",
		"formatter/accepts-formatted", "formatter/rejects-unformatted", "formatter/writes",
		"build/clean", "build/output",
	}, Names(scenarios))

	for _, sc := range scenarios {
		require.NoError(t, sc.Validate(), sc.Name)
		assert.NotEmpty(t, sc.Description, sc.Name)
	}
}

func TestBuild_DefaultDetails(t *testing.T) {
	scenarios := Build(config.Default())

	dirs := find(t, scenarios, "layout/dirs")
	assert.Contains(t, dirs.Paths, "tests/unit/block-1.1/")

	hooks := find(t, scenarios, "layout/hooks")
	assert.Equal(t, []string{".husky/pre-commit", ".husky/commit-msg", ".husky/pre-push"}, hooks.Paths)

	tsc := find(t, scenarios, "compiler/version")
	assert.Equal(t, []string{"Version"}, tsc.Expect.Contains)

	scripts := find(t, scenarios, "package-manager/scripts")
	assert.Equal(t, "npm run", scripts.Command)
	assert.Regexp(t, scripts.Expect.Pattern, "Lifecycle scripts included in svc:\n  test\navailable via `npm run`:")

	reject := find(t, scenarios, "linter/rejects-var")
	assert.Equal(t, suite.OutcomeFail, reject.Expect.Outcome)
	require.NotNil(t, reject.Fixture)
	assert.Contains(t, reject.Fixture.Contents, "var badVar")

	probe := find(t, scenarios, "linter/loads-config")
	assert.True(t, probe.Expect.JSON)
	assert.Equal(t, suite.OutcomeRun, probe.Expect.Outcome)

	out := find(t, scenarios, "build/output")
	assert.True(t, out.Exclusive)
	assert.Equal(t, "dist", out.Expect.Artifact)
	assert.Equal(t, "npm run clean", out.Setup)
	assert.Equal(t, config.DefaultBuildTimeout, out.Timeout)

	jest := find(t, scenarios, "manifest/jest")
	require.Len(t, jest.Fields, 3)
	assert.Equal(t, 90, jest.Fields[2].Equals)
}

func TestBuild_OmitsEmptyCommands(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Formatter = config.FormatterConfig{}
	cfg.Build.Command = ""
	cfg.Layout.Hooks = nil

	names := Names(Build(cfg))
	assert.NotContains(t, names, "formatter/version")
	assert.NotContains(t, names, "formatter/writes")
	assert.NotContains(t, names, "build/output")
	assert.NotContains(t, names, "layout/hooks")
	assert.Contains(t, names, "build/clean")
}

func TestBuild_Skip(t *testing.T) {
	cfg := config.Default()
	cfg.Skip = []string{"build/", "linter/rejects-var"}

	names := Names(Build(cfg))
	assert.NotContains(t, names, "build/clean")
	assert.NotContains(t, names, "build/output")
	assert.NotContains(t, names, "linter/rejects-var")
	assert.Contains(t, names, "linter/version")
}

func TestSelect(t *testing.T) {
	all := Build(config.Default())

	assert.Equal(t, all, Select(all, nil))
	assert.Equal(t, []string{"linter/version", "linter/loads-config", "linter/rejects-var"}, Names(Select(all, []string{"linter"})))
	assert.Equal(t, []string{"layout/files", "build/clean", "build/output"}, Names(Select(all, []string{"build/", " layout/files"})))
	assert.Empty(t, Select(all, []string{"nothing"}))
}
