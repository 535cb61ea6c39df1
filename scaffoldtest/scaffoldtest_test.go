//go:build !windows

package scaffoldtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/scaffoldcheck/internal/report"
	"github.com/deixis/scaffoldcheck/internal/suite"
)

const projectConfig = `
layout:
  files: [package.json]
  dirs: [src]
skip:
  - layout/hooks
  - manifest/
  - tsconfig/
  - prettier/
  - compiler/
  - linter/
  - formatter/
  - package-manager/
  - build/
tools:
  runtime:
    version:
      command: echo v20.11.0
checks:
  - name: demo/name
    document: package.json
    fields:
      - path: [name]
        equals: demo
      - path: [scripts, "test:unit"]
        type: string
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json":        `{"name": "demo", "scripts": {"test:unit": "jest"}}`,
		".scaffoldcheck.yaml": projectConfig,
	}
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	return dir
}

func TestRun(t *testing.T) {
	dir := writeProject(t)
	Run(t, dir)

	entries, err := os.ReadDir(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_Only(t *testing.T) {
	Run(t, writeProject(t), "runtime")
}

func TestRunScenario_Invalid(t *testing.T) {
	sc := suite.Scenario{Name: "layout/broken", Description: "nothing to check", Kind: suite.KindExists}
	res := runScenario(t.Context(), nil, sc)
	assert.Equal(t, report.StatusError, res.Status)
	assert.Equal(t, []string{"scenario layout/broken: no paths"}, res.Failures)
}
