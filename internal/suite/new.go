package suite

import (
	"github.com/rs/zerolog"

	"github.com/deixis/scaffoldcheck/internal/config"
	"github.com/deixis/scaffoldcheck/internal/fixture"
	"github.com/deixis/scaffoldcheck/internal/runner"
)

// New builds a Suite for root with a fresh runner and fixture manager,
// both configured from cfg.
func New(root string, cfg *config.Config, log zerolog.Logger) *Suite {
	r := &runner.Runner{
		Workspace: root,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
		Shell:     cfg.ShellArgv(),
		Env:       cfg.Env,
		Logger:    log,
	}
	fm := fixture.New(root, cfg.Scratch.Dir)
	fm.Logger = log
	return &Suite{
		Root:       root,
		Runner:     r,
		Fixtures:   fm,
		FixtureExt: cfg.ScratchExt(),
		Parallel:   cfg.Workers(),
		Logger:     log,
	}
}
