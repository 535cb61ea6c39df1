// Package catalog turns configuration into the ordered list of scenarios
// a run executes.
package catalog

import (
	"strings"

	"github.com/deixis/scaffoldcheck/internal/config"
	"github.com/deixis/scaffoldcheck/internal/manifest"
	"github.com/deixis/scaffoldcheck/internal/suite"
)

// Build returns the scenarios described by cfg in execution order.
// Scenarios whose command is configured empty are omitted, as are names
// matched by cfg.Skip.
func Build(cfg *config.Config) []suite.Scenario {
	var out []suite.Scenario
	add := func(sc suite.Scenario) {
		if cfg.Skipped(sc.Name) {
			return
		}
		switch sc.Kind {
		case suite.KindExists:
			if len(sc.Paths) == 0 {
				return
			}
		case suite.KindStructure:
		case suite.KindArtifact:
			if sc.Setup == "" {
				return
			}
		default:
			if sc.Command == "" {
				return
			}
		}
		out = append(out, sc)
	}

	layout(cfg, add)
	for _, chk := range cfg.Checks {
		add(structure(chk))
	}
	tools(cfg, add)
	build(cfg, add)
	return out
}

func layout(cfg *config.Config, add func(suite.Scenario)) {
	add(suite.Scenario{
		Name:        "layout/files",
		Description: "required configuration and documentation files exist",
		Kind:        suite.KindExists,
		Paths:       cfg.Layout.Files,
	})

	dirs := make([]string, 0, len(cfg.Layout.Dirs))
	for _, d := range cfg.Layout.Dirs {
		dirs = append(dirs, strings.TrimSuffix(d, "/")+"/")
	}
	add(suite.Scenario{
		Name:        "layout/dirs",
		Description: "required directories exist",
		Kind:        suite.KindExists,
		Paths:       dirs,
	})

	hooks := make([]string, 0, len(cfg.Layout.Hooks))
	for _, h := range cfg.Layout.Hooks {
		hooks = append(hooks, strings.TrimSuffix(cfg.Layout.HooksDir, "/")+"/"+h)
	}
	add(suite.Scenario{
		Name:        "layout/hooks",
		Description: "git hooks are installed",
		Kind:        suite.KindExists,
		Paths:       hooks,
	})
}

func structure(chk config.CheckConfig) suite.Scenario {
	fields := make([]manifest.Field, 0, len(chk.Fields))
	for _, f := range chk.Fields {
		fields = append(fields, manifest.Field{
			Path:     f.Path,
			AnyOf:    f.AnyOf,
			Equals:   f.Equals,
			Contains: f.Contains,
			Type:     f.Type,
		})
	}
	desc := chk.Description
	if desc == "" {
		desc = chk.Document + " has the expected structure"
	}
	return suite.Scenario{
		Name:        chk.Name,
		Description: desc,
		Kind:        suite.KindStructure,
		Document:    chk.Document,
		Fields:      fields,
	}
}

func presence(name, desc string, q config.Query) suite.Scenario {
	sc := suite.Scenario{
		Name:        name,
		Description: desc,
		Kind:        suite.KindPresence,
		Command:     q.Command,
		Expect:      suite.Expect{Outcome: suite.OutcomeSucceed, Pattern: q.Pattern},
	}
	if q.Contains != "" {
		sc.Expect.Contains = []string{q.Contains}
	}
	return sc
}

func tools(cfg *config.Config, add func(suite.Scenario)) {
	t := cfg.Tools
	fx := cfg.Fixtures

	add(presence("compiler/version", "compiler is available", t.Compiler.Version))
	add(presence("linter/version", "linter is available", t.Linter.Version))
	add(presence("formatter/version", "formatter is available", t.Formatter.Version))
	add(presence("runtime/version", "runtime reports a semantic version", t.Runtime.Version))
	add(presence("package-manager/version", "package manager reports a semantic version", t.PackageManager.Version))
	add(presence("package-manager/scripts", "package manager lists the project scripts", t.PackageManager.Scripts))

	add(suite.Scenario{
		Name:        "compiler/type-check",
		Description: "compiler reads the project configuration",
		Kind:        suite.KindProbe,
		Command:     t.Compiler.TypeCheck,
		Expect:      suite.Expect{Outcome: suite.OutcomeRun},
		Exclusive:   true,
	})
	add(suite.Scenario{
		Name:        "compiler/accepts-valid",
		Description: "compiler accepts a valid source file",
		Kind:        suite.KindAccept,
		Command:     t.Compiler.CheckFile,
		Fixture:     &suite.Fixture{Name: "valid", Contents: fx.Valid},
		Expect:      suite.Expect{Outcome: suite.OutcomeSucceed},
	})
	add(suite.Scenario{
		Name:        "linter/loads-config",
		Description: "linter loads its configuration and reports JSON",
		Kind:        suite.KindProbe,
		Command:     t.Linter.Probe,
		Fixture:     &suite.Fixture{Name: "lint-probe", Contents: fx.LintProbe},
		Expect:      suite.Expect{Outcome: suite.OutcomeRun, JSON: true},
	})
	add(suite.Scenario{
		Name:        "linter/rejects-var",
		Description: "linter rejects var declarations",
		Kind:        suite.KindReject,
		Command:     t.Linter.CheckFile,
		Fixture:     &suite.Fixture{Name: "lint-invalid", Contents: fx.LintInvalid},
		Expect:      suite.Expect{Outcome: suite.OutcomeFail},
	})
	add(suite.Scenario{
		Name:        "formatter/accepts-formatted",
		Description: "formatter accepts formatted source",
		Kind:        suite.KindAccept,
		Command:     t.Formatter.CheckFile,
		Fixture:     &suite.Fixture{Name: "formatted", Contents: fx.Formatted},
		Expect:      suite.Expect{Outcome: suite.OutcomeSucceed},
	})
	add(suite.Scenario{
		Name:        "formatter/rejects-unformatted",
		Description: "formatter rejects unformatted source",
		Kind:        suite.KindReject,
		Command:     t.Formatter.CheckFile,
		Fixture:     &suite.Fixture{Name: "unformatted", Contents: fx.Unformatted},
		Expect:      suite.Expect{Outcome: suite.OutcomeFail},
	})
	add(suite.Scenario{
		Name:        "formatter/writes",
		Description: "formatter rewrites unformatted source",
		Kind:        suite.KindAccept,
		Command:     t.Formatter.WriteFile,
		Fixture:     &suite.Fixture{Name: "unformatted", Contents: fx.Unformatted},
		Expect:      suite.Expect{Outcome: suite.OutcomeSucceed},
	})
}

func build(cfg *config.Config, add func(suite.Scenario)) {
	b := cfg.Build
	if b.Output == "" {
		return
	}
	timeout := cfg.BuildTimeout()

	add(suite.Scenario{
		Name:        "build/clean",
		Description: "clean removes stale build output",
		Kind:        suite.KindArtifact,
		Setup:       b.Clean,
		Output:      b.Output,
		Timeout:     timeout,
		Exclusive:   true,
	})
	if b.Command == "" {
		return
	}
	add(suite.Scenario{
		Name:        "build/output",
		Description: "build emits " + b.Output,
		Kind:        suite.KindArtifact,
		Setup:       b.Clean,
		Command:     b.Command,
		Output:      b.Output,
		Timeout:     timeout,
		Fixture:     &suite.Fixture{Name: "build", Contents: cfg.Fixtures.Build},
		Expect:      suite.Expect{Outcome: suite.OutcomeSucceed, Artifact: b.Output},
		Exclusive:   true,
	})
}

// Select keeps the scenarios named in names. An entry ending in "/" or
// naming a group (the part before "/") selects the whole group. An empty
// names list selects everything.
func Select(scenarios []suite.Scenario, names []string) []suite.Scenario {
	if len(names) == 0 {
		return scenarios
	}
	var out []suite.Scenario
	for _, sc := range scenarios {
		for _, n := range names {
			n = strings.TrimSpace(n)
			group := strings.TrimSuffix(n, "/")
			if sc.Name == n || strings.HasPrefix(sc.Name, group+"/") {
				out = append(out, sc)
				break
			}
		}
	}
	return out
}

// Names returns the scenario names in order.
func Names(scenarios []suite.Scenario) []string {
	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	return names
}
