package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/scaffoldcheck/internal/catalog"
	"github.com/deixis/scaffoldcheck/internal/manifest"
	"github.com/deixis/scaffoldcheck/internal/report"
	"github.com/deixis/scaffoldcheck/internal/suite"
)

type runParams struct {
	Only     []string `json:"only,omitempty" jsonschema:"Scenario names or groups to run (e.g. linter or manifest/jest). Defaults to every scenario."`
	Timeout  string   `json:"timeout,omitempty" jsonschema:"Per-command timeout override as a Go duration (e.g. 30s)."`
	Parallel int      `json:"parallel,omitempty" jsonschema:"Maximum number of scenarios run concurrently. Defaults to the configured value."`
	Verbose  bool     `json:"verbose,omitempty" jsonschema:"Include captured tool output for failing scenarios."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	loaded := h.project()
	cfg := *loaded.Config

	if params.Timeout != "" {
		d, err := time.ParseDuration(params.Timeout)
		if err != nil || d <= 0 {
			return errorResult(fmt.Sprintf("invalid timeout %q: want a positive Go duration", params.Timeout))
		}
		cfg.RawTimeout = params.Timeout
	}
	if params.Parallel > 0 {
		cfg.RawParallel = params.Parallel
	}

	scenarios := catalog.Select(catalog.Build(&cfg), params.Only)
	if len(scenarios) == 0 {
		return errorResult(fmt.Sprintf("no scenarios match %s; call sc_list for names", strings.Join(params.Only, ", ")))
	}

	s := suite.New(loaded.Root, &cfg, h.log)
	result, err := s.Run(ctx, scenarios)
	if err != nil {
		var pe *manifest.ParseError
		if errors.As(err, &pe) {
			return errorResult(fmt.Sprintf("%s is not valid JSON, so no scenario was run: %v", pe.Path, pe.Err))
		}
		return errorResult(fmt.Sprintf("run failed: %v", err))
	}

	// Save results for sc_inspect.
	if err := h.store.Save(result); err != nil {
		h.log.Warn().Err(err).Str("run_id", result.ID).Msg("storing run")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", result.ID)
	b.WriteString(report.FormatText(result, params.Verbose))
	return textResult(b.String())
}

type listParams struct {
	Only []string `json:"only,omitempty" jsonschema:"Scenario names or groups to list. Defaults to every scenario."`
}

func (h *handler) listHandler(ctx context.Context, req *mcp.CallToolRequest, params listParams) (*mcp.CallToolResult, any, error) {
	loaded := h.project()
	scenarios := catalog.Select(catalog.Build(loaded.Config), params.Only)

	var b strings.Builder
	fmt.Fprintf(&b, "Scenarios (%d):\n", len(scenarios))
	for _, sc := range scenarios {
		fmt.Fprintf(&b, "  %-32s %-9s %s\n", sc.Name, sc.Kind, sc.Description)
	}
	return textResult(b.String())
}
