package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/scaffoldcheck/internal/report"
)

type inspectParams struct {
	RunID    string `json:"run_id,omitempty" jsonschema:"the run ID from an sc_run result. Defaults to the latest run."`
	Scenario string `json:"scenario,omitempty" jsonschema:"scenario name (e.g. linter/rejects-var) or group (e.g. linter)"`
	File     string `json:"file,omitempty" jsonschema:"root-relative source file to list tool diagnostics for"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.Scenario == "" && params.File == "" {
		return errorResult("scenario or file is required")
	}

	runID := params.RunID
	if runID == "" {
		runID = h.latestRun()
		if runID == "" {
			return errorResult("run_id is required: no run has been stored yet, call sc_run first")
		}
	}

	result, err := h.store.Load(runID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", runID, err))
	}

	if params.File != "" {
		diags := report.ByFile(result, params.File)
		if len(diags) == 0 {
			return textResult(fmt.Sprintf("No diagnostics found for %s in run %s.", params.File, runID))
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Run: %s\n%s (%d diagnostics):\n\n", runID, params.File, len(diags))
		for _, d := range diags {
			fmt.Fprintf(&b, "[%s] %s\n", d.Tool, d)
		}
		return textResult(b.String())
	}

	scenarios := report.ByPrefix(result, params.Scenario)
	if len(scenarios) == 0 {
		return textResult(fmt.Sprintf("No scenario matches %s in run %s.", params.Scenario, runID))
	}
	return textResult(formatInspectOutput(runID, scenarios))
}

func formatInspectOutput(runID string, scenarios []report.ScenarioResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	for _, sc := range scenarios {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s (%s) %s\n", sc.Name, sc.Kind, strings.ToUpper(string(sc.Status)))
		fmt.Fprintf(&b, "  %s\n", sc.Description)

		for _, f := range sc.Failures {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		if sc.Command != "" {
			fmt.Fprintf(&b, "  command: %s (exit %d, %s)\n", sc.Command, sc.ExitCode, sc.Duration.Round(1e6))
		}
		if sc.Fixture != "" {
			fmt.Fprintf(&b, "  fixture: %s\n", sc.Fixture)
		}
		for _, d := range sc.Diagnostics {
			fmt.Fprintf(&b, "  %s\n", d)
		}
		writeOutput(&b, "stdout", sc.Stdout)
		writeOutput(&b, "stderr", sc.Stderr)
		if sc.Truncated {
			fmt.Fprintln(&b, "  (output truncated)")
		}
	}
	return b.String()
}

func writeOutput(b *strings.Builder, label, out string) {
	out = strings.TrimRight(out, "\n")
	if strings.TrimSpace(out) == "" {
		return
	}
	fmt.Fprintf(b, "  %s:\n", label)
	for _, line := range strings.Split(out, "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
