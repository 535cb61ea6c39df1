// Package mcp provides the scaffoldcheck MCP server, registering the run,
// list, inspect and project tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/deixis/scaffoldcheck"
	"github.com/deixis/scaffoldcheck/internal/config"
	"github.com/deixis/scaffoldcheck/internal/report"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers. The project
// can change once per session when the client reports its roots.
type handler struct {
	mu     sync.Mutex
	loaded *config.LoadResult
	store  report.Store
	log    zerolog.Logger
}

// NewServer creates an MCP server with all scaffoldcheck tools registered.
func NewServer(loaded *config.LoadResult, store report.Store, log zerolog.Logger) *mcp.Server {
	h := &handler{loaded: loaded, store: store, log: log}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateProjectFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "scaffoldcheck", Version: scaffoldcheck.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "sc_project",
		Description: "Summarise the project being validated: root, config file, package name, scripts and missing layout paths.",
	}, h.projectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "sc_list",
		Description: "List the validation scenarios with their kind and description. Names can be passed to sc_run as `only`.",
	}, h.listHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "sc_run",
		Description: `Run validation scenarios against the project and report one line per scenario.

Runs every scenario unless only is given. Failures carry the literal expectation that did not
hold. Results are stored for drill-down via sc_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "sc_inspect",
		Description: `Drill into results from an sc_run.

Pass the run_id from sc_run output (defaults to the latest run) and a scenario name or group
(e.g. "linter" or "linter/rejects-var") to see the command, exit code, captured output and
parsed tool diagnostics. Pass file instead to list diagnostics for one source file.`,
	}, h.inspectHandler)

	return s
}

// latestRun returns the most recently stored run ID, or "" when the
// store does not track one.
func (h *handler) latestRun() string {
	if ls, ok := h.store.(interface{ Latest() string }); ok {
		return ls.Latest()
	}
	return ""
}

// project returns the current config and root.
func (h *handler) project() *config.LoadResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

// updateProjectFromRoots queries the client for MCP roots and reloads the
// configuration for the first file root. Called during session
// initialisation, before any tool call.
func (h *handler) updateProjectFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		h.log.Warn().Err(err).Str("root", u.Path).Msg("ignoring client root")
		return
	}

	h.mu.Lock()
	h.loaded = loaded
	h.mu.Unlock()
	h.log.Debug().Str("root", loaded.Root).Msg("project from client roots")
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
