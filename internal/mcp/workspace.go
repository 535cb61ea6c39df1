package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/scaffoldcheck/internal/manifest"
)

type projectParams struct{}

func (h *handler) projectHandler(ctx context.Context, req *mcp.CallToolRequest, _ projectParams) (*mcp.CallToolResult, any, error) {
	loaded := h.project()
	cfg := loaded.Config

	var b strings.Builder
	fmt.Fprintf(&b, "Root: %s\n", loaded.Root)
	if loaded.Source != "" {
		fmt.Fprintf(&b, "Config: %s\n", filepath.Base(loaded.Source))
	} else {
		fmt.Fprintln(&b, "Config: built-in defaults")
	}
	fmt.Fprintln(&b)

	doc, err := manifest.Load(loaded.Root, "package.json")
	if err != nil {
		// Non-fatal: layout is still worth reporting.
		fmt.Fprintf(&b, "package.json: %v\n", err)
	} else {
		for _, key := range []string{"name", "version", "license"} {
			if v, ok := doc.Lookup([]string{key}); ok {
				fmt.Fprintf(&b, "%s: %v\n", key, v)
			}
		}
		if scripts, ok := doc.Lookup([]string{"scripts"}); ok {
			if m, ok := scripts.(map[string]any); ok {
				names := make([]string, 0, len(m))
				for k := range m {
					names = append(names, k)
				}
				sort.Strings(names)
				fmt.Fprintf(&b, "Scripts (%d): %s\n", len(names), strings.Join(names, ", "))
			}
		}
	}
	fmt.Fprintln(&b)

	var missing []string
	for _, p := range cfg.Layout.Files {
		if _, err := os.Stat(filepath.Join(loaded.Root, filepath.FromSlash(p))); err != nil {
			missing = append(missing, p)
		}
	}
	for _, p := range cfg.Layout.Dirs {
		if info, err := os.Stat(filepath.Join(loaded.Root, filepath.FromSlash(p))); err != nil || !info.IsDir() {
			missing = append(missing, strings.TrimSuffix(p, "/")+"/")
		}
	}
	if len(missing) == 0 {
		fmt.Fprintln(&b, "Layout: complete")
	} else {
		fmt.Fprintf(&b, "Layout: %d missing\n", len(missing))
		for _, p := range missing {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}

	return textResult(b.String())
}
