package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatText renders a run as plain text: a status line, one row per
// scenario, and the failure messages of every scenario that did not pass.
// verbose adds captured tool output for those scenarios.
func FormatText(result *RunResult, verbose bool) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	if result.Passed() {
		w("ok\n")
	} else {
		w("FAIL\n")
	}
	w("\n")

	width := 10
	for _, sc := range result.Scenarios {
		width = max(width, len(sc.Name))
	}
	for _, sc := range result.Scenarios {
		w("  %-*s %s\n", width, sc.Name, statusWord(sc.Status))
	}
	w("\n")

	for _, sc := range result.Scenarios {
		if sc.Status == StatusPass {
			continue
		}
		w("%s: %s\n", sc.Name, sc.Description)
		for _, f := range sc.Failures {
			w("  %s\n", f)
		}
		for _, d := range sc.Diagnostics {
			w("  %s\n", d)
		}
		if verbose {
			if sc.Command != "" {
				w("  $ %s\n", sc.Command)
			}
			if out := strings.TrimSpace(sc.Stdout); out != "" {
				w("%s\n", indent(out))
			}
			if out := strings.TrimSpace(sc.Stderr); out != "" {
				w("%s\n", indent(out))
			}
		}
		w("\n")
	}

	if len(result.Residue) > 0 {
		w("Fixtures left behind:\n")
		for _, r := range result.Residue {
			w("  %s\n", r)
		}
		w("\n")
	}

	s := result.Summary()
	w("%d scenarios: %d passed, %d failed, %d unavailable, %d errors (%s)\n",
		s.Total, s.Pass, s.Fail, s.Unavailable, s.Error, formatDuration(result.Duration))
	return string(b)
}

// FormatTable renders a run as a table. color selects the coloured style
// used on terminals.
func FormatTable(out io.Writer, result *RunResult, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Scaffold validation (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{"Scenario", "Kind", "Duration", "Status", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Scenario", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Detail", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	group := ""
	for _, sc := range result.Scenarios {
		if g, _, _ := strings.Cut(sc.Name, "/"); g != group {
			if group != "" {
				t.AppendSeparator()
			}
			group = g
		}
		detail := ""
		if len(sc.Failures) > 0 {
			detail = sc.Failures[0]
			if n := len(sc.Failures) - 1; n > 0 {
				detail += fmt.Sprintf(" (+%d more)", n)
			}
		}
		t.AppendRow(table.Row{sc.Name, sc.Kind, formatDuration(sc.Duration), statusWord(sc.Status), detail})
	}

	s := result.Summary()
	t.AppendFooter(table.Row{
		"TOTAL", s.Total, formatDuration(result.Duration),
		fmt.Sprintf("%d/%d", s.Pass, s.Total), "",
	})

	switch {
	case !color:
		t.SetStyle(table.StyleLight)
	case result.Passed():
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}
	t.Render()
}

// String renders a diagnostic as file:line:col: [rule] message.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.File)
	if d.Line > 0 {
		fmt.Fprintf(&b, ":%d", d.Line)
		if d.Col > 0 {
			fmt.Fprintf(&b, ":%d", d.Col)
		}
	}
	b.WriteString(": ")
	if d.Rule != "" {
		fmt.Fprintf(&b, "[%s] ", d.Rule)
	}
	b.WriteString(d.Message)
	return b.String()
}

func statusWord(s Status) string {
	switch s {
	case StatusPass:
		return "ok"
	case StatusFail:
		return "FAIL"
	default:
		return string(s)
	}
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
