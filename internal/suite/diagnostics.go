package suite

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/deixis/scaffoldcheck/internal/report"
	"github.com/deixis/scaffoldcheck/internal/runner"
)

// Tool roles recorded on diagnostics.
const (
	toolCompiler  = "compiler"
	toolLinter    = "linter"
	toolFormatter = "formatter"
)

// parseDiagnostics extracts findings from a tool's output. Tools are
// recognised by name; unknown tools yield nothing.
func parseDiagnostics(root string, res *runner.Result) []report.Diagnostic {
	var diags []report.Diagnostic
	switch runner.ToolName(res.Command) {
	case "eslint":
		diags = parseESLintJSON(res.Stdout)
	case "tsc":
		diags = parseTSC(res.Stdout + "\n" + res.Stderr)
	case "prettier":
		diags = parsePrettierCheck(res.Stdout + "\n" + res.Stderr)
	}
	for i := range diags {
		diags[i].File = relativeTo(root, diags[i].File)
	}
	return diags
}

// eslintFileResult is one entry of eslint --format json output.
type eslintFileResult struct {
	FilePath string          `json:"filePath"`
	Messages []eslintMessage `json:"messages"`
}

type eslintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"` // 1 warning, 2 error
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

func parseESLintJSON(stdout string) []report.Diagnostic {
	var files []eslintFileResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &files); err != nil {
		return nil
	}

	var out []report.Diagnostic
	for _, f := range files {
		for _, m := range f.Messages {
			severity := "warning"
			if m.Severity >= 2 {
				severity = "error"
			}
			out = append(out, report.Diagnostic{
				Tool:     toolLinter,
				File:     f.FilePath,
				Line:     m.Line,
				Col:      m.Column,
				Rule:     m.RuleID,
				Severity: severity,
				Message:  m.Message,
			})
		}
	}
	return out
}

// tscLine matches "src/a.ts(3,7): error TS2322: Type 'number' is not ...".
var tscLine = regexp.MustCompile(`(?m)^(.+?)\((\d+),(\d+)\): (error|warning) (TS\d+): (.*)$`)

func parseTSC(output string) []report.Diagnostic {
	var out []report.Diagnostic
	for _, m := range tscLine.FindAllStringSubmatch(output, -1) {
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		out = append(out, report.Diagnostic{
			Tool:     toolCompiler,
			File:     m[1],
			Line:     line,
			Col:      col,
			Severity: m[4],
			Rule:     m[5],
			Message:  strings.TrimSpace(m[6]),
		})
	}
	return out
}

// parsePrettierCheck collects the "[warn] <file>" lines prettier --check
// prints for each unformatted file.
func parsePrettierCheck(output string) []report.Diagnostic {
	var out []report.Diagnostic
	for _, line := range strings.Split(output, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "[warn] ")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		if rest == "" || strings.HasPrefix(rest, "Code style issues") {
			continue
		}
		out = append(out, report.Diagnostic{
			Tool:     toolFormatter,
			File:     rest,
			Severity: "warning",
			Message:  "not formatted",
		})
	}
	return out
}

func relativeTo(root, file string) string {
	if root == "" || !filepath.IsAbs(file) {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
