package runner

import (
	"fmt"
	"strings"
)

// knownTools maps executables invoked by the catalog to install hints.
var knownTools = map[string]string{
	"node":     "install Node.js from https://nodejs.org/ or via a version manager (nvm, fnm, volta)",
	"npm":      "npm ships with Node.js; install Node.js from https://nodejs.org/",
	"npx":      "npx ships with npm; install Node.js from https://nodejs.org/",
	"tsc":      "npm install --save-dev typescript",
	"eslint":   "npm install --save-dev eslint",
	"prettier": "npm install --save-dev prettier",
	"husky":    "npm install --save-dev husky && npx husky init",
}

// Executable returns the program a command line starts, skipping leading
// VAR=value assignments.
func Executable(command string) string {
	for _, f := range strings.Fields(command) {
		if strings.Contains(f, "=") && !strings.HasPrefix(f, "-") {
			continue
		}
		return f
	}
	return ""
}

// ToolName returns the tool a command line exercises, looking through npx
// so "npx tsc --version" yields "tsc".
func ToolName(command string) string {
	fields := strings.Fields(command)
	exe := Executable(command)
	if exe != "npx" {
		return exe
	}
	seen := false
	for _, f := range fields {
		if !seen {
			seen = f == "npx"
			continue
		}
		if !strings.HasPrefix(f, "-") {
			return f
		}
	}
	return exe
}

func unavailableMessage(command string) string {
	name := Executable(command)
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed (command not found).", name)
	if hint, ok := knownTools[name]; ok {
		fmt.Fprintf(&b, "\nInstall: %s", hint)
	}
	return b.String()
}
