//go:build windows

package runner

import "os/exec"

func defaultShell() []string {
	return []string{"cmd", "/C"}
}

// configureProcess keeps the default CommandContext behaviour (kill the
// direct child) on Windows.
func configureProcess(cmd *exec.Cmd) {}

func killGroup(cmd *exec.Cmd) {}
