//go:build !windows

package runner

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func defaultShell() []string {
	return []string{"sh", "-c"}
}

// killGroup kills whatever is left of the command's process group.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}

// configureProcess starts the command in its own process group so a
// timeout kills the tool and everything it spawned (npx, node workers).
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
