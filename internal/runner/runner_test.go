//go:build !windows

package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Workspace: t.TempDir(),
		Timeout:   10 * time.Second,
		MaxOutput: 1 << 20,
		Logger:    zerolog.Nop(),
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "echo hello; echo noise >&2", Options{})
	if !res.Succeeded {
		t.Fatalf("Succeeded = false, stderr = %q", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty on success", res.Stderr)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Failure != FailureNone {
		t.Errorf("Failure = %q, want none", res.Failure)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "echo partial; echo broken >&2; exit 3", Options{})
	if res.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Failure != FailureExit {
		t.Errorf("Failure = %q, want exit", res.Failure)
	}
	if !res.Ran() {
		t.Error("Ran() = false, want true for a tool that exited")
	}
	if !strings.Contains(res.Stdout, "partial") {
		t.Errorf("Stdout = %q, want partial output kept", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "broken") {
		t.Errorf("Stderr = %q, want captured stderr", res.Stderr)
	}
}

func TestRun_DiagnosticWhenNoStderr(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "exit 1", Options{})
	if res.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if !strings.Contains(res.Stderr, "exited with status 1") {
		t.Errorf("Stderr = %q, want substituted diagnostic", res.Stderr)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "nonexistent-binary-xyz-123 --version", Options{})
	if res.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if res.Failure != FailureUnavailable {
		t.Errorf("Failure = %q, want unavailable", res.Failure)
	}
	if res.Ran() {
		t.Error("Ran() = true, want false for a missing tool")
	}
	if !strings.Contains(res.Stderr, "nonexistent-binary-xyz-123") {
		t.Errorf("Stderr = %q, want to mention the binary name", res.Stderr)
	}
}

func TestRun_ShellMissing(t *testing.T) {
	r := newTestRunner(t)
	r.Shell = []string{"no-such-shell-xyz", "-c"}
	res := r.Run(context.Background(), "echo hi", Options{})
	if res.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if res.Failure != FailureSpawn {
		t.Errorf("Failure = %q, want spawn", res.Failure)
	}
	if res.Stderr == "" {
		t.Error("Stderr is empty, want a diagnostic")
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "   ", Options{})
	if res.Succeeded || res.Failure != FailureSpawn {
		t.Errorf("got Succeeded=%v Failure=%q, want failed spawn", res.Succeeded, res.Failure)
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRunner(t)
	timeout := 200 * time.Millisecond

	start := time.Now()
	res := r.Run(context.Background(), "sleep 10", Options{Timeout: timeout})
	elapsed := time.Since(start)

	if res.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if res.Failure != FailureTimeout {
		t.Errorf("Failure = %q, want timeout", res.Failure)
	}
	if !strings.Contains(res.Stderr, "timed out") {
		t.Errorf("Stderr = %q, want timeout diagnostic", res.Stderr)
	}
	if elapsed > timeout+waitDelay+time.Second {
		t.Errorf("Run took %s, want bounded by timeout plus teardown", elapsed)
	}
}

func TestRun_TimeoutKillsBackgroundChildren(t *testing.T) {
	r := newTestRunner(t)

	start := time.Now()
	// The background sleep inherits stdout; only a group kill releases the pipe.
	res := r.Run(context.Background(), "sleep 10 & sleep 10", Options{Timeout: 200 * time.Millisecond})
	if res.Failure != FailureTimeout {
		t.Errorf("Failure = %q, want timeout", res.Failure)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %s, want process group torn down promptly", elapsed)
	}
}

func TestRun_ZeroExitWithLingeringChild(t *testing.T) {
	r := newTestRunner(t)

	start := time.Now()
	// The shell exits 0 while the background sleep keeps stdout open.
	res := r.Run(context.Background(), "sleep 6 & echo ok; exit 0", Options{})
	if !res.Succeeded {
		t.Fatalf("Succeeded = false, failure = %q, stderr = %q", res.Failure, res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Failure != FailureNone {
		t.Errorf("Failure = %q, want none", res.Failure)
	}
	if res.Stdout != "ok\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "ok\n")
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty on success", res.Stderr)
	}
	if elapsed := time.Since(start); elapsed > waitDelay+3*time.Second {
		t.Errorf("Run took %s, want bounded by the wait delay", elapsed)
	}
}

func TestRun_NonZeroExitWithLingeringChild(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "sleep 6 & exit 4", Options{})
	if res.Succeeded {
		t.Fatal("Succeeded = true, want false")
	}
	if res.ExitCode != 4 {
		t.Errorf("ExitCode = %d, want 4", res.ExitCode)
	}
	if res.Failure != FailureExit {
		t.Errorf("Failure = %q, want exit", res.Failure)
	}
}

func TestRun_Canceled(t *testing.T) {
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan *Result)
	go func() {
		done <- r.Run(ctx, "sleep 10", Options{})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		if res.Failure != FailureCanceled {
			t.Errorf("Failure = %q, want canceled", res.Failure)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_DirWithinWorkspace(t *testing.T) {
	r := newTestRunner(t)
	sub := filepath.Join(r.Workspace, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	res := r.Run(context.Background(), "pwd", Options{Dir: "subdir"})
	if !res.Succeeded {
		t.Fatalf("Succeeded = false: %s", res.Stderr)
	}
	if !strings.Contains(res.Stdout, "subdir") {
		t.Errorf("Stdout = %q, want to contain 'subdir'", res.Stdout)
	}
}

func TestRun_DirOutsideWorkspace(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "echo", Options{Dir: "../"})
	if res.Succeeded {
		t.Fatal("Succeeded = true, want false for dir outside workspace")
	}
	if !strings.Contains(res.Stderr, "outside workspace") {
		t.Errorf("Stderr = %q, want 'outside workspace'", res.Stderr)
	}
}

func TestRun_EnvOverlay(t *testing.T) {
	t.Setenv("SCAFFOLDCHECK_TEST_VAR", "ambient")
	r := newTestRunner(t)
	r.Env = map[string]string{"SCAFFOLDCHECK_TEST_VAR": "overlay"}

	res := r.Run(context.Background(), "echo $SCAFFOLDCHECK_TEST_VAR", Options{})
	if strings.TrimSpace(res.Stdout) != "overlay" {
		t.Errorf("Stdout = %q, want overlay value", res.Stdout)
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100

	res := r.Run(context.Background(), "dd if=/dev/zero bs=200 count=1 2>/dev/null", Options{})
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) > r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestToolName(t *testing.T) {
	tests := map[string]string{
		"npx tsc --version":          "tsc",
		"npx --yes prettier --check": "prettier",
		"node --version":             "node",
		"CI=1 npm run build":         "npm",
		"":                           "",
	}
	for cmd, want := range tests {
		if got := ToolName(cmd); got != want {
			t.Errorf("ToolName(%q) = %q, want %q", cmd, got, want)
		}
	}
}

func TestUnavailableMessage_KnownTool(t *testing.T) {
	msg := unavailableMessage("node --version")
	if !strings.Contains(msg, "Install:") {
		t.Errorf("message = %q, want install hint", msg)
	}
}
