// Package runner executes shell commands against a project root with a
// bounded timeout and output cap. It never returns an error: every failure
// mode is folded into a Result so callers can assert on tool failure.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Defaults applied when the corresponding Runner field is zero.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// waitDelay bounds how long Wait blocks for stdio after the process is
// killed; grandchildren holding the pipes open would otherwise hang it.
const waitDelay = 2 * time.Second

// exitNotFound is the POSIX shell status for "command not found".
const exitNotFound = 127

// Options adjusts a single invocation.
type Options struct {
	Timeout time.Duration // overrides Runner.Timeout when > 0
	Dir     string        // relative to Workspace; must stay inside it
}

// Runner executes commands within a workspace boundary.
type Runner struct {
	Workspace string
	Timeout   time.Duration
	MaxOutput int               // bytes per stream
	Shell     []string          // argv prefix; the command is appended as one argument
	Env       map[string]string // overlaid on the process environment
	Logger    zerolog.Logger
}

// Run executes command through the shell and waits for it to exit or for
// the timeout to expire.
func (r *Runner) Run(ctx context.Context, command string, opts Options) *Result {
	start := time.Now()
	res := &Result{
		RunID:    uuid.New().String(),
		Command:  command,
		ExitCode: -1,
	}

	if strings.TrimSpace(command) == "" {
		return r.finish(res, start, FailureSpawn, "empty command")
	}

	dir, err := r.resolveDir(opts.Dir)
	if err != nil {
		return r.finish(res, start, FailureSpawn, err.Error())
	}

	timeout := r.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell := r.Shell
	if len(shell) == 0 {
		shell = defaultShell()
	}
	argv := append(append([]string{}, shell[1:]...), command)

	cmd := exec.CommandContext(runCtx, shell[0], argv...)
	cmd.Dir = dir
	cmd.Env = r.environ()
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	r.Logger.Debug().Str("run_id", res.RunID).Str("command", command).Dur("timeout", timeout).Msg("exec")

	runErr := cmd.Run()

	// The shell exited but a background child still holds its stdio. The
	// exit status is known, so judge the command by it.
	if errors.Is(runErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && runCtx.Err() == nil {
		r.Logger.Debug().Str("run_id", res.RunID).Msg("output held open after exit")
		killGroup(cmd)
		runErr = nil
		if !cmd.ProcessState.Success() {
			runErr = &exec.ExitError{ProcessState: cmd.ProcessState}
		}
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.Len() >= maxOutput || stderr.Len() >= maxOutput

	switch {
	case runErr == nil:
		res.ExitCode = 0
		res.Succeeded = true
		// Success carries stdout only.
		res.Stderr = ""
		return r.finish(res, start, FailureNone, "")

	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return r.finish(res, start, FailureTimeout, fmt.Sprintf("command timed out after %s: %s", timeout, command))

	case ctx.Err() != nil:
		return r.finish(res, start, FailureCanceled, fmt.Sprintf("command canceled: %v", ctx.Err()))
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == exitNotFound {
			return r.finish(res, start, FailureUnavailable, unavailableMessage(command))
		}
		return r.finish(res, start, FailureExit, fmt.Sprintf("command exited with status %d: %s", res.ExitCode, command))
	}

	// Shell missing, bad working directory, or other start failure.
	return r.finish(res, start, FailureSpawn, fmt.Sprintf("executing %s: %v", shell[0], runErr))
}

// finish stamps the failure kind and duration, substituting diag into
// Stderr when the process left nothing there.
func (r *Runner) finish(res *Result, start time.Time, failure Failure, diag string) *Result {
	res.Failure = failure
	res.Duration = time.Since(start)
	if failure != FailureNone && strings.TrimSpace(res.Stderr) == "" {
		res.Stderr = diag
	}
	ev := r.Logger.Debug().Str("run_id", res.RunID).Int("exit_code", res.ExitCode).Dur("took", res.Duration)
	if failure != FailureNone {
		ev = ev.Str("failure", string(failure))
	}
	ev.Msg("done")
	return res
}

// resolveDir resolves dir relative to the workspace and validates it is
// within the workspace boundary.
func (r *Runner) resolveDir(dir string) (string, error) {
	if dir == "" {
		return r.Workspace, nil
	}

	var resolved string
	if filepath.IsAbs(dir) {
		resolved = filepath.Clean(dir)
	} else {
		resolved = filepath.Clean(filepath.Join(r.Workspace, dir))
	}

	rel, err := filepath.Rel(r.Workspace, resolved)
	if err != nil {
		return "", fmt.Errorf("resolving dir: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dir %q is outside workspace %q", dir, r.Workspace)
	}
	return resolved, nil
}

// environ returns the process environment with Env overlaid. Overridden
// keys are dropped from the inherited set so the overlay always wins.
func (r *Runner) environ() []string {
	base := os.Environ()
	if len(r.Env) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(r.Env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := r.Env[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(r.Env))
	for k := range r.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+r.Env[k])
	}
	return env
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
