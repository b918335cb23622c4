// runner.go implements external command execution with timeout and process
// group management. It ensures all child processes are killed on timeout using
// process groups, preventing orphan processes from accumulating when a probe
// utility or extension script hangs.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// DefaultTimeout bounds a single utility or extension invocation when the
// caller does not configure one.
const DefaultTimeout = 10 * time.Second

// Runner executes binaries (no shell interpolation) with timeout and output capture.
type Runner struct {
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
}

// New creates a Runner with the given per-invocation timeout.
func New(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Timeout: timeout}
}

// LookPath reports whether the named binary is available in $PATH, returning
// its absolute path when found. Probes use this to skip silently on hosts
// that lack their backing utility.
func LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

// Run executes the binary at path with the given arguments.
// It creates a new process group and kills all processes in the group on
// timeout. Returns Result with stdout, stderr, exit code, duration, and
// timeout status. A non-zero exit is reported in the Result, not as an error;
// an error means the command could not be started at all.
func (r *Runner) Run(ctx context.Context, path string, args ...string) (*Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, path, args...)

	// Create new process group so we can kill all children
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Custom cancel function to kill the whole process group (negative PID)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	// WaitDelay ensures orphaned pipe holders don't block Wait()
	cmd.WaitDelay = 5 * time.Second

	result := &Result{
		StartedAt: time.Now(),
	}

	err := cmd.Run()
	result.Duration = time.Since(result.StartedAt)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			result.ExitCode = -1
			result.TimedOut = true
			return result, nil
		}

		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		// Other error (command not found, permission denied, etc.)
		return nil, fmt.Errorf("execution failed: %w", err)
	}

	result.ExitCode = 0
	return result, nil
}
