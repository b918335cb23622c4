// result.go defines the command execution result structure.
// It captures all output from an invocation including stdout, stderr,
// exit code, duration, and timeout status.
package runner

import "time"

// Result holds the output of a command invocation.
type Result struct {
	// ExitCode is the process exit code. -1 indicates timeout or signal death.
	ExitCode int

	// Stdout contains the standard output of the command.
	Stdout string

	// Stderr contains the standard error output of the command.
	Stderr string

	// Duration is how long the command took to execute.
	Duration time.Duration

	// TimedOut is true if the command was killed due to timeout.
	TimedOut bool

	// StartedAt is when execution began.
	StartedAt time.Time
}

// Succeeded reports a clean zero exit without timeout.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut
}
