// Package probes implements the built-in metric probes.
//
// Each probe is an independent, idempotent, read-only inspection of one OS
// facility, yielding zero or more metric records. Probes are individually
// optional: when the backing file, counter, or utility is absent on a host,
// the probe contributes nothing and the run continues. A probe error never
// aborts the run - the pipeline logs it and moves on to the next probe.
//
// Most probes read through gopsutil v4. Probes backed by external utilities
// (ntpdate, dpkg, apt-get) go through internal/runner and skip silently when
// the binary is not in PATH.
package probes

import (
	"context"

	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/runner"
)

// Probe produces metric records from one OS facility.
type Probe interface {
	// Name identifies the probe in diagnostics.
	Name() string

	// Collect inspects the facility and returns the records it yields for
	// this run. A (nil, nil) return is the normal "nothing to report" case,
	// e.g. when the backing utility is not installed.
	Collect(ctx context.Context, run metric.Run) ([]metric.Record, error)
}

// Executor runs one external utility invocation with a bounded timeout.
// Satisfied by runner.Runner; tests substitute a fixture returning canned
// utility output.
type Executor interface {
	Run(ctx context.Context, path string, args ...string) (*runner.Result, error)
}

// LookPathFunc locates a utility binary. Defaults to runner.LookPath;
// injectable so tests can simulate present or absent utilities.
type LookPathFunc func(name string) (string, bool)

// Defaults returns the built-in probe set in its fixed execution order.
// The runner bounds utility invocations for the probes that shell out.
func Defaults(r *runner.Runner) []Probe {
	return []Probe{
		&ForkedProbe{StatPath: procStatPath},
		&ProcessesProbe{},
		&DiskProbe{},
		&SwapProbe{},
		&UptimeProbe{},
		&LoadProbe{},
		&UsersProbe{},
		&NetProbe{},
		&NTPProbe{Runner: r, Pool: DefaultNTPPool},
		&PackagesProbe{Runner: r},
		&UpdatesProbe{Runner: r},
	}
}
