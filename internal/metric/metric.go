// Package metric defines the metric record produced by probes and extensions,
// and the immutable per-run context shared by everything that produces one.
//
// Every record emitted during a single collection pass carries the same
// timestamp, captured exactly once when the run context is created. The
// receiving system correlates records by that shared instant even though the
// individual probes take measurable wall-clock time to execute.
package metric

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Record is one telemetry data point: a dot-delimited hierarchical name, a
// value (numeric in the common case, but not validated), and epoch seconds.
type Record struct {
	Name      string
	Value     string
	Timestamp int64
}

// Line renders the record as one plaintext wire line, newline-terminated:
//
//	<name> <value> <epoch-seconds>\n
//
// This is the complete wire format - no framing, no acknowledgment.
func (r Record) Line() string {
	return fmt.Sprintf("%s %s %d\n", r.Name, r.Value, r.Timestamp)
}

// Run is the immutable context for one collection pass. It is created once at
// run start and threaded explicitly into every probe and extension call, so
// probes stay independently testable with injected fixtures.
type Run struct {
	// Hostname is the unqualified host label prefixed to every metric name.
	// May be empty if the system cannot report one; records then carry an
	// empty prefix rather than failing.
	Hostname string

	// Timestamp is the shared epoch-seconds instant for every record of
	// this run.
	Timestamp int64

	// Privileged reports whether the process runs with effective root.
	// Privilege-gated probes check this and skip rather than fail.
	Privileged bool

	// Now is the clock used by probes with time-based policies (the NTP
	// even-minute gate). Injectable so tests can pin the minute.
	Now func() time.Time
}

// NewRun captures the run context: the shared timestamp is read from the
// clock exactly once, here.
func NewRun(hostname string, now func() time.Time, privileged bool) Run {
	if now == nil {
		now = time.Now
	}
	return Run{
		Hostname:   hostname,
		Timestamp:  now().Unix(),
		Privileged: privileged,
		Now:        now,
	}
}

// Record builds a full record from a metric path suffix: the hostname prefix
// and the shared run timestamp are attached here and nowhere else.
func (r Run) Record(path, value string) Record {
	return Record{
		Name:      r.Hostname + "." + path,
		Value:     value,
		Timestamp: r.Timestamp,
	}
}

// ShortHostname resolves the unqualified hostname used as the metric prefix.
// An explicit override wins; otherwise the system hostname is queried and
// truncated at the first dot. An empty result is propagated as-is.
func ShortHostname(override string) string {
	name := override
	if name == "" {
		name, _ = os.Hostname()
	}
	if idx := strings.IndexByte(name, '.'); idx != -1 {
		name = name[:idx]
	}
	return name
}
