// ntp.go implements the NTP clock skew probe.
package probes

import (
	"context"
	"strings"

	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/runner"
)

// DefaultNTPPool is the pool queried for the reference time.
const DefaultNTPPool = "pool.ntp.org"

// NTPProbe reports the offset between the local clock and an NTP pool as
// ntp-skew. The probe is double-gated: it requires elevated privilege, and
// it only queries on even minutes so a fleet of hosts does not hammer the
// public pool every run. The minute comes from the run clock, so tests can
// pin either parity.
type NTPProbe struct {
	Runner Executor

	// Pool is the NTP server to query. Defaults to DefaultNTPPool.
	Pool string

	// Lookup finds the ntpdate binary. Defaults to runner.LookPath.
	Lookup LookPathFunc
}

func (p *NTPProbe) Name() string { return "ntp" }

func (p *NTPProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	if !run.Privileged {
		return nil, nil
	}
	if run.Now().Minute()%2 != 0 {
		return nil, nil
	}

	lookup := p.Lookup
	if lookup == nil {
		lookup = runner.LookPath
	}
	path, ok := lookup("ntpdate")
	if !ok {
		return nil, nil
	}

	pool := p.Pool
	if pool == "" {
		pool = DefaultNTPPool
	}

	result, err := p.Runner.Run(ctx, path, "-q", pool)
	if err != nil || !result.Succeeded() {
		// Pool unreachable or query refused: no record this run.
		return nil, nil
	}

	offset, ok := ParseNTPOffset(result.Stdout)
	if !ok {
		return nil, nil
	}
	return []metric.Record{run.Record("ntp-skew", offset)}, nil
}

// ParseNTPOffset extracts the offset value from ntpdate -q output, e.g.
//
//	14 Mar 09:26:53 ntpdate[4721]: adjust time server 192.0.2.1 offset -0.002831 sec
//
// The token following the last "offset" keyword is the skew in seconds.
func ParseNTPOffset(output string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		for j, f := range fields {
			if f == "offset" && j+1 < len(fields) {
				return fields[j+1], true
			}
		}
	}
	return "", false
}
