// proc.go implements the process-related probes: the kernel's total fork
// counter and the count of currently running processes.
package probes

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/statline/statline/internal/metric"
)

const procStatPath = "/proc/stat"

// ForkedProbe reports the kernel's cumulative fork count from /proc/stat
// as process.forked. gopsutil exposes no total-forks counter, so the field
// is scraped directly; a missing or unreadable file skips the probe.
type ForkedProbe struct {
	// StatPath is the stat file to scrape, normally /proc/stat.
	StatPath string
}

func (p *ForkedProbe) Name() string { return "forked" }

func (p *ForkedProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	f, err := os.Open(p.StatPath)
	if err != nil {
		// Source file absent (non-Linux, restricted container): skip.
		return nil, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "processes" {
			return []metric.Record{run.Record("process.forked", fields[1])}, nil
		}
	}
	return nil, scanner.Err()
}

// ProcessesProbe reports the number of running processes as process.count.
type ProcessesProbe struct{}

func (p *ProcessesProbe) Name() string { return "processes" }

func (p *ProcessesProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return []metric.Record{run.Record("process.count", strconv.Itoa(len(pids)))}, nil
}
