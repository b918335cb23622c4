// net.go implements the per-interface network byte counter probe.
package probes

import (
	"context"
	"strconv"

	gopsnet "github.com/shirou/gopsutil/v4/net"

	"github.com/statline/statline/internal/metric"
)

// NetProbe reports cumulative receive and transmit byte counters per network
// interface as net.<iface>.rx and net.<iface>.tx. An interface the kernel
// lists without any traffic counters at all (no bytes, no packets) is
// treated as stale and skipped rather than reported as zeros.
type NetProbe struct{}

func (p *NetProbe) Name() string { return "net" }

func (p *NetProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	var records []metric.Record
	for _, c := range counters {
		if c.Name == "" {
			continue
		}
		if c.BytesRecv == 0 && c.BytesSent == 0 && c.PacketsRecv == 0 && c.PacketsSent == 0 {
			continue
		}
		records = append(records,
			run.Record("net."+c.Name+".rx", strconv.FormatUint(c.BytesRecv, 10)),
			run.Record("net."+c.Name+".tx", strconv.FormatUint(c.BytesSent, 10)),
		)
	}
	return records, nil
}
