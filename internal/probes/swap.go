// swap.go implements the swap activity probe.
package probes

import (
	"context"
	"strconv"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/statline/statline/internal/metric"
)

// SwapProbe reports cumulative swap-in and swap-out byte counters as
// swap.in and swap.out.
type SwapProbe struct{}

func (p *SwapProbe) Name() string { return "swap" }

func (p *SwapProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return []metric.Record{
		run.Record("swap.in", strconv.FormatUint(swap.Sin, 10)),
		run.Record("swap.out", strconv.FormatUint(swap.Sout, 10)),
	}, nil
}
