// system.go implements the uptime, load average, and logged-in user probes.
package probes

import (
	"context"
	"strconv"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/statline/statline/internal/metric"
)

// UptimeProbe reports system uptime in whole seconds as uptime.
type UptimeProbe struct{}

func (p *UptimeProbe) Name() string { return "uptime" }

func (p *UptimeProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return []metric.Record{run.Record("uptime", strconv.FormatUint(uptime, 10))}, nil
}

// LoadProbe reports the 1-minute load average as load.
type LoadProbe struct{}

func (p *LoadProbe) Name() string { return "load" }

func (p *LoadProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	value := strconv.FormatFloat(avg.Load1, 'f', 2, 64)
	return []metric.Record{run.Record("load", value)}, nil
}

// UsersProbe reports the count of logged-in user sessions as users.
type UsersProbe struct{}

func (p *UsersProbe) Name() string { return "users" }

func (p *UsersProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	users, err := host.UsersWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return []metric.Record{run.Record("users", strconv.Itoa(len(users)))}, nil
}
