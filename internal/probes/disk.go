// disk.go implements the per-mountpoint disk usage probe.
package probes

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/statline/statline/internal/metric"
)

// DiskProbe reports the used-space percentage of every mounted filesystem
// whose mountpoint begins with "/", as mount.<label>. The percent value is
// truncated to a whole number, matching the df-style output the collector
// side expects. All mounts are enumerated, including virtual filesystems
// like tmpfs; zero-capacity pseudo filesystems (proc, sysfs) are dropped
// the same way a plain df omits them.
type DiskProbe struct{}

func (p *DiskProbe) Name() string { return "disk" }

func (p *DiskProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	parts, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	var records []metric.Record
	seen := make(map[string]bool)

	for _, part := range parts {
		if !strings.HasPrefix(part.Mountpoint, "/") {
			continue
		}
		if seen[part.Mountpoint] {
			// Bind mounts and overlay stacks can list a mountpoint twice.
			continue
		}
		seen[part.Mountpoint] = true

		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			// One unreadable filesystem skips that record only.
			continue
		}
		if usage.Total == 0 {
			continue
		}

		value := strconv.Itoa(int(usage.UsedPercent))
		records = append(records, run.Record("mount."+MountLabel(part.Mountpoint), value))
	}

	return records, nil
}

// MountLabel maps a mountpoint path to its metric label: the final path
// element, with the root filesystem labeled "root".
func MountLabel(mountpoint string) string {
	if mountpoint == "/" {
		return "root"
	}
	return path.Base(mountpoint)
}
