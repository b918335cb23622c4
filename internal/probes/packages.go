// packages.go implements the installed-package and pending-update probes
// for dpkg/apt based systems. Both probes scrape utility output as opaque
// text and skip silently on hosts without the package manager.
package probes

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/runner"
)

// PackagesProbe reports the number of installed packages as
// packages.installed.
type PackagesProbe struct {
	Runner Executor

	// Lookup finds the dpkg binary. Defaults to runner.LookPath.
	Lookup LookPathFunc
}

func (p *PackagesProbe) Name() string { return "packages" }

func (p *PackagesProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	lookup := p.Lookup
	if lookup == nil {
		lookup = runner.LookPath
	}
	path, ok := lookup("dpkg")
	if !ok {
		return nil, nil
	}

	result, err := p.Runner.Run(ctx, path, "-l")
	if err != nil || !result.Succeeded() {
		return nil, nil
	}

	count := CountInstalled(result.Stdout)
	return []metric.Record{run.Record("packages.installed", strconv.Itoa(count))}, nil
}

// CountInstalled counts the installed-package entries in dpkg -l output:
// the lines whose status column reads "ii".
func CountInstalled(output string) int {
	count := 0
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "ii" {
			count++
		}
	}
	return count
}

// UpdatesProbe reports the number of packages with a pending upgrade as
// packages.pending-updates. Simulating an upgrade needs the apt lists, so
// the probe is gated on elevated privilege; non-privileged runs skip it.
type UpdatesProbe struct {
	Runner Executor

	// Lookup finds the apt-get binary. Defaults to runner.LookPath.
	Lookup LookPathFunc
}

func (p *UpdatesProbe) Name() string { return "updates" }

func (p *UpdatesProbe) Collect(ctx context.Context, run metric.Run) ([]metric.Record, error) {
	if !run.Privileged {
		return nil, nil
	}

	lookup := p.Lookup
	if lookup == nil {
		lookup = runner.LookPath
	}
	path, ok := lookup("apt-get")
	if !ok {
		return nil, nil
	}

	result, err := p.Runner.Run(ctx, path, "-s", "upgrade")
	if err != nil || !result.Succeeded() {
		return nil, nil
	}

	count := CountPendingUpdates(result.Stdout)
	return []metric.Record{run.Record("packages.pending-updates", strconv.Itoa(count))}, nil
}

// CountPendingUpdates counts the "Inst <pkg> ..." action lines in
// apt-get -s upgrade output, one per package that would be upgraded.
func CountPendingUpdates(output string) int {
	count := 0
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "Inst ") {
			count++
		}
	}
	return count
}
