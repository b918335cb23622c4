// Package pipeline wires one collection pass together: built-in probes run
// strictly one after another, then extension scripts, and every record is
// handed to the sender as it is produced.
//
// Execution is fully sequential and synchronous; the only shared state is
// the completion clock the daemon's watchdog reads. A failing probe,
// extension, or send costs only its own records; the pass always continues
// to the end unless the context is cancelled.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/statline/statline/internal/extensions"
	"github.com/statline/statline/internal/logging"
	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/probes"
)

// Sender forwards one record to the collector. Satisfied by sender.Sender.
type Sender interface {
	Send(rec metric.Record) error
}

// Pipeline executes one collect-and-ship pass.
type Pipeline struct {
	probes []probes.Probe
	exts   *extensions.Scanner
	sender Sender
	logger *slog.Logger

	// lastComplete is when the most recent pass ran to the end without
	// cancellation. Daemon mode reads it through CompletedWithin to decide
	// whether the systemd watchdog should still be petted.
	mu           sync.Mutex
	lastComplete time.Time
}

// New assembles a pipeline. exts may be nil when extension scanning is
// disabled. The completion clock starts at construction, so a fresh daemon
// counts as healthy until its first window elapses.
func New(probeSet []probes.Probe, exts *extensions.Scanner, s Sender, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		probes:       probeSet,
		exts:         exts,
		sender:       s,
		logger:       logging.WithComponent(logger, "pipeline"),
		lastComplete: time.Now(),
	}
}

// Run performs one pass under the given run context. It returns an error
// only when the context is cancelled; every other failure mode is a logged
// skip.
func (p *Pipeline) Run(ctx context.Context, run metric.Run) error {
	collected := 0
	dropped := 0

	for _, probe := range p.probes {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := probe.Collect(ctx, run)
		if err != nil {
			// Environmental skip: this probe has nothing for this host.
			p.logger.Debug("probe skipped",
				slog.String("probe", probe.Name()),
				slog.String("reason", err.Error()),
			)
			continue
		}

		collected += len(records)
		dropped += p.ship(records)
	}

	if p.exts != nil {
		records := p.exts.Collect(ctx, run)
		collected += len(records)
		dropped += p.ship(records)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.lastComplete = time.Now()
	p.mu.Unlock()

	p.logger.Info("run complete",
		slog.Int64("timestamp", run.Timestamp),
		slog.Int("collected", collected),
		slog.Int("dropped", dropped),
	)
	return nil
}

// LastCompleted returns when the most recent pass finished uncancelled.
func (p *Pipeline) LastCompleted() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastComplete
}

// CompletedWithin reports whether a pass completed inside the given window.
// Daemon mode feeds this to the systemd watchdog: a scheduler that has
// stopped producing passes goes unhealthy once the window expires.
func (p *Pipeline) CompletedWithin(window time.Duration) bool {
	return time.Since(p.LastCompleted()) <= window
}

// ship forwards records one at a time, returning how many were dropped.
// A send failure is logged and never retried.
func (p *Pipeline) ship(records []metric.Record) int {
	dropped := 0
	for _, rec := range records {
		if err := p.sender.Send(rec); err != nil {
			p.logger.Warn("record dropped",
				slog.String("name", rec.Name),
				slog.String("error", err.Error()),
			)
			dropped++
		}
	}
	return dropped
}
