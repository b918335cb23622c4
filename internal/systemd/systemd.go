// Package systemd integrates daemon mode with systemd service management:
// sd_notify READY/STOPPING notifications for Type=notify units, and watchdog
// pings tied to collection pass health - a daemon whose passes have stalled
// stops petting the watchdog and lets systemd restart it.
//
// Every call degrades to a no-op when the process is not running under
// systemd (one-shot runs, cron invocation, development machines).
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd the shipper has finished initialization and the
// collection schedule is running.
func NotifyReady() bool {
	return notify(daemon.SdNotifyReady)
}

// NotifyStopping tells systemd the shipper is beginning shutdown, so it
// waits for the drain instead of killing the process.
func NotifyStopping() bool {
	return notify(daemon.SdNotifyStopping)
}

func notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("systemd notification failed",
			slog.String("state", state),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !sent {
		slog.Debug("systemd notification socket not available",
			slog.String("state", state),
		)
	}
	return sent
}

// PassHealthFunc reports whether the shipper is still completing collection
// passes. Wired to the pipeline's last-completion clock in daemon mode.
type PassHealthFunc func() bool

// StartWatchdog starts watchdog pings when systemd provides a WatchdogSec
// value, petting every interval/2 as the systemd documentation recommends.
// The passesHealthy function is consulted before each ping: while it reports
// false the ping is withheld, and systemd eventually restarts the service.
//
// Returns immediately when the watchdog is not configured. The ping
// goroutine exits when the context is cancelled.
func StartWatchdog(ctx context.Context, passesHealthy PassHealthFunc) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		slog.Debug("systemd watchdog not enabled")
		return
	}

	ping := interval / 2
	slog.Info("starting systemd watchdog",
		slog.Duration("watchdog_interval", interval),
		slog.Duration("ping_interval", ping),
	)

	go func() {
		ticker := time.NewTicker(ping)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !passesHealthy() {
					slog.Warn("collection passes stalled, withholding watchdog ping")
					continue
				}
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					slog.Warn("watchdog ping failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}
