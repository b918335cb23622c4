// statline - Entry Point
//
// statline gathers a fixed set of host health metrics (uptime, disk usage,
// swap activity, process counts, network counters, NTP skew, package counts)
// plus arbitrary metrics from extension scripts, stamps them with a single
// per-run timestamp and the short hostname, and ships each one as a
// plaintext line over TCP to the configured collector.
//
// Configuration is loaded from /etc/statline/config.yaml and/or
// /etc/statline/statline.env (or paths given by -config / -env-file), with
// STATLINE_* and bare HOST/PORT environment variables taking precedence.
//
// The default invocation performs exactly one collection pass and exits,
// which suits an external cron entry. With -daemon the shipper stays
// resident and runs passes on the configured cron schedule, notifying
// systemd of readiness when managed as a Type=notify service.
//
// Exit codes: 0 on normal completion (including dry-run and help), 1 when
// configuration cannot be loaded. Collection and transport failures never
// change the exit code - telemetry must not destabilize the host.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/statline/statline/internal/config"
	"github.com/statline/statline/internal/extensions"
	"github.com/statline/statline/internal/logging"
	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/pipeline"
	"github.com/statline/statline/internal/probes"
	"github.com/statline/statline/internal/runner"
	"github.com/statline/statline/internal/sender"
	"github.com/statline/statline/internal/systemd"
	"github.com/statline/statline/internal/version"
)

// How long to wait for an in-flight pass when a daemon shuts down.
const drainTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to YAML configuration file")
	envPath := flag.String("env-file", config.DefaultEnvPath, "path to KEY=VALUE environment file")
	dryRun := flag.Bool("n", false, "dry-run: collect but do not transmit")
	verbose := flag.Bool("v", false, "print every record to stdout")
	timeoutSecs := flag.Int("t", 0, "send/probe timeout in seconds (overrides config)")
	hostname := flag.String("hostname", "", "metric prefix hostname (overrides config)")
	daemonMode := flag.Bool("daemon", false, "stay resident and collect on the configured schedule")
	writeConfig := flag.Bool("write-config", false, "write a starter config file to the -config path and exit")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	if *writeConfig {
		starter := &config.Config{
			Host:          "graphite.example.com",
			Port:          2003,
			Timeout:       5,
			ExtensionsDir: config.DefaultExtensionsDir,
			Schedule:      "@every 1m",
			LogLevel:      "info",
		}
		if err := config.Save(*configPath, starter); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote starter configuration to %s\n", *configPath)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		// Fatal: no collector endpoint means nothing to do. Use basic
		// stderr output before the logger is configured.
		fmt.Fprintf(os.Stderr, "ERROR: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides beat every configuration source.
	if *timeoutSecs > 0 {
		cfg.Timeout = *timeoutSecs
	}
	if *hostname != "" {
		cfg.Hostname = *hostname
	}

	logger := logging.SetupLogger(cfg.LogLevel)

	host := metric.ShortHostname(cfg.Hostname)
	privileged := os.Geteuid() == 0
	timeout := time.Duration(cfg.Timeout) * time.Second

	logger.Info("statline starting",
		slog.String("version", version.Version),
		slog.String("collector", cfg.Addr()),
		slog.String("hostname", host),
		slog.Bool("privileged", privileged),
		slog.Bool("dry_run", *dryRun),
		slog.Bool("daemon", *daemonMode),
	)

	r := runner.New(timeout)
	snd := sender.New(cfg.Addr(), timeout, *verbose, *dryRun, logger)
	exts := extensions.NewScanner(cfg.ExtensionsDir, r, logger)
	pipe := pipeline.New(probes.Defaults(r), exts, snd, logger)

	// The run context is rebuilt per pass: each pass gets one fresh
	// timestamp that all of its records share.
	pass := func(ctx context.Context) {
		run := metric.NewRun(host, time.Now, privileged)
		if err := pipe.Run(ctx, run); err != nil {
			logger.Warn("run interrupted", slog.String("error", err.Error()))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if !*daemonMode {
		pass(ctx)
		return
	}

	// Daemon mode: run passes on the configured cron schedule. A pass that
	// outlasts its interval is skipped rather than stacked.
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		logger.Error("invalid schedule",
			slog.String("schedule", cfg.Schedule),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	scheduler.Schedule(schedule, cron.FuncJob(func() { pass(ctx) }))

	// A pass should complete every schedule interval; the watchdog stops
	// being petted once two intervals go by without one.
	next := schedule.Next(time.Now())
	healthWindow := 2 * schedule.Next(next).Sub(next)

	scheduler.Start()
	systemd.NotifyReady()
	systemd.StartWatchdog(ctx, func() bool {
		return pipe.CompletedWithin(healthWindow)
	})
	logger.Info("daemon ready", slog.String("schedule", cfg.Schedule))

	// First pass immediately; subsequent passes follow the schedule.
	pass(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	systemd.NotifyStopping()

	// Let an in-flight pass drain, bounded.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(drainTimeout):
		logger.Warn("shutdown drain timed out")
	}
	logger.Info("shutdown complete")
}
