// Package extensions implements the extension script contract: any
// executable file dropped into the extensions directory can contribute ad hoc
// metrics without recompiling the shipper.
//
// The output contract is one metric per stdout line, whitespace-separated:
//
//	<metric-suffix> <value>
//
// Only the first two tokens of a line are significant; trailing tokens are
// ignored, so scripts can leave debug columns in place. Lines with fewer than
// two tokens are skipped. A missing directory, a non-executable entry, a
// nonzero exit, or empty output all degrade to "no records from that
// extension" - never to a run failure.
package extensions

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/statline/statline/internal/logging"
	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/runner"
)

// Scanner discovers and executes extension scripts.
type Scanner struct {
	dir    string
	runner *runner.Runner
	logger *slog.Logger
}

// NewScanner creates a scanner over the given extensions directory.
func NewScanner(dir string, r *runner.Runner, logger *slog.Logger) *Scanner {
	return &Scanner{
		dir:    dir,
		runner: r,
		logger: logging.WithComponent(logger, "extensions"),
	}
}

// Collect runs every executable in the extensions directory, strictly one
// after another in name order, and returns the records they declare.
func (s *Scanner) Collect(ctx context.Context, run metric.Run) []metric.Record {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cannot read extensions directory",
				slog.String("dir", s.dir),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var records []metric.Record
	for _, name := range names {
		if ctx.Err() != nil {
			return records
		}
		path := filepath.Join(s.dir, name)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0111 == 0 {
			// Not an executable regular file: skip.
			continue
		}

		result, err := s.runner.Run(ctx, path)
		if err != nil {
			s.logger.Warn("extension failed to start",
				slog.String("extension", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !result.Succeeded() {
			s.logger.Warn("extension exited abnormally",
				slog.String("extension", name),
				slog.Int("exit_code", result.ExitCode),
				slog.Bool("timed_out", result.TimedOut),
			)
			continue
		}

		parsed := ParseOutput(run, result.Stdout)
		s.logger.Debug("extension collected",
			slog.String("extension", name),
			slog.Int("records", len(parsed)),
		)
		records = append(records, parsed...)
	}

	return records
}

// ParseOutput converts extension stdout into metric records under the given
// run context. Parsing is permissive: the first two whitespace-delimited
// tokens per line count, everything after them is ignored.
func ParseOutput(run metric.Run, output string) []metric.Record {
	var records []metric.Record
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		records = append(records, run.Record(fields[0], fields[1]))
	}
	return records
}
