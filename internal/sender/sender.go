// Package sender ships metric records to the collector endpoint.
//
// The wire protocol is deliberately primitive: one TCP connection per record,
// one newline-terminated plaintext line per connection, no framing, no
// acknowledgment read back. Delivery is fire-and-forget - a connect or write
// failure drops that record and never escalates to a process failure, since a
// metrics sidecar must not destabilize the host it monitors.
package sender

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/statline/statline/internal/logging"
	"github.com/statline/statline/internal/metric"
)

// DialFunc opens the collector connection. Matches net.DialTimeout so tests
// can substitute an in-memory dialer.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// Sender writes metric records to the configured collector.
// Verbose and dry-run are orthogonal: verbose echoes every record to stdout
// whether or not it is transmitted, dry-run suppresses transmission only.
type Sender struct {
	addr    string
	timeout time.Duration
	verbose bool
	dryRun  bool
	logger  *slog.Logger

	out  io.Writer
	dial DialFunc
}

// New creates a sender for the given collector address (host:port form).
func New(addr string, timeout time.Duration, verbose, dryRun bool, logger *slog.Logger) *Sender {
	return &Sender{
		addr:    addr,
		timeout: timeout,
		verbose: verbose,
		dryRun:  dryRun,
		logger:  logging.WithComponent(logger, "sender"),
		out:     os.Stdout,
		dial:    net.DialTimeout,
	}
}

// SetDial replaces the dialer. Used by tests to count and inspect sends.
func (s *Sender) SetDial(dial DialFunc) {
	s.dial = dial
}

// SetOutput redirects verbose record echoing. Used by tests.
func (s *Sender) SetOutput(out io.Writer) {
	s.out = out
}

// Send handles one record: echo when verbose, then transmit unless dry-run.
// The returned error is advisory - callers log it and continue with the next
// record.
func (s *Sender) Send(rec metric.Record) error {
	line := rec.Line()

	if s.verbose {
		fmt.Fprint(s.out, line)
	}
	if s.dryRun {
		return nil
	}

	conn, err := s.dial("tcp", s.addr, s.timeout)
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.addr, err)
	}
	defer conn.Close()

	// Bound the write as well as the dial; a stalled collector must only
	// cost this one record, not the rest of the run.
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	if _, err := io.WriteString(conn, line); err != nil {
		return fmt.Errorf("write to %s: %w", s.addr, err)
	}

	s.logger.Debug("record sent", slog.String("name", rec.Name))
	return nil
}
