// Package probes tests: fixture-driven parsing tests plus live collection
// checks against the host running the tests.
package probes

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/statline/statline/internal/metric"
	"github.com/statline/statline/internal/runner"
)

// testRun builds a run context with a fixed clock so records are comparable.
func testRun(privileged bool, minute int) metric.Run {
	clock := func() time.Time {
		return time.Date(2026, 3, 14, 9, minute, 53, 0, time.UTC)
	}
	return metric.NewRun("testhost", clock, privileged)
}

func TestForkedProbe(t *testing.T) {
	run := testRun(false, 10)

	t.Run("parses processes field from stat file", func(t *testing.T) {
		statFile := filepath.Join(t.TempDir(), "stat")
		content := "cpu  251993 1123 104103 8314460 10551 0 1925 0 0 0\n" +
			"intr 14690529 33 10 0\n" +
			"ctxt 23893074\n" +
			"btime 1700000000\n" +
			"processes 94783\n" +
			"procs_running 2\n" +
			"procs_blocked 0\n"
		if err := os.WriteFile(statFile, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		probe := &ForkedProbe{StatPath: statFile}
		records, err := probe.Collect(context.Background(), run)
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if records[0].Name != "testhost.process.forked" {
			t.Errorf("Name = %q", records[0].Name)
		}
		if records[0].Value != "94783" {
			t.Errorf("Value = %q, want 94783", records[0].Value)
		}
		if records[0].Timestamp != run.Timestamp {
			t.Errorf("Timestamp = %d, want run timestamp %d", records[0].Timestamp, run.Timestamp)
		}
	})

	t.Run("missing stat file skips silently", func(t *testing.T) {
		probe := &ForkedProbe{StatPath: "/nonexistent/stat"}
		records, err := probe.Collect(context.Background(), run)
		if err != nil {
			t.Fatalf("expected silent skip, got error: %v", err)
		}
		if records != nil {
			t.Errorf("expected no records, got %v", records)
		}
	})

	t.Run("stat file without processes field yields nothing", func(t *testing.T) {
		statFile := filepath.Join(t.TempDir(), "stat")
		if err := os.WriteFile(statFile, []byte("cpu 1 2 3\n"), 0644); err != nil {
			t.Fatal(err)
		}
		probe := &ForkedProbe{StatPath: statFile}
		records, err := probe.Collect(context.Background(), run)
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("got %d records, want 0", len(records))
		}
	})
}

func TestMountLabel(t *testing.T) {
	tests := []struct {
		mountpoint string
		want       string
	}{
		{"/", "root"},
		{"/data", "data"},
		{"/var/log", "log"},
		{"/mnt/backup-01", "backup-01"},
	}

	for _, tt := range tests {
		if got := MountLabel(tt.mountpoint); got != tt.want {
			t.Errorf("MountLabel(%q) = %q, want %q", tt.mountpoint, got, tt.want)
		}
	}
}

func TestParseNTPOffset(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		ok     bool
	}{
		{
			name:   "adjust line",
			output: "14 Mar 09:26:53 ntpdate[4721]: adjust time server 192.0.2.1 offset -0.002831 sec\n",
			want:   "-0.002831",
			ok:     true,
		},
		{
			name: "offset on last line wins",
			output: "server 192.0.2.1, stratum 2, offset 0.000122, delay 0.02560\n" +
				"14 Mar 09:26:53 ntpdate[4721]: adjust time server 192.0.2.1 offset 0.000119 sec\n",
			want: "0.000119",
			ok:   true,
		},
		{
			name:   "no offset token",
			output: "14 Mar 09:26:53 ntpdate[4721]: no server suitable for synchronization found\n",
			ok:     false,
		},
		{
			name:   "empty output",
			output: "",
			ok:     false,
		},
		{
			name:   "offset as trailing token",
			output: "something ends with offset\n",
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNTPOffset(tt.output)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("offset = %q, want %q", got, tt.want)
			}
		})
	}
}

// stubExecutor returns canned utility output and records every invocation.
type stubExecutor struct {
	stdout   string
	exitCode int
	err      error
	calls    [][]string
}

func (s *stubExecutor) Run(ctx context.Context, path string, args ...string) (*runner.Result, error) {
	s.calls = append(s.calls, append([]string{path}, args...))
	if s.err != nil {
		return nil, s.err
	}
	return &runner.Result{Stdout: s.stdout, ExitCode: s.exitCode}, nil
}

func foundAt(path string) LookPathFunc {
	return func(name string) (string, bool) { return path, true }
}

func notFound(name string) (string, bool) { return "", false }

func TestNTPProbeGating(t *testing.T) {
	exec := &stubExecutor{}
	probe := &NTPProbe{Runner: exec, Lookup: foundAt("/usr/sbin/ntpdate")}

	t.Run("non-privileged run skips", func(t *testing.T) {
		records, err := probe.Collect(context.Background(), testRun(false, 10))
		if err != nil || records != nil {
			t.Errorf("expected silent skip, got records=%v err=%v", records, err)
		}
	})

	t.Run("odd minute skips even when privileged", func(t *testing.T) {
		records, err := probe.Collect(context.Background(), testRun(true, 11))
		if err != nil || records != nil {
			t.Errorf("expected silent skip, got records=%v err=%v", records, err)
		}
	})

	t.Run("gated paths never invoke the utility", func(t *testing.T) {
		if len(exec.calls) != 0 {
			t.Errorf("utility invoked %d times behind the gate", len(exec.calls))
		}
	})

	t.Run("missing utility skips", func(t *testing.T) {
		p := &NTPProbe{Runner: exec, Lookup: notFound}
		records, err := p.Collect(context.Background(), testRun(true, 10))
		if err != nil || records != nil {
			t.Errorf("expected silent skip, got records=%v err=%v", records, err)
		}
	})
}

func TestNTPProbeQuery(t *testing.T) {
	run := testRun(true, 10)

	t.Run("privileged even-minute run queries and parses", func(t *testing.T) {
		exec := &stubExecutor{
			stdout: "14 Mar 09:10:53 ntpdate[4721]: adjust time server 192.0.2.1 offset -0.002831 sec\n",
		}
		probe := &NTPProbe{Runner: exec, Lookup: foundAt("/usr/sbin/ntpdate")}

		records, err := probe.Collect(context.Background(), run)
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if records[0].Name != "testhost.ntp-skew" || records[0].Value != "-0.002831" {
			t.Errorf("record = %+v", records[0])
		}
		if records[0].Timestamp != run.Timestamp {
			t.Error("record missing shared timestamp")
		}

		if len(exec.calls) != 1 {
			t.Fatalf("utility invoked %d times, want 1", len(exec.calls))
		}
		want := []string{"/usr/sbin/ntpdate", "-q", DefaultNTPPool}
		for i, arg := range want {
			if exec.calls[0][i] != arg {
				t.Errorf("invocation = %v, want %v", exec.calls[0], want)
				break
			}
		}
	})

	t.Run("configured pool is queried", func(t *testing.T) {
		exec := &stubExecutor{stdout: "adjust time server 10.0.0.1 offset 0.5 sec\n"}
		probe := &NTPProbe{Runner: exec, Pool: "ntp.internal", Lookup: foundAt("/usr/sbin/ntpdate")}

		if _, err := probe.Collect(context.Background(), run); err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if len(exec.calls) != 1 || exec.calls[0][2] != "ntp.internal" {
			t.Errorf("invocation = %v, want pool ntp.internal", exec.calls)
		}
	})

	t.Run("failed query yields no record", func(t *testing.T) {
		exec := &stubExecutor{
			stdout:   "no server suitable for synchronization found\n",
			exitCode: 1,
		}
		probe := &NTPProbe{Runner: exec, Lookup: foundAt("/usr/sbin/ntpdate")}

		records, err := probe.Collect(context.Background(), run)
		if err != nil || records != nil {
			t.Errorf("expected silent skip, got records=%v err=%v", records, err)
		}
	})
}

func TestCountInstalled(t *testing.T) {
	output := "Desired=Unknown/Install/Remove/Purge/Hold\n" +
		"| Status=Not/Inst/Conf-files/Unpacked/halF-conf/Half-inst/trig-aWait/Trig-pend\n" +
		"|/ Err?=(none)/Reinst-required (Status,Err: uppercase=bad)\n" +
		"||/ Name           Version      Architecture Description\n" +
		"+++-==============-============-============-==========================\n" +
		"ii  adduser        3.118        all          add and remove users\n" +
		"ii  apt            2.2.4        amd64        commandline package manager\n" +
		"rc  old-package    1.0          amd64        removed, config remains\n" +
		"ii  base-files     11.1         amd64        Debian base system files\n"

	if got := CountInstalled(output); got != 3 {
		t.Errorf("CountInstalled = %d, want 3", got)
	}

	if got := CountInstalled(""); got != 0 {
		t.Errorf("CountInstalled(empty) = %d, want 0", got)
	}
}

func TestPackagesProbeQuery(t *testing.T) {
	run := testRun(false, 10)

	t.Run("counts installed packages", func(t *testing.T) {
		exec := &stubExecutor{
			stdout: "ii  adduser 3.118 all add and remove users\n" +
				"ii  apt 2.2.4 amd64 commandline package manager\n" +
				"rc  old-package 1.0 amd64 removed, config remains\n",
		}
		probe := &PackagesProbe{Runner: exec, Lookup: foundAt("/usr/bin/dpkg")}

		records, err := probe.Collect(context.Background(), run)
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if records[0].Name != "testhost.packages.installed" || records[0].Value != "2" {
			t.Errorf("record = %+v", records[0])
		}
	})

	t.Run("missing dpkg skips", func(t *testing.T) {
		probe := &PackagesProbe{Runner: &stubExecutor{}, Lookup: notFound}
		records, err := probe.Collect(context.Background(), run)
		if err != nil || records != nil {
			t.Errorf("expected silent skip, got records=%v err=%v", records, err)
		}
	})
}

func TestUpdatesProbeQuery(t *testing.T) {
	exec := &stubExecutor{
		stdout: "Inst libssl3 [3.0.2-0ubuntu1.9] (3.0.2-0ubuntu1.10)\n" +
			"Inst openssl [3.0.2-0ubuntu1.9] (3.0.2-0ubuntu1.10)\n" +
			"Conf libssl3 (3.0.2-0ubuntu1.10)\n",
	}
	probe := &UpdatesProbe{Runner: exec, Lookup: foundAt("/usr/bin/apt-get")}

	records, err := probe.Collect(context.Background(), testRun(true, 10))
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Name != "testhost.packages.pending-updates" || records[0].Value != "2" {
		t.Errorf("record = %+v", records[0])
	}
	if len(exec.calls) != 1 || exec.calls[0][1] != "-s" || exec.calls[0][2] != "upgrade" {
		t.Errorf("invocation = %v, want apt-get -s upgrade", exec.calls)
	}
}

func TestCountPendingUpdates(t *testing.T) {
	output := "Reading package lists...\n" +
		"Building dependency tree...\n" +
		"The following packages will be upgraded:\n" +
		"  libssl3 openssl\n" +
		"2 upgraded, 0 newly installed, 0 to remove and 0 not upgraded.\n" +
		"Inst libssl3 [3.0.2-0ubuntu1.9] (3.0.2-0ubuntu1.10 Ubuntu:22.04/jammy-updates [amd64])\n" +
		"Inst openssl [3.0.2-0ubuntu1.9] (3.0.2-0ubuntu1.10 Ubuntu:22.04/jammy-updates [amd64])\n" +
		"Conf libssl3 (3.0.2-0ubuntu1.10 Ubuntu:22.04/jammy-updates [amd64])\n" +
		"Conf openssl (3.0.2-0ubuntu1.10 Ubuntu:22.04/jammy-updates [amd64])\n"

	if got := CountPendingUpdates(output); got != 2 {
		t.Errorf("CountPendingUpdates = %d, want 2", got)
	}
}

func TestUpdatesProbeNonPrivileged(t *testing.T) {
	probe := &UpdatesProbe{Runner: runner.New(time.Second)}

	records, err := probe.Collect(context.Background(), testRun(false, 10))
	if err != nil || records != nil {
		t.Errorf("expected silent skip, got records=%v err=%v", records, err)
	}
}

// TestLiveProbes runs the gopsutil-backed probes against the host executing
// the tests. Values vary by machine, so assertions check shape only: no
// error, the shared run timestamp, and the hostname prefix on every record.
func TestLiveProbes(t *testing.T) {
	run := testRun(false, 10)
	ctx := context.Background()

	liveProbes := []Probe{
		&ProcessesProbe{},
		&DiskProbe{},
		&SwapProbe{},
		&UptimeProbe{},
		&LoadProbe{},
		&NetProbe{},
	}

	for _, probe := range liveProbes {
		t.Run(probe.Name(), func(t *testing.T) {
			records, err := probe.Collect(ctx, run)
			if err != nil {
				// A probe error is a skip condition, never fatal.
				t.Logf("probe %s unavailable here: %v", probe.Name(), err)
				return
			}
			for _, rec := range records {
				if !strings.HasPrefix(rec.Name, "testhost.") {
					t.Errorf("record %q missing hostname prefix", rec.Name)
				}
				if rec.Timestamp != run.Timestamp {
					t.Errorf("record %q timestamp %d, want shared %d",
						rec.Name, rec.Timestamp, run.Timestamp)
				}
				if rec.Value == "" {
					t.Errorf("record %q has empty value", rec.Name)
				}
			}
		})
	}

	t.Run("uptime is whole seconds", func(t *testing.T) {
		records, err := (&UptimeProbe{}).Collect(ctx, run)
		if err != nil {
			t.Skipf("uptime unavailable: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if _, err := strconv.ParseUint(records[0].Value, 10, 64); err != nil {
			t.Errorf("uptime value %q is not an unsigned integer", records[0].Value)
		}
	})

	t.Run("disk percents are whole numbers in range", func(t *testing.T) {
		records, err := (&DiskProbe{}).Collect(ctx, run)
		if err != nil {
			t.Skipf("disk unavailable: %v", err)
		}
		for _, rec := range records {
			pct, err := strconv.Atoi(rec.Value)
			if err != nil {
				t.Errorf("record %q value %q is not a whole number", rec.Name, rec.Value)
				continue
			}
			// Zero-capacity pseudo filesystems must have been dropped.
			if pct < 0 || pct > 100 {
				t.Errorf("record %q percent %d out of range", rec.Name, pct)
			}
		}
	})

	t.Run("users tolerates missing utmp", func(t *testing.T) {
		records, err := (&UsersProbe{}).Collect(ctx, run)
		if err != nil {
			t.Logf("users unavailable here: %v", err)
			return
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		if _, err := strconv.Atoi(records[0].Value); err != nil {
			t.Errorf("users value %q is not an integer", records[0].Value)
		}
	})
}

func TestDefaultsOrder(t *testing.T) {
	probes := Defaults(runner.New(time.Second))

	want := []string{
		"forked", "processes", "disk", "swap", "uptime",
		"load", "users", "net", "ntp", "packages", "updates",
	}
	if len(probes) != len(want) {
		t.Fatalf("got %d probes, want %d", len(probes), len(want))
	}
	for i, name := range want {
		if probes[i].Name() != name {
			t.Errorf("probe[%d] = %q, want %q", i, probes[i].Name(), name)
		}
	}
}
