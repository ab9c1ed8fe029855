// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package daemon runs triage passes on an interval and guards against
// concurrent instances with a pid file.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pdiddy/paperflow/pkg/types"
)

// DefaultPIDFile is where the running daemon records its pid.
const DefaultPIDFile = ".paperflow.pid"

// Passer runs one triage pass. The pipeline Runner implements it.
type Passer interface {
	RunOnce(ctx context.Context) ([]types.ProcessingResult, error)
}

// Daemon repeatedly runs passes until its context is cancelled.
type Daemon struct {
	Runner   Passer
	Interval time.Duration

	// PIDFile path; empty means DefaultPIDFile.
	PIDFile string
}

func (d *Daemon) pidFile() string {
	if d.PIDFile == "" {
		return DefaultPIDFile
	}
	return d.PIDFile
}

// AlreadyRunning reports whether a live process holds the pid file. A pid
// file naming a dead process is stale and does not count.
func (d *Daemon) AlreadyRunning() (int, bool) {
	data, err := os.ReadFile(d.pidFile())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// Signal 0 probes liveness without touching the process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

// Run executes passes every Interval until ctx is cancelled. The first pass
// runs immediately. Pass errors are logged, not fatal: a transient API
// outage should not kill a long-running daemon.
func (d *Daemon) Run(ctx context.Context) error {
	if pid, running := d.AlreadyRunning(); running {
		return fmt.Errorf("already running with pid %d", pid)
	}
	if err := d.writePID(); err != nil {
		return err
	}
	defer d.removePID()

	interval := d.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	slog.Info("daemon started", "pid", os.Getpid(), "interval", interval)

	for {
		results, err := d.Runner.RunOnce(ctx)
		switch {
		case ctx.Err() != nil:
			slog.Info("daemon stopping")
			return nil
		case err != nil:
			slog.Error("pass failed", "error", err)
		default:
			slog.Info("pass finished", "items", len(results))
		}

		select {
		case <-ctx.Done():
			slog.Info("daemon stopping")
			return nil
		case <-time.After(interval):
		}
	}
}

func (d *Daemon) writePID() error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(d.pidFile(), []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing pid file %s: %w", d.pidFile(), err)
	}
	return nil
}

func (d *Daemon) removePID() {
	if err := os.Remove(d.pidFile()); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove pid file", "path", d.pidFile(), "error", err)
	}
}
