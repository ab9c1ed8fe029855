// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide slog logger. Logs go to a
// date-stamped file so each day of daemon operation gets its own file, with
// old files swept after a retention window.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	filePrefix    = "paperflow."
	fileSuffix    = ".log"
	retentionDays = 7
)

// Options controls Setup.
type Options struct {
	// Dir is the log directory. Empty means ".logs".
	Dir string
	// Verbose lowers the level to debug and echoes records to stderr.
	Verbose bool
}

// Setup installs the default slog logger writing to
// <dir>/paperflow.YYYY-MM-DD.log and sweeps files older than the retention
// window. Returns the path of the active log file.
func Setup(opts Options) (string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = ".logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, filePrefix+time.Now().Format("2006-01-02")+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening log file %s: %w", path, err)
	}

	var w io.Writer = f
	level := slog.LevelInfo
	if opts.Verbose {
		w = io.MultiWriter(f, os.Stderr)
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))

	if n := sweep(dir, time.Now()); n > 0 {
		slog.Debug("removed expired log files", "count", n)
	}
	return path, nil
}

// sweep deletes paperflow log files older than the retention window, going
// by the date embedded in the filename rather than mtime. Returns how many
// files were removed.
func sweep(dir string, now time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		day, err := time.Parse("2006-01-02", stamp)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err == nil {
				removed++
			}
		}
	}
	return removed
}
