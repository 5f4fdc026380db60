// Package logging configures the process-wide slog logger: a text handler
// writing to the console and, when a log directory is set, to a per-day
// log file as well.
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

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string
	// Dir is the directory for daily log files; empty disables file output.
	Dir string
	// Console is the console writer (defaults to os.Stderr).
	Console io.Writer
}

// DefaultLogDir returns ~/.repodeck/logs.
func DefaultLogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".repodeck", "logs"), nil
}

// Setup builds the logger and installs it as slog's default.
func Setup(cfg Config) (*slog.Logger, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	var w io.Writer = console
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", cfg.Dir, err)
		}
		name := fmt.Sprintf("repodeck_%s.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(console, f)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}))
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
