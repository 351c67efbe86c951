// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/config"
)

// New creates a logger from the log configuration. When cfg.Dir is set, a
// per-run file named run_<timestamp>.log is opened there and returned so the
// caller can close it on shutdown.
func New(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer = os.Stderr
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to create log dir %s: %w", cfg.Dir, err)
		}
		name := filepath.Join(cfg.Dir, fmt.Sprintf("run_%s.log", time.Now().Format("20060102_150405")))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		writers = append(writers, f)
		closer = f
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", "mygpt").
		Logger()

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
