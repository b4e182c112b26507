package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for log files.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Options configures New.
type Options struct {
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer

	// Verbose sets the level to Debug instead of Warn.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// File is an optional log file path. The file is rotated by size and
	// always written as JSON at Debug level.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays tune file rotation.
	// Zero values use the package defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewRotatingWriter returns a size-rotated writer for path.
// The parent directory is created if needed.
func NewRotatingWriter(path string, opts Options) (io.WriteCloser, error) {
	if path == "" {
		return nil, errors.New("log file path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
	if opts.MaxSizeMB > 0 {
		w.MaxSize = opts.MaxSizeMB
	}
	if opts.MaxBackups > 0 {
		w.MaxBackups = opts.MaxBackups
	}
	if opts.MaxAgeDays > 0 {
		w.MaxAge = opts.MaxAgeDays
	}
	return w, nil
}

// New creates the application logger. The returned closer releases the
// log file and must be closed on exit; it is a no-op without a file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := levelFor(opts.Verbose)
	var console slog.Handler
	if opts.JSON {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		console = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	if opts.File == "" {
		return slog.New(NewSecureHandler(console)), nopCloser{}, nil
	}

	file, err := NewRotatingWriter(opts.File, opts)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})

	handler := NewSecureHandler(fanoutHandler{console, fileHandler})
	return slog.New(handler), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
