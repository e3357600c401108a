// Package audit owns the per-run audit log: a plain text file with one
// timestamped, leveled line per pipeline event. The file is truncated every
// time it is opened so it only ever describes the latest run.
package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options tunes an audit Log. The zero value is ready to use.
type Options struct {
	Level slog.Leveler
	Now   func() time.Time
}

// Log is an open audit file and the logger writing into it.
type Log struct {
	file   *os.File
	logger *slog.Logger
}

// Open truncates (or creates) the audit file at path.
func Open(path string, opts Options) (*Log, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("audit: path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("audit: mkdir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	return &Log{
		file:   f,
		logger: slog.New(NewHandler(f, opts.Level, opts.Now)),
	}, nil
}

// Logger returns the logger that writes to the audit file.
func (l *Log) Logger() *slog.Logger { return l.logger }

// Close syncs and closes the audit file.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	syncErr := l.file.Sync()
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(syncErr, closeErr)
}
