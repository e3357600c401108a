// Package mirror writes the local copy of every row sent on the wire, one
// comma-joined line per row, synced to disk before the next row goes out.
package mirror

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tinytelemetry/udpfeed/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
)

// Sink is the local copy of every row that went out on the wire.
// Each write is synced before returning so a killed process leaves every
// sent row on disk.
type Sink struct {
	mu   sync.Mutex
	file *os.File
}

// Create truncates (or creates) the mirror file at path.
func Create(path string) (*Sink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("mirror: path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return nil, fmt.Errorf("mirror: mkdir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("mirror: open: %w", err)
	}
	return &Sink{file: f}, nil
}

// WriteRow appends the comma-joined row and a newline, then fsyncs.
func (s *Sink) WriteRow(row model.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return errors.New("mirror: write: sink is closed")
	}
	if _, err := s.file.WriteString(row.Text() + "\n"); err != nil {
		return fmt.Errorf("mirror: write: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("mirror: sync: %w", err)
	}
	return nil
}

// Close closes the mirror file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
