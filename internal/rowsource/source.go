// Package rowsource reads a comma-delimited file as a header followed by a
// lazy, single-pass sequence of rows.
//
// Every input line is a row: a blank line is an empty row rather than being
// skipped, and the bytes of the header are kept as-is (a leading UTF-8 BOM
// stays part of the first field). A quoted field may span lines.
package rowsource

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tinytelemetry/udpfeed/internal/model"
)

// ErrNoHeader is returned by Header when the file has no first record.
var ErrNoHeader = errors.New("rowsource: source has no header row")

// Source yields the rows of one file after its header.
type Source struct {
	file       *os.File
	reader     *bufio.Reader
	header     model.Row
	headerRead bool
	rows       int
}

// Open opens path for reading. A missing file yields an error matching
// fs.ErrNotExist. Nothing is parsed until Header or Next is called.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rowsource: open: %w", err)
	}
	return &Source{
		file:   f,
		reader: bufio.NewReader(f),
	}, nil
}

// Header parses and returns the first record. Later calls return the same
// row. An empty file yields ErrNoHeader.
func (s *Source) Header() (model.Row, error) {
	if s.headerRead {
		return s.header, nil
	}
	if s.reader == nil {
		return nil, ErrNoHeader
	}
	rec, err := s.readRecord()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("rowsource: read header: %w", err)
	}
	s.header = rec
	s.headerRead = true
	return s.header, nil
}

// Next returns the next data row, or io.EOF once the file is exhausted.
// The header is consumed first if Header was never called. The sequence
// cannot be restarted.
func (s *Source) Next() (model.Row, error) {
	if s.reader == nil {
		return nil, io.EOF
	}
	if _, err := s.Header(); err != nil {
		if errors.Is(err, ErrNoHeader) {
			return nil, io.EOF
		}
		return nil, err
	}
	rec, err := s.readRecord()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("rowsource: read row %d: %w", s.rows+1, err)
	}
	s.rows++
	return rec, nil
}

// Close releases the underlying file. It is safe to call more than once.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}

// readRecord reads one logical line (physical lines joined while a quoted
// field is open) and splits it into fields.
func (s *Source) readRecord() (model.Row, error) {
	var b strings.Builder
	open := false
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line == "" && errors.Is(err, io.EOF) {
			if b.Len() == 0 && !open {
				return nil, io.EOF
			}
			break
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if open {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		open = quoteOpen(line, open)
		if !open || errors.Is(err, io.EOF) {
			break
		}
	}
	return splitRecord(b.String())
}

func splitRecord(line string) (model.Row, error) {
	if line == "" {
		return model.Row{}, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	return model.Row(rec), nil
}

// quoteOpen reports whether a quoted field is still open at the end of line.
// open says whether line starts inside one.
func quoteOpen(line string, open bool) bool {
	fieldStart := !open
	for i := 0; i < len(line); i++ {
		c := line[i]
		if open {
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					i++
					continue
				}
				open = false
			}
			continue
		}
		switch {
		case c == ',':
			fieldStart = true
		case c == '"' && fieldStart:
			open = true
			fieldStart = false
		default:
			fieldStart = false
		}
	}
	return open
}
