package rowsource

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func readAll(t *testing.T, src *Source) []string {
	t.Helper()

	var out []string
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, row.Text())
	}
}

func TestOpenReadsHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "date,state,cases\n2024-03-01,Ohio,4\n2024-03-02,Iowa,7\n")
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })

	header, err := src.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if got := header.Text(); got != "date,state,cases" {
		t.Fatalf("Header() = %q, want %q", got, "date,state,cases")
	}
	again, err := src.Header()
	if err != nil || again.Text() != header.Text() {
		t.Fatalf("second Header() = %v, %v; want same row", again, err)
	}

	rows := readAll(t, src)
	want := []string{"2024-03-01,Ohio,4", "2024-03-02,Iowa,7"}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("rows[%d] = %q, want %q", i, rows[i], want[i])
		}
	}

	// Exhausted sources keep returning EOF.
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after end = %v, want io.EOF", err)
	}
}

func TestOpenHeaderOnly(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "a,b\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	if rows := readAll(t, src); len(rows) != 0 {
		t.Fatalf("rows = %v, want none", rows)
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Open missing = %v, want fs.ErrNotExist", err)
	}
}

func TestHeaderEmptyFile(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, ""))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	if _, err := src.Header(); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("Header() on empty file = %v, want ErrNoHeader", err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() on empty file = %v, want io.EOF", err)
	}
}

func TestNextSkipsUnreadHeader(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "h1,h2\nv1,v2\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	rows := readAll(t, src)
	if len(rows) != 1 || rows[0] != "v1,v2" {
		t.Fatalf("rows = %v, want [v1,v2]", rows)
	}
}

func TestHeaderKeepsBOMAndNextUnquotes(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "\xEF\xBB\xBFcounty,n\r\n\"Cook, IL\",3\r\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	header, err := src.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if got, want := header.Text(), "\uFEFFcounty,n"; got != want {
		t.Fatalf("Header() = %q, want %q", got, want)
	}
	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(row) != 2 || row[0] != "Cook, IL" {
		t.Fatalf("row = %#v, want [\"Cook, IL\" \"3\"]", row)
	}
}

func TestNextYieldsBlankLinesAsEmptyRows(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "a,b\n1,2\n\n3,4\n\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	rows := readAll(t, src)
	want := []string{"1,2", "", "3,4", ""}
	if strings.Join(rows, "|") != strings.Join(want, "|") {
		t.Fatalf("rows = %q, want %q", rows, want)
	}
}

func TestHeaderMayBeBlank(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "\na,b\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	header, err := src.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if len(header) != 0 {
		t.Fatalf("Header() = %q, want empty row", header)
	}
	if rows := readAll(t, src); len(rows) != 1 || rows[0] != "a,b" {
		t.Fatalf("rows = %q, want [a,b]", rows)
	}
}

func TestNextJoinsQuotedFieldAcrossLines(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "note,n\n\"line one\nline \"\"two\"\"\",5\nlast,6"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(row) != 2 || row[0] != "line one\nline \"two\"" || row[1] != "5" {
		t.Fatalf("row = %#v", row)
	}
	// Final line without a trailing newline is still a row.
	if rows := readAll(t, src); len(rows) != 1 || rows[0] != "last,6" {
		t.Fatalf("remaining rows = %q, want [last,6]", rows)
	}
}

func TestQuoteOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		open bool
		want bool
	}{
		{line: `a,b`, want: false},
		{line: `"a,b`, want: true},
		{line: `"a",b`, want: false},
		{line: `5" screen,b`, want: false},
		{line: `x,"esc "" still`, want: true},
		{line: `tail",3`, open: true, want: false},
		{line: `tail only`, open: true, want: true},
	}
	for _, tt := range tests {
		if got := quoteOpen(tt.line, tt.open); got != tt.want {
			t.Fatalf("quoteOpen(%q, %v) = %v, want %v", tt.line, tt.open, got, tt.want)
		}
	}
}

func TestNextAllowsRaggedRows(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "a,b,c\n1,2\n1,2,3,4\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = src.Close() }()

	rows := readAll(t, src)
	if len(rows) != 2 || rows[0] != "1,2" || rows[1] != "1,2,3,4" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	src, err := Open(writeSource(t, "a\n1\n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next after Close = %v, want io.EOF", err)
	}
}
