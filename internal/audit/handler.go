package audit

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TimeFormat is the timestamp layout of every audit line.
const TimeFormat = "2006-01-02 15:04:05,000"

// Handler is a slog.Handler that renders one line per record:
//
//	2024-03-01 12:00:00,123 - INFO - Sent and logged: a,b,c
//
// Attributes, when present, follow the message as key=value pairs.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	now    func() time.Time
	attrs  []slog.Attr
	prefix string
}

// NewHandler creates a Handler writing to w. A nil level means INFO; a nil
// now uses the record's own timestamp.
func NewHandler(w io.Writer, level slog.Leveler, now func() time.Time) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		now:   now,
	}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if h.now != nil {
		ts = h.now()
	}

	var b strings.Builder
	b.WriteString(ts.Format(TimeFormat))
	b.WriteString(" - ")
	b.WriteString(levelName(r.Level))
	b.WriteString(" - ")
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	out := *h
	out.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	out.attrs = append(out.attrs, h.attrs...)
	for _, a := range attrs {
		out.attrs = append(out.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &out
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = h.prefix + name + "."
	return &out
}

// levelName spells slog.LevelWarn as WARNING, the name the audit line
// format has always used.
func levelName(l slog.Level) string {
	switch l {
	case slog.LevelWarn:
		return "WARNING"
	default:
		return l.String()
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}
