// Package streamer replays the rows of a delimited file as UDP datagrams,
// mirroring each sent row to a local file and recording every step in an
// audit log.
//
// A run is strictly sequential. For each row it sends the datagram, writes
// and syncs the mirror line, waits a random delay, and then records an
// audit entry, in that order. The first failure ends the run; rows after it
// are neither sent nor mirrored.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/udpfeed/internal/mirror"
	"github.com/tinytelemetry/udpfeed/internal/model"
	"github.com/tinytelemetry/udpfeed/internal/rowsource"
	"github.com/tinytelemetry/udpfeed/internal/transport"
	"pgregory.net/rand"
)

const (
	msgStarting = "Starting data streaming."
	msgComplete = "Streaming complete!"
	msgSent     = "Sent and logged: "
)

// ErrAlreadyRun is returned when Run is called on a Streamer that has
// already started.
var ErrAlreadyRun = errors.New("streamer: already run")

// State is the lifecycle position of a Streamer.
type State int32

const (
	NotStarted State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config names the files and the destination of one run.
type Config struct {
	SourcePath  string
	MirrorPath  string
	Destination model.Destination

	// MinDelay and MaxDelay bound the pause after each row. Both zero
	// means model.DefaultMinDelay and model.DefaultMaxDelay.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DialFunc opens the datagram channel to dest.
type DialFunc func(ctx context.Context, dest model.Destination) (transport.Sender, error)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RandFunc returns a float in [0, 1).
type RandFunc func() float64

// Options holds the injectable collaborators. Zero values select the real
// implementations.
type Options struct {
	Audit *slog.Logger
	Dial  DialFunc
	Sleep SleepFunc
	Rand  RandFunc
}

// Stats summarizes what a run did so far.
type Stats struct {
	RowsSent    int
	MirrorLines int
}

// Streamer owns one run of the pipeline. It is not reusable.
type Streamer struct {
	cfg   Config
	audit *slog.Logger
	dial  DialFunc
	sleep SleepFunc
	rand  RandFunc

	state       atomic.Int32
	rowsSent    atomic.Int64
	mirrorLines atomic.Int64
}

// New validates cfg and returns a Streamer in the NotStarted state.
func New(cfg Config, opts Options) (*Streamer, error) {
	if strings.TrimSpace(cfg.SourcePath) == "" {
		return nil, errors.New("streamer: source path is empty")
	}
	if strings.TrimSpace(cfg.MirrorPath) == "" {
		return nil, errors.New("streamer: mirror path is empty")
	}
	if err := cfg.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("streamer: %w", err)
	}
	if cfg.MinDelay == 0 && cfg.MaxDelay == 0 {
		cfg.MinDelay = model.DefaultMinDelay
		cfg.MaxDelay = model.DefaultMaxDelay
	}
	if cfg.MinDelay < 0 || cfg.MaxDelay < cfg.MinDelay {
		return nil, fmt.Errorf("streamer: invalid delay range [%s, %s]", cfg.MinDelay, cfg.MaxDelay)
	}

	s := &Streamer{
		cfg:   cfg,
		audit: opts.Audit,
		dial:  opts.Dial,
		sleep: opts.Sleep,
		rand:  opts.Rand,
	}
	if s.audit == nil {
		s.audit = slog.New(slog.DiscardHandler)
	}
	if s.dial == nil {
		s.dial = dialUDP
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.rand == nil {
		s.rand = rand.New().Float64
	}
	return s, nil
}

// Run executes the pipeline once. The audit log always receives the start
// and completion entries, and exactly one ERROR entry when the run fails.
// The returned error is nil or an *Error; a second call returns ErrAlreadyRun.
func (s *Streamer) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return ErrAlreadyRun
	}

	s.audit.Info(msgStarting)

	var runErr *Error
	if err := s.stream(ctx); err != nil {
		runErr = classify(err)
		s.audit.Error(runErr.auditMessage())
		s.state.Store(int32(Failed))
	} else {
		s.state.Store(int32(Completed))
	}

	s.audit.Info(msgComplete)

	if runErr != nil {
		return runErr
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Streamer) State() State { return State(s.state.Load()) }

// Stats returns counters for the current or finished run.
func (s *Streamer) Stats() Stats {
	return Stats{
		RowsSent:    int(s.rowsSent.Load()),
		MirrorLines: int(s.mirrorLines.Load()),
	}
}

// Config returns the effective configuration, defaults applied.
func (s *Streamer) Config() Config { return s.cfg }

func (s *Streamer) stream(ctx context.Context) (err error) {
	src, err := rowsource.Open(s.cfg.SourcePath)
	if err != nil {
		return err
	}
	defer closeInto(&err, src.Close)

	sink, err := mirror.Create(s.cfg.MirrorPath)
	if err != nil {
		return err
	}
	defer closeInto(&err, sink.Close)

	header, err := src.Header()
	if err != nil {
		return err
	}
	if err := s.writeMirror(sink, header); err != nil {
		return err
	}

	sender, err := s.dial(ctx, s.cfg.Destination)
	if err != nil {
		return err
	}
	defer closeInto(&err, sender.Close)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := sender.Send(ctx, row.Message()); err != nil {
			return err
		}
		s.rowsSent.Add(1)

		if err := s.writeMirror(sink, row); err != nil {
			return err
		}

		// The row is already out; log it even if the pause is cut short.
		sleepErr := s.sleep(ctx, s.nextDelay())
		s.audit.Info(msgSent + row.Text())
		if sleepErr != nil {
			return sleepErr
		}
	}
}

func (s *Streamer) writeMirror(sink *mirror.Sink, row model.Row) error {
	if err := sink.WriteRow(row); err != nil {
		return err
	}
	s.mirrorLines.Add(1)
	return nil
}

// nextDelay draws uniformly from [MinDelay, MaxDelay].
func (s *Streamer) nextDelay() time.Duration {
	span := s.cfg.MaxDelay - s.cfg.MinDelay
	if span <= 0 {
		return s.cfg.MinDelay
	}
	f := s.rand()
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return s.cfg.MinDelay + time.Duration(f*float64(span))
}

func dialUDP(ctx context.Context, dest model.Destination) (transport.Sender, error) {
	return transport.DialUDP(ctx, dest)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// closeInto runs closeFn and keeps its error only if nothing failed earlier.
func closeInto(err *error, closeFn func() error) {
	if cerr := closeFn(); cerr != nil && *err == nil {
		*err = cerr
	}
}
