package streamer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"

	"github.com/tinytelemetry/udpfeed/internal/transport"
)

// Kind classifies why a run failed.
type Kind int

const (
	// SourceNotFound means a file the run needed does not exist.
	SourceNotFound Kind = iota + 1
	// TransportError covers every datagram socket failure, resolution included.
	TransportError
	// UnknownError is anything else; the underlying error is kept.
	UnknownError
)

func (k Kind) String() string {
	switch k {
	case SourceNotFound:
		return "source not found"
	case TransportError:
		return "transport error"
	case UnknownError:
		return "unknown error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is what Run returns when a run ends in the Failed state.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("streamer: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// auditMessage is the single ERROR line written for a failed run.
func (e *Error) auditMessage() string {
	switch e.Kind {
	case SourceNotFound:
		return fmt.Sprintf("File not found: %v", e.Err)
	case TransportError:
		return fmt.Sprintf("Socket error: %v", e.Err)
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", e.Err)
	}
}

// IsKind reports whether err is a streamer Error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// classify maps err onto a Kind. Checks run in priority order: missing
// file, then socket, then everything else.
func classify(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &Error{Kind: SourceNotFound, Err: err}
	}
	var te *transport.Error
	if errors.As(err, &te) {
		return &Error{Kind: TransportError, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: UnknownError, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return &Error{Kind: TransportError, Err: err}
	}
	return &Error{Kind: UnknownError, Err: err}
}
