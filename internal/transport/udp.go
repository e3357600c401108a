// Package transport sends encoded rows as connectionless datagrams.
//
// Nothing here waits for an acknowledgement or retries a failed write; a
// datagram the network drops is simply gone.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/tinytelemetry/udpfeed/internal/model"
)

// Sender delivers one message per call to a fixed destination.
type Sender interface {
	Send(ctx context.Context, msg []byte) error
	Close() error
	Addr() string
}

// Error is returned for every socket-level failure, including resolving the
// destination. Callers use errors.As to tell it apart from file errors.
type Error struct {
	Op   string // "dial", "send", "close"
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UDPSender writes datagrams from an unconnected UDP socket. An ICMP
// port-unreachable from an earlier datagram never surfaces on a later send,
// so a missing receiver only means the datagrams are dropped.
type UDPSender struct {
	mu    sync.Mutex
	conn  *net.UDPConn
	raddr *net.UDPAddr
	addr  string
}

// DialUDP resolves dest once and opens a local UDP socket for sending to it.
// No packets are exchanged.
func DialUDP(ctx context.Context, dest model.Destination) (*UDPSender, error) {
	addr := dest.Addr()
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "dial", Addr: addr, Err: err}
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, &Error{Op: "dial", Addr: addr, Err: err}
	}
	network := "udp6"
	if raddr.IP == nil || raddr.IP.To4() != nil {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, &Error{Op: "dial", Addr: addr, Err: err}
	}
	return &UDPSender{conn: conn, raddr: raddr, addr: addr}, nil
}

// Send writes msg as a single datagram. A short write is reported as an
// error since the receiver would see a truncated row.
func (s *UDPSender) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return &Error{Op: "send", Addr: s.addr, Err: net.ErrClosed}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	n, err := s.conn.WriteTo(msg, s.raddr)
	if err != nil {
		return &Error{Op: "send", Addr: s.addr, Err: err}
	}
	if n != len(msg) {
		return &Error{Op: "send", Addr: s.addr, Err: fmt.Errorf("short write: %d of %d bytes", n, len(msg))}
	}
	return nil
}

// Close releases the socket. It is safe to call more than once.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return &Error{Op: "close", Addr: s.addr, Err: err}
	}
	return nil
}

// Addr returns the destination address.
func (s *UDPSender) Addr() string { return s.addr }
