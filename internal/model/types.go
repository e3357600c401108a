package model

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Row is one record read from the source, fields in file order.
// Its arity is whatever the file line carried; nothing checks it
// against the header.
type Row []string

// Text joins the fields with commas. Fields are not quoted or escaped.
func (r Row) Text() string {
	return strings.Join(r, ",")
}

// Message is the datagram payload for the row: Text plus a trailing newline.
// Each call returns a fresh slice.
func (r Row) Message() []byte {
	return []byte(r.Text() + "\n")
}

// Destination is the fixed host/port every datagram is sent to.
type Destination struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns the destination in host:port form.
func (d Destination) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Validate reports a missing host or an out-of-range port.
func (d Destination) Validate() error {
	if strings.TrimSpace(d.Host) == "" {
		return errors.New("destination host is empty")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("invalid destination port: %d", d.Port)
	}
	return nil
}

func (d Destination) String() string { return d.Addr() }
