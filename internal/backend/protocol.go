// Package backend provides the connections a terminal can be attached to.
package backend

import (
	"fmt"
	"io"
)

// Protocol identifies the kind of connection behind a Conn.
type Protocol string

const (
	Raw    Protocol = "raw"
	Serial Protocol = "serial"
	SSH    Protocol = "ssh"
	Telnet Protocol = "telnet"
	RLogin Protocol = "rlogin"
)

// LineTerminator returns the end-of-line sequence a remote shell expects on
// a connection of kind p. Raw connections have none; asking for an
// unknown or raw protocol is a programming error and panics.
func LineTerminator(p Protocol) string {
	switch p {
	case Serial:
		return "\r"
	case SSH:
		return "\n"
	case Telnet, RLogin:
		return "\r\n"
	default:
		panic(fmt.Sprintf("backend: no line terminator for protocol %q", string(p)))
	}
}

// Conn is a live connection to the remote peer. Read returns bytes from the
// peer with protocol framing removed; Send transmits bytes to it.
type Conn interface {
	io.Reader
	Send(p []byte) error
	Protocol() Protocol
	Close() error
}
