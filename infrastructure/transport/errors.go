package transport

import (
	"fmt"
	"strings"

	"github.com/bassosimone/errclass"
)

// ConnectErrorKind classifies why a connection attempt failed
type ConnectErrorKind int

const (
	// Unreachable means no resolved address accepted a connection
	Unreachable ConnectErrorKind = iota
	// Handshake means the protocol negotiation failed after connecting
	Handshake
	// AuthRejected means the device refused the supplied credentials
	AuthRejected
)

func (k ConnectErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Handshake:
		return "handshake failed"
	case AuthRejected:
		return "authentication rejected"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ConnectError is returned for every failed connection attempt
type ConnectError struct {
	Kind    ConnectErrorKind
	Address string
	// Class is a short errno-style label for the underlying error
	Class string
	Err   error
}

// NewConnectError builds a ConnectError and classifies the cause
func NewConnectError(kind ConnectErrorKind, address string, err error) *ConnectError {
	return &ConnectError{
		Kind:    kind,
		Address: address,
		Class:   errclass.New(err),
		Err:     err,
	}
}

func (e *ConnectError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "connect to %s: %s", e.Address, e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
