package ports

import (
	"errors"
	"time"
)

// ErrReadTimeout is returned by Transport.ReadTimeout when no data arrived
// within the requested window.
var ErrReadTimeout = errors.New("read timed out")

// Transport defines the port for a byte stream to a device CLI.
// ReadTimeout returns ErrReadTimeout when idle and io.EOF once the peer
// closed the stream; any other error is an I/O failure.
type Transport interface {
	Write(p []byte) (int, error)
	ReadTimeout(d time.Duration) ([]byte, error)
	Close() error
	Kind() string
	// Authenticated reports whether the transport already authenticated
	// the user natively (SSH), making a CLI login exchange unnecessary.
	Authenticated() bool
}
