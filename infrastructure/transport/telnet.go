package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/ziutek/telnet"
	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
)

const BufferSize = 4096

// TelnetTransport carries a CLI session over Telnet
type TelnetTransport struct {
	conn   *telnet.Conn
	buf    []byte
	logger *zap.Logger
}

var _ ports.Transport = (*TelnetTransport)(nil)

// DialTelnet opens a Telnet connection to address (host:port).
// Any login exchange is left to the caller.
func DialTelnet(ctx context.Context, address string, opts Options) (*TelnetTransport, error) {
	opts = opts.withDefaults()
	raw, err := dialFirst(ctx, address, opts)
	if err != nil {
		return nil, err
	}
	tt, err := NewTelnetTransport(raw, opts.Logger)
	if err != nil {
		raw.Close()
		return nil, NewConnectError(Handshake, address, err)
	}
	return tt, nil
}

// NewTelnetTransport wraps an established connection
func NewTelnetTransport(raw net.Conn, logger *zap.Logger) (*TelnetTransport, error) {
	conn, err := telnet.NewConn(raw)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelnetTransport{
		conn:   conn,
		buf:    make([]byte, BufferSize),
		logger: logger,
	}, nil
}

// Write sends raw bytes to the device
func (t *TelnetTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

// ReadTimeout returns the next chunk of output or ErrReadTimeout when the
// device stays silent for d.
func (t *TelnetTransport) ReadTimeout(d time.Duration) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return nil, classifyReadError(err)
	}
	n, err := t.conn.Read(t.buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, t.buf[:n])
		return out, nil
	}
	return nil, classifyReadError(err)
}

// Close terminates the connection
func (t *TelnetTransport) Close() error {
	return t.conn.Close()
}

// Kind returns the transport name
func (t *TelnetTransport) Kind() string {
	return entities.TransportTelnet
}

// Authenticated is always false: Telnet logins happen in-band
func (t *TelnetTransport) Authenticated() bool {
	return false
}

func classifyReadError(err error) error {
	if err == nil {
		return ports.ErrReadTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ports.ErrReadTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return io.EOF
	}
	return err
}
