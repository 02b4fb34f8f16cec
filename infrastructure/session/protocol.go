// Package session implements the line-oriented request/response protocol
// spoken with device CLIs: write one command line, then read until the
// prompt pattern matches or the device goes idle.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/infrastructure/transport"
)

// DefaultReadTimeout is the idle window after which output is considered done
const DefaultReadTimeout = time.Second

// IOError reports a transport failure while talking to the device
type IOError struct {
	Op      string
	Command string
	Err     error
}

func (e *IOError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Command, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Protocol owns a transport and serializes command exchanges over it
type Protocol struct {
	transport   ports.Transport
	readTimeout time.Duration
	rawOutput   bool
	logger      *zap.Logger
}

// Option configures a Protocol
type Option func(*Protocol)

// WithReadTimeout overrides the per-read idle timeout
func WithReadTimeout(d time.Duration) Option {
	return func(p *Protocol) {
		if d > 0 {
			p.readTimeout = d
		}
	}
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Protocol) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRawOutput logs every chunk received from the device at debug level
func WithRawOutput(enabled bool) Option {
	return func(p *Protocol) {
		p.rawOutput = enabled
	}
}

// New wraps t. The protocol takes ownership of the transport.
func New(t ports.Transport, opts ...Option) *Protocol {
	p := &Protocol{
		transport:   t,
		readTimeout: DefaultReadTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transport returns the underlying transport
func (p *Protocol) Transport() ports.Transport {
	return p.transport
}

// ExecuteRaw sends command followed by a newline and discards the output
// until prompt matches or the device goes idle. Device-side errors printed
// in the output are not detected.
func (p *Protocol) ExecuteRaw(command string, prompt *regexp.Regexp) error {
	_, err := p.Exchange(command, prompt)
	return err
}

// Exchange is ExecuteRaw returning what the device printed
func (p *Protocol) Exchange(command string, prompt *regexp.Regexp) (string, error) {
	p.logger.Debug("sending command", zap.String("command", command))
	if _, err := p.transport.Write([]byte(command + "\n")); err != nil {
		return "", &IOError{Op: "write", Command: command, Err: err}
	}
	output, err := p.readUntil(prompt)
	if err != nil {
		return output, &IOError{Op: "read", Command: command, Err: err}
	}
	return output, nil
}

// Drain reads pending output, such as a login banner, until prompt matches
// or the device goes idle. A nil prompt drains until idle.
func (p *Protocol) Drain(prompt *regexp.Regexp) (string, error) {
	output, err := p.readUntil(prompt)
	if err != nil {
		return output, &IOError{Op: "read", Err: err}
	}
	return output, nil
}

// readUntil accumulates output and stops when the right-trimmed last line
// matches prompt, or when a read times out. Only the bytes after the last
// line break are rescanned per chunk.
func (p *Protocol) readUntil(prompt *regexp.Regexp) (string, error) {
	var raw, tail []byte
	for {
		chunk, err := p.transport.ReadTimeout(p.readTimeout)
		if errors.Is(err, ports.ErrReadTimeout) {
			p.logger.Debug("device idle, assuming output complete")
			return decode(raw), nil
		}
		if err != nil {
			p.logger.Debug("read failed", zap.Error(err))
			return decode(raw), err
		}
		raw = append(raw, chunk...)
		if p.rawOutput {
			p.logger.Debug("device output", zap.ByteString("chunk", chunk))
		}
		if prompt == nil {
			continue
		}
		tail = openLine(append(tail, chunk...))
		if prompt.MatchString(lastLine(decode(tail))) {
			p.logger.Debug("found prompt, ready for next command")
			return decode(raw), nil
		}
	}
}

// openLine drops every complete line from buf, keeping the text lastLine
// would select plus its trailing whitespace.
func openLine(buf []byte) []byte {
	trimmed := bytes.TrimRight(buf, " \t\r\n\x00")
	if idx := bytes.LastIndexAny(trimmed, "\r\n"); idx >= 0 {
		return buf[idx+1:]
	}
	return buf
}

// Login walks a prompt/response sequence, then waits for either the ready
// prompt or the rejected pattern. A rejection is reported as a ConnectError
// of kind AuthRejected.
func (p *Protocol) Login(address string, steps []entities.AuthPrompt, ready, rejected *regexp.Regexp) error {
	for _, step := range steps {
		waitFor, err := regexp.Compile(step.WaitFor)
		if err != nil {
			return fmt.Errorf("invalid login prompt %q: %w", step.WaitFor, err)
		}
		if _, err := p.Drain(waitFor); err != nil {
			return transport.NewConnectError(transport.Handshake, address, err)
		}
		if step.SendCmd == "" {
			continue
		}
		if _, err := p.transport.Write([]byte(step.SendCmd + "\n")); err != nil {
			return transport.NewConnectError(transport.Handshake, address, err)
		}
	}

	final := ready
	if rejected != nil {
		final = regexp.MustCompile("(?:" + ready.String() + ")|(?:" + rejected.String() + ")")
	}
	output, err := p.Drain(final)
	if err != nil {
		return transport.NewConnectError(transport.Handshake, address, err)
	}
	tail := lastLine(output)
	if tail == "" {
		return transport.NewConnectError(transport.Handshake, address,
			errors.New("no prompt after login"))
	}
	if rejected != nil && (rejected.MatchString(tail) || !ready.MatchString(tail)) {
		return transport.NewConnectError(transport.AuthRejected, address,
			fmt.Errorf("device answered %q after login", tail))
	}
	p.logger.Debug("login accepted")
	return nil
}

// Close closes the transport
func (p *Protocol) Close() error {
	return p.transport.Close()
}

// decode converts device bytes to text, replacing invalid sequences
func decode(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "�")
}

func lastLine(text string) string {
	text = strings.TrimRight(text, " \t\r\n\x00")
	if idx := strings.LastIndexAny(text, "\r\n"); idx >= 0 {
		return text[idx+1:]
	}
	return text
}
