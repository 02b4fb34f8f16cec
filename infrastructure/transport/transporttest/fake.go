// Package transporttest provides an in-memory ports.Transport that records
// every line written to it and replays scripted device output.
package transporttest

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/carlosrabelo/miko/domain/ports"
)

// Responder returns the output chunks a device would emit for a line
type Responder func(line string) []string

// Transport is a scripted fake device. With a nil Respond, every line
// written is answered with Prompt (when non-empty).
type Transport struct {
	Prompt        string
	Respond       Responder
	TransportKind string
	// ReadErr is returned instead of ErrReadTimeout once output is exhausted
	ReadErr error
	// WriteErr fails every Write when set
	WriteErr error
	// NativeAuth is reported by Authenticated
	NativeAuth bool

	mu       sync.Mutex
	sent     []string
	partial  bytes.Buffer
	pending  []string
	closed   bool
	timeouts int
	reads    int
}

var _ ports.Transport = (*Transport)(nil)

// New returns a fake that answers every line with prompt
func New(prompt string) *Transport {
	return &Transport{Prompt: prompt, TransportKind: "fake"}
}

// Queue appends raw output chunks, such as a login banner
func (t *Transport) Queue(chunks ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, chunks...)
}

// Write records complete lines and queues the scripted reply for each
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.WriteErr != nil {
		return 0, t.WriteErr
	}
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.partial.Write(p)
	for {
		data := t.partial.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(data[:idx], "\r"))
		t.partial.Next(idx + 1)
		t.sent = append(t.sent, line)
		switch {
		case t.Respond != nil:
			t.pending = append(t.pending, t.Respond(line)...)
		case t.Prompt != "":
			t.pending = append(t.pending, t.Prompt)
		}
	}
	return len(p), nil
}

// ReadTimeout pops the next queued chunk without ever sleeping
func (t *Transport) ReadTimeout(time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads++
	if len(t.pending) > 0 {
		chunk := t.pending[0]
		t.pending = t.pending[1:]
		return []byte(chunk), nil
	}
	if t.closed {
		return nil, io.EOF
	}
	if t.ReadErr != nil {
		return nil, t.ReadErr
	}
	t.timeouts++
	return nil, ports.ErrReadTimeout
}

// Close marks the fake closed; further reads report io.EOF
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Transport) Kind() string {
	return t.TransportKind
}

func (t *Transport) Authenticated() bool {
	return t.NativeAuth
}

// Sent returns a copy of every line written so far
func (t *Transport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	copy(out, t.sent)
	return out
}

// Reset forgets the recorded lines
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

// Pending returns the number of queued chunks not yet read
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Timeouts returns how many reads reported ErrReadTimeout
func (t *Transport) Timeouts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeouts
}

// Closed reports whether Close was called
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
