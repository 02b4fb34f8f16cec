// Package generic holds the vendor-neutral device session: connection
// lifecycle, raw command execution and the configuration-mode guard that
// vendor packages build on.
package generic

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/infrastructure/session"
)

var (
	// ErrConfigModeActive is returned when the session is used directly
	// while a configuration mode guard is outstanding.
	ErrConfigModeActive = errors.New("configuration mode is active")
	// ErrConfigModeClosed is returned when a released guard is used
	ErrConfigModeClosed = errors.New("configuration mode already closed")
	// ErrDisconnected is returned once the session was closed
	ErrDisconnected = errors.New("device session is disconnected")
)

// State is the device session lifecycle state
type State int

const (
	Disconnected State = iota
	Connected
	Configuring
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Configuring:
		return "configuring"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Dialect describes the CLI conventions of a device family
type Dialect struct {
	Name          string
	Prompt        *regexp.Regexp
	ConfigCommand string
	ExitCommand   string
	// SaveCommands persist the running configuration; empty makes Save a no-op
	SaveCommands []string
	// AuthFailure matches what the device prints after rejected credentials
	AuthFailure *regexp.Regexp
}

// Credentials are pushed through the CLI when the transport did not
// authenticate natively.
type Credentials struct {
	Username string
	Password string
	// Login is the prompt/response sequence used to present them
	Login []entities.AuthPrompt
}

// Device is a session with one device, owning one protocol and its transport
type Device struct {
	proto   *session.Protocol
	dialect Dialect
	address string
	logger  *zap.Logger

	mu            sync.Mutex
	state         State
	authenticated bool
}

// Connect takes ownership of proto, discards the login banner and, when
// credentials are given and the transport has not authenticated already,
// logs in. On failure the transport is closed.
func Connect(proto *session.Protocol, dialect Dialect, address string, creds *Credentials, logger *zap.Logger) (*Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Device{
		proto:   proto,
		dialect: dialect,
		address: address,
		logger: logger.With(
			zap.String("session_id", uuid.NewString()),
			zap.String("platform", dialect.Name),
			zap.String("address", address),
		),
		state:         Connected,
		authenticated: proto.Transport().Authenticated(),
	}

	if creds != nil && creds.Username != "" && !d.authenticated {
		if err := proto.Login(address, creds.Login, dialect.Prompt, dialect.AuthFailure); err != nil {
			proto.Close()
			return nil, err
		}
		d.authenticated = true
	} else if _, err := proto.Drain(dialect.Prompt); err != nil {
		proto.Close()
		return nil, fmt.Errorf("failed to read banner from %s: %w", address, err)
	}

	d.logger.Info("device session established", zap.Bool("authenticated", d.authenticated))
	return d, nil
}

// Open wraps t in a protocol configured from cfg and connects with the
// given login sequence. Credentials are only presented when cfg has a
// username.
func Open(t ports.Transport, dialect Dialect, cfg entities.DeviceConfig, login []entities.AuthPrompt, logger *zap.Logger) (*Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithRawOutput(cfg.IsRawOutputEnabled()),
	}
	if cfg.ReadTimeout > 0 {
		opts = append(opts, session.WithReadTimeout(cfg.ReadTimeout))
	}

	var creds *Credentials
	if cfg.Username != "" {
		creds = &Credentials{Username: cfg.Username, Password: cfg.Password, Login: login}
	}
	return Connect(session.New(t, opts...), dialect, cfg.Address(), creds, logger)
}

// State returns the current lifecycle state
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Authenticated reports whether credentials were accepted
func (d *Device) Authenticated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authenticated
}

// ExecuteRaw sends a command at the current CLI level
func (d *Device) ExecuteRaw(command string) error {
	if err := d.checkDirect(); err != nil {
		return err
	}
	return d.exec(command)
}

// ExecuteExpect sends a command and waits for prompt instead of the
// dialect prompt, for commands that answer with a question.
func (d *Device) ExecuteExpect(command string, prompt *regexp.Regexp) error {
	if err := d.checkDirect(); err != nil {
		return err
	}
	return d.proto.ExecuteRaw(command, prompt)
}

// EnterConfig enters configuration mode and returns the guard that holds
// the session until it is closed.
func (d *Device) EnterConfig() (*ConfigMode, error) {
	d.mu.Lock()
	switch d.state {
	case Disconnected:
		d.mu.Unlock()
		return nil, ErrDisconnected
	case Configuring:
		d.mu.Unlock()
		return nil, ErrConfigModeActive
	}
	d.state = Configuring
	d.mu.Unlock()

	if err := d.exec(d.dialect.ConfigCommand); err != nil {
		d.release()
		return nil, fmt.Errorf("failed to enter configuration mode: %w", err)
	}
	d.logger.Debug("entered configuration mode")
	return &ConfigMode{device: d}, nil
}

// Exit sends the vendor exit command
func (d *Device) Exit() error {
	if err := d.checkDirect(); err != nil {
		return err
	}
	return d.exec(d.dialect.ExitCommand)
}

// Save persists the running configuration with the vendor save commands
func (d *Device) Save() error {
	if err := d.checkDirect(); err != nil {
		return err
	}
	for _, cmd := range d.dialect.SaveCommands {
		if err := d.exec(cmd); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}
	return nil
}

// Close closes the transport. Later calls are no-ops.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.state == Disconnected {
		d.mu.Unlock()
		return nil
	}
	d.state = Disconnected
	d.mu.Unlock()
	d.logger.Debug("device session closed")
	return d.proto.Close()
}

func (d *Device) checkDirect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case Disconnected:
		return ErrDisconnected
	case Configuring:
		return ErrConfigModeActive
	}
	return nil
}

func (d *Device) exec(command string) error {
	return d.proto.ExecuteRaw(command, d.dialect.Prompt)
}

func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Configuring {
		d.state = Connected
	}
}
