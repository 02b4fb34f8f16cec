// Package ios adapts Cisco IOS style command line interfaces.
package ios

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/platform/generic"
)

const driverName = "ios"

var (
	promptPattern      = regexp.MustCompile(`[>#]$`)
	secretPattern      = regexp.MustCompile(`(?i)password:?$|[>#]$`)
	authFailurePattern = regexp.MustCompile(`(?i)(username:?|login:?|authentication failed.*|login invalid.*)$`)
)

// Dialect returns the IOS command conventions
func Dialect() generic.Dialect {
	return generic.Dialect{
		Name:          driverName,
		Prompt:        promptPattern,
		ConfigCommand: "configure terminal",
		ExitCommand:   "exit",
		SaveCommands:  []string{"write memory"},
		AuthFailure:   authFailurePattern,
	}
}

// Driver registers IOS with the platform registry.
type Driver struct{}

// New creates a new IOS driver instance.
func New() *Driver {
	return &Driver{}
}

// Name returns the canonical platform identifier.
func (d *Driver) Name() string {
	return driverName
}

// Matches reports whether an SNMP sysDescr belongs to an IOS device.
func (d *Driver) Matches(sysDescr string) bool {
	lower := strings.ToLower(sysDescr)
	return strings.Contains(lower, "cisco ios") ||
		strings.Contains(lower, "internetwork operating system")
}

// AuthenticationSequence returns the Telnet login sequence for IOS
func (d *Driver) AuthenticationSequence(username, password string) []entities.AuthPrompt {
	return []entities.AuthPrompt{
		{WaitFor: `(?i)username:?$`, SendCmd: username},
		{WaitFor: `(?i)password:?$`, SendCmd: password},
	}
}

// Connect opens an IOS session over t
func (d *Driver) Connect(t ports.Transport, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error) {
	session, err := generic.Open(t, Dialect(), cfg, d.AuthenticationSequence(cfg.Username, cfg.Password), logger)
	if err != nil {
		return nil, err
	}
	return &Device{Device: session}, nil
}

// Device is an IOS session
type Device struct {
	*generic.Device
}

var (
	_ ports.Configurable = (*Device)(nil)
	_ ports.Enabler      = (*Device)(nil)
)

// Enable enters privileged EXEC mode, answering the secret prompt when
// password is set.
func (d *Device) Enable(password string) error {
	if password == "" {
		return d.ExecuteRaw("enable")
	}
	if err := d.ExecuteExpect("enable", secretPattern); err != nil {
		return fmt.Errorf("failed to enter privileged mode: %w", err)
	}
	return d.ExecuteRaw(password)
}

// EnterConfig sends "configure terminal" and returns the guard
func (d *Device) EnterConfig() (ports.ConfigMode, error) {
	mode, err := d.Device.EnterConfig()
	if err != nil {
		return nil, err
	}
	return &ConfigMode{ConfigMode: mode}, nil
}

// ConfigMode is the IOS global configuration guard
type ConfigMode struct {
	*generic.ConfigMode
}

var _ ports.ConfigMode = (*ConfigMode)(nil)

// InterfaceUp enables iface from its interface sub-context
func (m *ConfigMode) InterfaceUp(iface entities.Interface) error {
	return m.setShutdown(iface, "no shutdown")
}

// InterfaceDown shuts iface down. Shutting an interface that is already
// down is accepted by the device.
func (m *ConfigMode) InterfaceDown(iface entities.Interface) error {
	return m.setShutdown(iface, "shutdown")
}

func (m *ConfigMode) setShutdown(iface entities.Interface, command string) error {
	if err := m.ExecuteRaw("interface " + iface.Name()); err != nil {
		return err
	}
	if err := m.ExecuteRaw(command); err != nil {
		return err
	}
	return m.Exit()
}
