// Package junos adapts Juniper JUNOS command line interfaces. Changes are
// staged in configuration mode and applied with Commit; Save is a no-op.
package junos

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/platform/generic"
)

const driverName = "junos"

var (
	promptPattern      = regexp.MustCompile(`[>#%]$`)
	authFailurePattern = regexp.MustCompile(`(?i)(login:?|login incorrect.*)$`)
)

// Dialect returns the JUNOS command conventions
func Dialect() generic.Dialect {
	return generic.Dialect{
		Name:          driverName,
		Prompt:        promptPattern,
		ConfigCommand: "configure",
		ExitCommand:   "exit",
		AuthFailure:   authFailurePattern,
	}
}

// Driver registers JUNOS with the platform registry.
type Driver struct{}

// New creates a new JUNOS driver instance.
func New() *Driver {
	return &Driver{}
}

// Name returns the canonical platform identifier.
func (d *Driver) Name() string {
	return driverName
}

// Matches reports whether an SNMP sysDescr belongs to a JUNOS device.
func (d *Driver) Matches(sysDescr string) bool {
	lower := strings.ToLower(sysDescr)
	return strings.Contains(lower, "junos") || strings.Contains(lower, "juniper")
}

// AuthenticationSequence returns the Telnet login sequence for JUNOS
func (d *Driver) AuthenticationSequence(username, password string) []entities.AuthPrompt {
	return []entities.AuthPrompt{
		{WaitFor: `(?i)login:?$`, SendCmd: username},
		{WaitFor: `(?i)password:?$`, SendCmd: password},
	}
}

// Connect opens a JUNOS session over t
func (d *Driver) Connect(t ports.Transport, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error) {
	session, err := generic.Open(t, Dialect(), cfg, d.AuthenticationSequence(cfg.Username, cfg.Password), logger)
	if err != nil {
		return nil, err
	}
	return &Device{Device: session}, nil
}

// Device is a JUNOS session
type Device struct {
	*generic.Device
}

var _ ports.Configurable = (*Device)(nil)

// EnterCLI starts the operational CLI when the session landed in the
// root shell.
func (d *Device) EnterCLI() error {
	return d.ExecuteRaw("cli")
}

// EnterConfig sends "configure" and returns the guard
func (d *Device) EnterConfig() (ports.ConfigMode, error) {
	mode, err := d.Device.EnterConfig()
	if err != nil {
		return nil, err
	}
	return &ConfigMode{ConfigMode: mode}, nil
}

// ConfigMode is the JUNOS candidate configuration guard
type ConfigMode struct {
	*generic.ConfigMode
}

var (
	_ ports.ConfigMode = (*ConfigMode)(nil)
	_ ports.Committer  = (*ConfigMode)(nil)
)

// InterfaceUp stages "set interfaces <name> enable"
func (m *ConfigMode) InterfaceUp(iface entities.Interface) error {
	return m.ExecuteRaw("set interfaces " + iface.Name() + " enable")
}

// InterfaceDown stages "set interfaces <name> disable"
func (m *ConfigMode) InterfaceDown(iface entities.Interface) error {
	return m.ExecuteRaw("set interfaces " + iface.Name() + " disable")
}

// Commit applies the staged changes. A commit may outlast the read
// timeout; callers that issue more commands right after should allow the
// device to settle.
func (m *ConfigMode) Commit() error {
	return m.ExecuteRaw("commit")
}
