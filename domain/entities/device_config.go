package entities

import (
	"net"
	"strings"
	"time"
)

const (
	TransportTelnet = "telnet"
	TransportSSH    = "ssh"

	DefaultTelnetPort = "23"
	DefaultSSHPort    = "22"
)

// DeviceConfig defines the connection settings for a single device
type DeviceConfig struct {
	Target         string        `yaml:"target"`
	Transport      string        `yaml:"transport"`
	Platform       string        `yaml:"platform"`
	LegacyPlatform string        `yaml:"vendor"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	EnablePassword string        `yaml:"enable_password"`
	UseAgent       bool          `yaml:"use_agent"`
	SNMPCommunity  string        `yaml:"snmp_community"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	VerbosityLevel int           `yaml:"-"`
}

// IsRawOutputEnabled returns true if raw device output is enabled
func (dc DeviceConfig) IsRawOutputEnabled() bool {
	return dc.VerbosityLevel == 2 || dc.VerbosityLevel == 3
}

// PlatformID returns the normalized platform, falling back to the legacy
// vendor key and finally to ios.
func (dc DeviceConfig) PlatformID() string {
	platform := strings.ToLower(strings.TrimSpace(dc.Platform))
	if platform == "" {
		platform = strings.ToLower(strings.TrimSpace(dc.LegacyPlatform))
	}
	if platform == "" {
		return "ios"
	}
	return platform
}

// TransportID returns the normalized transport name, telnet by default
func (dc DeviceConfig) TransportID() string {
	transport := strings.ToLower(strings.TrimSpace(dc.Transport))
	if transport == "" {
		return TransportTelnet
	}
	return transport
}

// Address returns host:port, adding the transport default port when the
// target carries none.
func (dc DeviceConfig) Address() string {
	if _, _, err := net.SplitHostPort(dc.Target); err == nil {
		return dc.Target
	}
	port := DefaultTelnetPort
	if dc.TransportID() == TransportSSH {
		port = DefaultSSHPort
	}
	return net.JoinHostPort(strings.Trim(dc.Target, "[]"), port)
}

// Host returns the target without any port
func (dc DeviceConfig) Host() string {
	if host, _, err := net.SplitHostPort(dc.Target); err == nil {
		return host
	}
	return strings.Trim(dc.Target, "[]")
}

// HasCredentials reports whether a username was supplied
func (dc DeviceConfig) HasCredentials() bool {
	return dc.Username != ""
}
