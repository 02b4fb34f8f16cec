package entities

import (
	"testing"
)

func TestDeviceConfig_IsRawOutputEnabled(t *testing.T) {
	tests := []struct {
		name           string
		verbosityLevel int
		expected       bool
	}{
		{name: "verbosity level 0", verbosityLevel: 0, expected: false},
		{name: "verbosity level 1", verbosityLevel: 1, expected: false},
		{name: "verbosity level 2", verbosityLevel: 2, expected: true},
		{name: "verbosity level 3", verbosityLevel: 3, expected: true},
		{name: "verbosity level 4", verbosityLevel: 4, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DeviceConfig{VerbosityLevel: tt.verbosityLevel}
			if result := config.IsRawOutputEnabled(); result != tt.expected {
				t.Errorf("IsRawOutputEnabled() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDeviceConfig_PlatformID(t *testing.T) {
	tests := []struct {
		name           string
		platform       string
		legacyPlatform string
		expected       string
	}{
		{name: "ios platform", platform: "ios", expected: "ios"},
		{name: "junos platform", platform: "junos", expected: "junos"},
		{name: "uppercase platform", platform: "IOS", expected: "ios"},
		{name: "platform with spaces", platform: "  junos  ", expected: "junos"},
		{name: "empty platform, legacy vendor", legacyPlatform: "junos", expected: "junos"},
		{name: "empty platform, uppercase legacy vendor", legacyPlatform: "JUNOS", expected: "junos"},
		{name: "both empty", expected: "ios"},
		{name: "platform takes precedence", platform: "ios", legacyPlatform: "junos", expected: "ios"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DeviceConfig{
				Platform:       tt.platform,
				LegacyPlatform: tt.legacyPlatform,
			}
			if result := config.PlatformID(); result != tt.expected {
				t.Errorf("PlatformID() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDeviceConfig_TransportID(t *testing.T) {
	tests := []struct {
		transport string
		expected  string
	}{
		{transport: "", expected: "telnet"},
		{transport: "SSH", expected: "ssh"},
		{transport: " telnet ", expected: "telnet"},
	}

	for _, tt := range tests {
		config := DeviceConfig{Transport: tt.transport}
		if result := config.TransportID(); result != tt.expected {
			t.Errorf("TransportID(%q) = %v, want %v", tt.transport, result, tt.expected)
		}
	}
}

func TestDeviceConfig_Address(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		transport string
		expected  string
	}{
		{name: "telnet default port", target: "192.168.1.1", transport: "telnet", expected: "192.168.1.1:23"},
		{name: "ssh default port", target: "192.168.1.1", transport: "ssh", expected: "192.168.1.1:22"},
		{name: "explicit port kept", target: "192.168.1.1:2323", transport: "telnet", expected: "192.168.1.1:2323"},
		{name: "hostname", target: "core-sw1", transport: "", expected: "core-sw1:23"},
		{name: "bare ipv6", target: "2001:db8::1", transport: "ssh", expected: "[2001:db8::1]:22"},
		{name: "bracketed ipv6 with port", target: "[2001:db8::1]:830", transport: "ssh", expected: "[2001:db8::1]:830"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DeviceConfig{Target: tt.target, Transport: tt.transport}
			if result := config.Address(); result != tt.expected {
				t.Errorf("Address() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDeviceConfig_Host(t *testing.T) {
	if host := (DeviceConfig{Target: "10.0.0.1:2323"}).Host(); host != "10.0.0.1" {
		t.Errorf("Host() = %v, want 10.0.0.1", host)
	}
	if host := (DeviceConfig{Target: "10.0.0.1"}).Host(); host != "10.0.0.1" {
		t.Errorf("Host() = %v, want 10.0.0.1", host)
	}
}

func TestDeviceConfig_DefaultValues(t *testing.T) {
	var config DeviceConfig

	if config.UseAgent {
		t.Errorf("Expected UseAgent to be false by default")
	}
	if config.VerbosityLevel != 0 {
		t.Errorf("Expected VerbosityLevel to be 0 by default, got %d", config.VerbosityLevel)
	}
	if config.HasCredentials() {
		t.Errorf("Expected no credentials by default")
	}
}
