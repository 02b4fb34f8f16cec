package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/carlosrabelo/miko/domain/entities"
)

// FileName is the inventory file looked up by DefaultPaths
const FileName = "config.yaml"

// ErrNotFound is returned when no inventory file exists in the default locations
var ErrNotFound = errors.New("no configuration file found")

// Config defines the global defaults and the device inventory
type Config struct {
	Platform       string                  `yaml:"platform"`
	LegacyVendor   string                  `yaml:"vendor"`
	Transport      string                  `yaml:"transport"`
	Username       string                  `yaml:"username"`
	Password       string                  `yaml:"password"`
	EnablePassword string                  `yaml:"enable_password"`
	UseAgent       bool                    `yaml:"use_agent"`
	SNMPCommunity  string                  `yaml:"snmp_community"`
	ConnectTimeout time.Duration           `yaml:"connect_timeout"`
	ReadTimeout    time.Duration           `yaml:"read_timeout"`
	Devices        []entities.DeviceConfig `yaml:"devices"`
}

func validatePlatform(platform string) error {
	switch platform {
	case "ios", "junos", "auto":
		return nil
	default:
		return fmt.Errorf("platform %s is invalid, must be 'ios', 'junos', or 'auto'", platform)
	}
}

func validateTransport(transport string) error {
	switch transport {
	case entities.TransportTelnet, entities.TransportSSH:
		return nil
	default:
		return fmt.Errorf("transport %s is invalid, must be 'telnet' or 'ssh'", transport)
	}
}

// DefaultPaths lists where the inventory is looked up, in order
func DefaultPaths() []string {
	paths := []string{filepath.Join(".", FileName)}
	if runtime.GOOS == "windows" {
		if appDataDir := os.Getenv("APPDATA"); appDataDir != "" {
			paths = append(paths, filepath.Join(appDataDir, "miko", FileName))
		}
		if programDataDir := os.Getenv("ProgramData"); programDataDir != "" {
			paths = append(paths, filepath.Join(programDataDir, "miko", FileName))
		}
		return paths
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userConfigDir, "miko", FileName))
	}
	return append(paths, filepath.Join("/etc", "miko", FileName))
}

// Locate returns path when set, otherwise the first existing default path
func Locate(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	candidates := DefaultPaths()
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNotFound, strings.Join(candidates, ", "))
}

// Load loads and validates the inventory from a YAML file
func Load(yamlFile string, verbosityLevel int, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(yamlFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", yamlFile, err)
	}
	return Parse(data, verbosityLevel, logger)
}

// Parse validates an inventory and merges the global defaults into every device
func Parse(data []byte, verbosityLevel int, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	primaryPlatform := cfg.Platform
	if primaryPlatform == "" {
		primaryPlatform = cfg.LegacyVendor
	}
	cfg.Platform = strings.ToLower(strings.TrimSpace(primaryPlatform))
	if cfg.Platform == "" {
		cfg.Platform = "ios"
	}
	if err := validatePlatform(cfg.Platform); err != nil {
		return nil, err
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport == "" {
		cfg.Transport = entities.TransportTelnet
	}
	if err := validateTransport(cfg.Transport); err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout < 0 || cfg.ReadTimeout < 0 {
		return nil, fmt.Errorf("global timeouts must not be negative")
	}

	logger.Debug("global values",
		zap.String("platform", cfg.Platform),
		zap.String("transport", cfg.Transport),
		zap.Duration("connect_timeout", cfg.ConnectTimeout),
		zap.Duration("read_timeout", cfg.ReadTimeout))

	if len(cfg.Devices) == 0 {
		return nil, fmt.Errorf("no devices defined in the YAML configuration")
	}

	seen := make(map[string]bool, len(cfg.Devices))
	for i, dev := range cfg.Devices {
		if dev.Target == "" {
			return nil, fmt.Errorf("target is required for device %d", i)
		}
		if seen[dev.Target] {
			return nil, fmt.Errorf("device %s is defined more than once", dev.Target)
		}
		seen[dev.Target] = true

		merged, err := cfg.merge(dev, verbosityLevel)
		if err != nil {
			return nil, err
		}
		logger.Debug("device configuration",
			zap.String("target", merged.Target),
			zap.String("platform", merged.Platform),
			zap.String("transport", merged.Transport),
			zap.Bool("credentials", merged.HasCredentials()),
			zap.Bool("use_agent", merged.UseAgent))
		cfg.Devices[i] = merged
	}

	return &cfg, nil
}

func (c *Config) merge(dev entities.DeviceConfig, verbosityLevel int) (entities.DeviceConfig, error) {
	dev.Transport = strings.ToLower(strings.TrimSpace(dev.Transport))
	if dev.Transport == "" {
		dev.Transport = c.Transport
	}
	if err := validateTransport(dev.Transport); err != nil {
		return dev, fmt.Errorf("invalid transport for device %s: %w", dev.Target, err)
	}

	rawPlatform := dev.Platform
	if rawPlatform == "" {
		rawPlatform = dev.LegacyPlatform
	}
	dev.Platform = strings.ToLower(strings.TrimSpace(rawPlatform))
	dev.LegacyPlatform = ""
	if dev.Platform == "" {
		dev.Platform = c.Platform
	}
	if err := validatePlatform(dev.Platform); err != nil {
		return dev, fmt.Errorf("invalid platform for device %s: %w", dev.Target, err)
	}

	if dev.Username == "" {
		dev.Username = c.Username
	}
	if dev.Password == "" {
		dev.Password = c.Password
	}
	if dev.EnablePassword == "" {
		dev.EnablePassword = c.EnablePassword
	}
	if dev.SNMPCommunity == "" {
		dev.SNMPCommunity = c.SNMPCommunity
	}
	dev.UseAgent = dev.UseAgent || c.UseAgent

	if dev.ConnectTimeout == 0 {
		dev.ConnectTimeout = c.ConnectTimeout
	}
	if dev.ReadTimeout == 0 {
		dev.ReadTimeout = c.ReadTimeout
	}
	if dev.ConnectTimeout < 0 || dev.ReadTimeout < 0 {
		return dev, fmt.Errorf("timeouts must not be negative for device %s", dev.Target)
	}

	dev.VerbosityLevel = verbosityLevel
	return dev, nil
}

// Find returns the device registered under target
func (c *Config) Find(target string) (entities.DeviceConfig, bool) {
	for _, dev := range c.Devices {
		if dev.Target == target || dev.Host() == target {
			return dev, true
		}
	}
	return entities.DeviceConfig{}, false
}

// Targets returns every registered target in file order
func (c *Config) Targets() []string {
	targets := make([]string, 0, len(c.Devices))
	for _, dev := range c.Devices {
		targets = append(targets, dev.Target)
	}
	return targets
}
