package platform

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/infrastructure/transport"
	"github.com/carlosrabelo/miko/platform/ios"
	"github.com/carlosrabelo/miko/platform/junos"
)

// Auto selects the platform from the device's SNMP sysDescr
const Auto = "auto"

// Driver defines the behaviour required to support a device family.
type Driver interface {
	Name() string

	// Matches reports whether an SNMP sysDescr belongs to this platform
	Matches(sysDescr string) bool

	// AuthenticationSequence returns the login sequence for this platform
	AuthenticationSequence(username, password string) []entities.AuthPrompt

	// Connect takes ownership of t and returns an established session
	Connect(t ports.Transport, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error)
}

var registry = []Driver{
	ios.New(),
	junos.New(),
}

var openTransport = transport.Open

// Get returns a driver by normalized platform name.
func Get(name string) (Driver, error) {
	normalized := normalizeName(name)
	for _, driver := range registry {
		if driver.Name() == normalized {
			return driver, nil
		}
	}
	return nil, fmt.Errorf("unknown device platform: %s", name)
}

// Available returns all registered drivers.
func Available() []Driver {
	out := make([]Driver, len(registry))
	copy(out, registry)
	return out
}

// Names returns the registered platform names plus auto
func Names() []string {
	names := make([]string, 0, len(registry)+1)
	for _, driver := range registry {
		names = append(names, driver.Name())
	}
	return append(names, Auto)
}

// Resolve returns the driver configured for cfg, querying the device over
// SNMP when the platform is auto.
func Resolve(ctx context.Context, cfg entities.DeviceConfig, logger *zap.Logger) (Driver, error) {
	if cfg.PlatformID() != Auto {
		return Get(cfg.PlatformID())
	}
	driver, err := Detect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("detected device platform",
			zap.String("target", cfg.Target),
			zap.String("platform", driver.Name()))
	}
	return driver, nil
}

// Connect resolves the driver, opens the configured transport and hands
// it to the driver. The transport is closed when the driver fails.
func Connect(ctx context.Context, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := Resolve(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	t, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("transport open",
		zap.String("address", cfg.Address()),
		zap.String("transport", t.Kind()),
		zap.String("platform", driver.Name()))

	dev, err := driver.Connect(t, cfg, logger)
	if err != nil {
		// generic sessions close on failure; this covers drivers that do not
		_ = t.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address(), err)
	}
	return dev, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
