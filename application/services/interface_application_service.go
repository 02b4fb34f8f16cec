package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/domain/services"
	"github.com/carlosrabelo/miko/platform"
)

// Connector opens a session with the device described by cfg
type Connector func(ctx context.Context, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error)

// InterfaceApplicationService opens one session per call and runs the
// interface service over it.
type InterfaceApplicationService struct {
	config  entities.DeviceConfig
	connect Connector
	logger  *zap.Logger
}

// NewInterfaceApplicationService creates a new instance of the interface application service
func NewInterfaceApplicationService(config entities.DeviceConfig, logger *zap.Logger) *InterfaceApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterfaceApplicationService{
		config:  config,
		connect: platform.Connect,
		logger:  logger.With(zap.String("target", config.Target)),
	}
}

// WithConnector replaces how sessions are opened
func (a *InterfaceApplicationService) WithConnector(connect Connector) *InterfaceApplicationService {
	a.connect = connect
	return a
}

// SetInterfaces brings the interfaces up or down and saves
func (a *InterfaceApplicationService) SetInterfaces(ctx context.Context, ifaces []entities.Interface, up bool) error {
	return a.withService(ctx, func(svc *services.InterfaceService) error {
		return svc.SetState(ifaces, up)
	})
}

// RunCommands executes raw commands at the top level
func (a *InterfaceApplicationService) RunCommands(ctx context.Context, commands []string) error {
	return a.withService(ctx, func(svc *services.InterfaceService) error {
		return svc.RunCommands(commands)
	})
}

// Save persists the running configuration
func (a *InterfaceApplicationService) Save(ctx context.Context) error {
	return a.withService(ctx, func(svc *services.InterfaceService) error {
		return svc.Save()
	})
}

// DetectPlatform returns the platform name reported by the device over SNMP
func (a *InterfaceApplicationService) DetectPlatform(ctx context.Context) (string, error) {
	driver, err := platform.Detect(ctx, a.config)
	if err != nil {
		return "", err
	}
	return driver.Name(), nil
}

func (a *InterfaceApplicationService) withService(ctx context.Context, fn func(*services.InterfaceService) error) error {
	dev, err := a.connect(ctx, a.config, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			a.logger.Debug("failed to close session", zap.Error(err))
		}
	}()
	return fn(services.NewInterfaceService(dev, a.config, a.logger))
}
