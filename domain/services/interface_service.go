package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
)

// SaveError reports that changes were applied but could not be persisted
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("configuration applied but not saved: %v", e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// InterfaceService drives interface changes through a device session
type InterfaceService struct {
	device ports.Configurable
	config entities.DeviceConfig
	logger *zap.Logger
}

// NewInterfaceService creates a new instance of the interface service
func NewInterfaceService(device ports.Configurable, config entities.DeviceConfig, logger *zap.Logger) *InterfaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterfaceService{
		device: device,
		config: config,
		logger: logger,
	}
}

// SetState brings every interface up or down inside one configuration
// transaction, commits when the platform stages changes, then saves.
// A failed save is returned as *SaveError.
func (s *InterfaceService) SetState(ifaces []entities.Interface, up bool) error {
	if len(ifaces) == 0 {
		return errors.New("no interfaces given")
	}
	if err := s.enable(); err != nil {
		return err
	}
	if err := s.apply(ifaces, up); err != nil {
		return err
	}
	return s.Save()
}

// RunCommands sends each command at the top level, stopping at the first
// failure.
func (s *InterfaceService) RunCommands(commands []string) error {
	for _, cmd := range commands {
		if err := s.device.ExecuteRaw(cmd); err != nil {
			return fmt.Errorf("command %q failed: %w", cmd, err)
		}
	}
	return nil
}

// Save persists the running configuration
func (s *InterfaceService) Save() error {
	if err := s.device.Save(); err != nil {
		s.logger.Warn("failed to save configuration", zap.Error(err))
		return &SaveError{Err: err}
	}
	s.logger.Info("configuration saved")
	return nil
}

func (s *InterfaceService) enable() error {
	enabler, ok := s.device.(ports.Enabler)
	if !ok {
		return nil
	}
	if err := enabler.Enable(s.config.EnablePassword); err != nil {
		return fmt.Errorf("failed to enter privileged mode: %w", err)
	}
	return nil
}

func (s *InterfaceService) apply(ifaces []entities.Interface, up bool) error {
	mode, err := s.device.EnterConfig()
	if err != nil {
		return fmt.Errorf("failed to enter configuration mode: %w", err)
	}
	defer mode.Close()

	state := "down"
	if up {
		state = "up"
	}
	for _, iface := range ifaces {
		if up {
			err = mode.InterfaceUp(iface)
		} else {
			err = mode.InterfaceDown(iface)
		}
		if err != nil {
			return fmt.Errorf("failed to set %s %s: %w", iface, state, err)
		}
		s.logger.Info("interface updated", zap.Stringer("interface", iface), zap.String("state", state))
	}

	if committer, ok := mode.(ports.Committer); ok {
		if err := committer.Commit(); err != nil {
			return fmt.Errorf("failed to commit configuration: %w", err)
		}
		s.logger.Info("configuration committed")
	}
	return nil
}
