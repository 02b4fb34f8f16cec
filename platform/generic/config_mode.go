package generic

import (
	"sync"

	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
)

// ConfigMode is the configuration-mode guard. While it is open the device
// rejects direct use; Close leaves configuration mode exactly once.
//
//	mode, err := dev.EnterConfig()
//	if err != nil {
//		return err
//	}
//	defer mode.Close()
type ConfigMode struct {
	device *Device

	mu     sync.Mutex
	closed bool
}

// ExecuteRaw sends a command inside configuration mode
func (m *ConfigMode) ExecuteRaw(command string) error {
	if m.isClosed() {
		return ErrConfigModeClosed
	}
	return m.device.exec(command)
}

// Exit sends the vendor exit command without releasing the guard, leaving
// a configuration sub-context such as an interface.
func (m *ConfigMode) Exit() error {
	return m.ExecuteRaw(m.device.dialect.ExitCommand)
}

// GetInterface renders an interface name from prefix and indices
func (m *ConfigMode) GetInterface(prefix string, indices ...uint) entities.Interface {
	return entities.MakeInterface(prefix, indices...)
}

// Device returns the guarded session
func (m *ConfigMode) Device() *Device {
	return m.device
}

// Close sends the exit command and releases the session. Exit errors are
// logged and discarded. Only the first call has any effect.
func (m *ConfigMode) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	if err := m.device.exec(m.device.dialect.ExitCommand); err != nil {
		m.device.logger.Warn("failed to leave configuration mode", zap.Error(err))
	}
	m.device.release()
	m.device.logger.Debug("left configuration mode")
}

func (m *ConfigMode) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
