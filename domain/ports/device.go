package ports

import "github.com/carlosrabelo/miko/domain/entities"

// RawExecutor sends a single command line and waits for the device prompt
type RawExecutor interface {
	ExecuteRaw(command string) error
}

// Configurable defines the port for a vendor device session
type Configurable interface {
	RawExecutor
	EnterConfig() (ConfigMode, error)
	Exit() error
	Save() error
	Close() error
}

// InterfaceConfigurable translates interface state changes into vendor commands
type InterfaceConfigurable interface {
	InterfaceUp(iface entities.Interface) error
	InterfaceDown(iface entities.Interface) error
}

// ConfigMode is a scoped configuration transaction. Close leaves
// configuration mode exactly once and never fails.
type ConfigMode interface {
	RawExecutor
	InterfaceConfigurable
	GetInterface(prefix string, indices ...uint) entities.Interface
	Close()
}

// Committer is implemented by configuration modes that stage changes and
// apply them explicitly.
type Committer interface {
	Commit() error
}

// Enabler is implemented by devices that require privilege escalation
// before configuration mode is reachable.
type Enabler interface {
	Enable(password string) error
}
