package entities

import (
	"strconv"
	"strings"
)

// Interface identifies a device-local interface by its vendor textual name
type Interface struct {
	name string
}

// NewInterface wraps an already rendered interface name
func NewInterface(name string) Interface {
	return Interface{name: name}
}

// MakeInterface renders prefix followed by the slash-joined indices.
// An empty index list yields the bare prefix.
func MakeInterface(prefix string, indices ...uint) Interface {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.FormatUint(uint64(idx), 10)
	}
	return Interface{name: prefix + strings.Join(parts, "/")}
}

// Name returns the rendered interface name
func (i Interface) Name() string {
	return i.name
}

func (i Interface) String() string {
	return i.name
}
