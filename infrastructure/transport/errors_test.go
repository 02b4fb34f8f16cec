package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectErrorKind_String(t *testing.T) {
	assert.Equal(t, "unreachable", Unreachable.String())
	assert.Equal(t, "handshake failed", Handshake.String())
	assert.Equal(t, "authentication rejected", AuthRejected.String())
	assert.Equal(t, "unknown(42)", ConnectErrorKind(42).String())
}

func TestConnectError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewConnectError(Handshake, "192.0.2.1:22", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connect to 192.0.2.1:22: handshake failed: boom", err.Error())
	assert.NotEmpty(t, err.Class)
}

func TestClassifyHandshake(t *testing.T) {
	auth := errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain")
	assert.Equal(t, AuthRejected, classifyHandshake(auth))
	assert.Equal(t, Handshake, classifyHandshake(errors.New("ssh: handshake failed: EOF")))
}
