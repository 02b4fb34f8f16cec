package generic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrabelo/miko/infrastructure/transport/transporttest"
)

func TestConfigMode_SendsExitOnce(t *testing.T) {
	fake := transporttest.New("Switch(config)#")
	dev := connectFake(t, fake)

	mode, err := dev.EnterConfig()
	require.NoError(t, err)
	assert.Equal(t, Configuring, dev.State())

	mode.Close()
	mode.Close()

	assert.Equal(t, []string{"configure terminal", "exit"}, fake.Sent())
	assert.Equal(t, Connected, dev.State())
}

func TestConfigMode_BlocksDirectUse(t *testing.T) {
	fake := transporttest.New("Switch#")
	dev := connectFake(t, fake)

	mode, err := dev.EnterConfig()
	require.NoError(t, err)
	defer mode.Close()

	assert.ErrorIs(t, dev.ExecuteRaw("show run"), ErrConfigModeActive)
	assert.ErrorIs(t, dev.Exit(), ErrConfigModeActive)
	assert.ErrorIs(t, dev.Save(), ErrConfigModeActive)

	_, err = dev.EnterConfig()
	assert.ErrorIs(t, err, ErrConfigModeActive)

	assert.Equal(t, []string{"configure terminal"}, fake.Sent())
}

func TestConfigMode_ReenterAfterClose(t *testing.T) {
	fake := transporttest.New("Switch#")
	dev := connectFake(t, fake)

	first, err := dev.EnterConfig()
	require.NoError(t, err)
	first.Close()

	second, err := dev.EnterConfig()
	require.NoError(t, err)
	second.Close()

	assert.Equal(t, []string{"configure terminal", "exit", "configure terminal", "exit"}, fake.Sent())
}

func TestConfigMode_ClosedGuardRejectsCommands(t *testing.T) {
	fake := transporttest.New("Switch#")
	dev := connectFake(t, fake)

	mode, err := dev.EnterConfig()
	require.NoError(t, err)
	mode.Close()

	assert.ErrorIs(t, mode.ExecuteRaw("hostname core"), ErrConfigModeClosed)
	assert.ErrorIs(t, mode.Exit(), ErrConfigModeClosed)
}

func TestConfigMode_ExitKeepsGuard(t *testing.T) {
	fake := transporttest.New("Switch(config)#")
	dev := connectFake(t, fake)

	mode, err := dev.EnterConfig()
	require.NoError(t, err)

	require.NoError(t, mode.ExecuteRaw("interface gi0/1"))
	require.NoError(t, mode.Exit())
	assert.Equal(t, Configuring, dev.State())

	mode.Close()
	assert.Equal(t, []string{"configure terminal", "interface gi0/1", "exit", "exit"}, fake.Sent())
}

func TestConfigMode_CloseSwallowsExitError(t *testing.T) {
	fake := transporttest.New("Switch#")
	dev := connectFake(t, fake)

	mode, err := dev.EnterConfig()
	require.NoError(t, err)

	fake.WriteErr = errors.New("broken pipe")
	assert.NotPanics(t, mode.Close)
	assert.Equal(t, Connected, dev.State())
}

func TestConfigMode_EnterFailureReleases(t *testing.T) {
	fake := transporttest.New("Switch#")
	dev := connectFake(t, fake)

	fake.WriteErr = errors.New("broken pipe")
	_, err := dev.EnterConfig()
	require.Error(t, err)
	assert.Equal(t, Connected, dev.State())
}

func TestConfigMode_GetInterface(t *testing.T) {
	fake := transporttest.New("Switch#")
	dev := connectFake(t, fake)

	mode, err := dev.EnterConfig()
	require.NoError(t, err)
	defer mode.Close()

	assert.Equal(t, "FastEthernet0/7", mode.GetInterface("FastEthernet", 0, 7).Name())
	assert.Equal(t, "ge-0/0/0", mode.GetInterface("ge-", 0, 0, 0).Name())
	assert.Same(t, dev, mode.Device())
}
