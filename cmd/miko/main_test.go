package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/ports"
	"github.com/carlosrabelo/miko/infrastructure/transport/transporttest"
	"github.com/carlosrabelo/miko/platform"
)

const inventory = `
username: admin
password: secret
devices:
  - target: 192.0.2.1
  - target: 192.0.2.2
    platform: junos
    transport: ssh
`

type harness struct {
	opts       *options
	fake       *transporttest.Transport
	configPath string
	config     entities.DeviceConfig
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func newHarness(t *testing.T, prompt string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0644))

	h := &harness{fake: transporttest.New(prompt), configPath: path}
	h.fake.Queue(prompt)
	h.opts = newOptions()
	h.opts.readPassword = func(string) (string, error) {
		return "", errors.New("unexpected password prompt")
	}
	h.opts.connect = func(ctx context.Context, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error) {
		h.config = cfg
		driver, err := platform.Get(cfg.PlatformID())
		if err != nil {
			return nil, err
		}
		// the inventory credentials are for a real login; the fake is already at the prompt
		cfg.Username = ""
		return driver.Connect(h.fake, cfg, logger)
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := newRootCmd(h.opts)
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	root.SetArgs(append(args, "--config", h.configPath))
	return root.Execute()
}

func TestIfaceUp(t *testing.T) {
	h := newHarness(t, "Switch#")

	require.NoError(t, h.run("iface", "up", "--target", "192.0.2.1", "--prefix", "gi", "--index", "0/1"))
	assert.Equal(t, []string{
		"enable",
		"configure terminal",
		"interface gi0/1",
		"no shutdown",
		"exit",
		"exit",
		"write memory",
	}, h.fake.Sent())
	assert.Equal(t, "secret", h.config.Password)
	assert.Contains(t, h.stdout.String(), "1 interface(s) up on 192.0.2.1")
}

func TestInventoryIsLoaded(t *testing.T) {
	h := newHarness(t, "admin@ex2200> ")

	require.NoError(t, h.run("exec", "--target", "192.0.2.2", "show version"))
	assert.Equal(t, []string{"show version"}, h.fake.Sent())
	assert.Equal(t, "admin", h.config.Username)
	assert.Equal(t, "secret", h.config.Password)
	assert.Equal(t, "junos", h.config.Platform)
	assert.Equal(t, entities.TransportSSH, h.config.Transport)
}

func TestIfaceDownJunos(t *testing.T) {
	h := newHarness(t, "admin@ex2200# ")

	require.NoError(t, h.run("iface", "down", "--target", "192.0.2.2", "ge-0/0/0"))
	assert.Equal(t, []string{
		"configure",
		"set interfaces ge-0/0/0 disable",
		"commit",
		"exit",
	}, h.fake.Sent())
	assert.Equal(t, entities.TransportSSH, h.config.Transport)
}

func TestIfaceSaveFailureIsWarning(t *testing.T) {
	h := newHarness(t, "Switch#")
	h.opts.connect = func(ctx context.Context, cfg entities.DeviceConfig, logger *zap.Logger) (ports.Configurable, error) {
		return &saveFailingDevice{}, nil
	}
	require.NoError(t, h.run("iface", "down", "--target", "192.0.2.1", "gi0/2"))
	assert.Contains(t, h.stderr.String(), "Warning: configuration applied but not saved")
}

func TestExec(t *testing.T) {
	h := newHarness(t, "Switch#")

	require.NoError(t, h.run("exec", "--target", "192.0.2.1", "terminal length 0", "show clock"))
	assert.Equal(t, []string{"terminal length 0", "show clock"}, h.fake.Sent())
}

func TestSave(t *testing.T) {
	h := newHarness(t, "Switch#")

	require.NoError(t, h.run("save", "--target", "192.0.2.1"))
	assert.Equal(t, []string{"write memory"}, h.fake.Sent())
}

func TestFlagOverrides(t *testing.T) {
	h := newHarness(t, "Switch#")

	require.NoError(t, h.run("exec", "--target", "192.0.2.1", "--transport", "SSH", "--username", "ops", "show clock"))
	assert.Equal(t, "ssh", h.config.Transport)
	assert.Equal(t, "ops", h.config.Username)
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing target", args: []string{"save"}, wantErr: "--target flag is required"},
		{name: "unknown target", args: []string{"save", "--target", "198.51.100.1"}, wantErr: "not registered"},
		{name: "bad verbosity", args: []string{"save", "--target", "192.0.2.1", "--verbose", "4"}, wantErr: "--verbose must be"},
		{name: "no interfaces", args: []string{"iface", "up", "--target", "192.0.2.1"}, wantErr: "no interfaces given"},
		{name: "index without prefix", args: []string{"iface", "up", "--target", "192.0.2.1", "--index", "0/1"}, wantErr: "--index requires --prefix"},
		{name: "exec without command", args: []string{"exec", "--target", "192.0.2.1"}, wantErr: "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "Switch#")
			err := h.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, h.fake.Sent())
		})
	}
}

func TestPasswordPrompt(t *testing.T) {
	h := newHarness(t, "Switch#")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: admin\ndevices:\n  - target: 192.0.2.1\n"), 0644))
	h.configPath = path

	var prompted string
	h.opts.readPassword = func(prompt string) (string, error) {
		prompted = prompt
		return "typed", nil
	}

	require.NoError(t, h.run("save", "--target", "192.0.2.1"))
	assert.Equal(t, "Password for admin@192.0.2.1: ", prompted)
	assert.Equal(t, "typed", h.config.Password)
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "Switch#")

	require.NoError(t, h.run("version"))
	assert.Equal(t, "miko dev (built unknown)\n", h.stdout.String())
}

func TestBuildInterfaces(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		prefix  string
		indices []string
		want    []string
		wantErr bool
	}{
		{name: "names", names: []string{"Gi0/1", "Gi0/2"}, want: []string{"Gi0/1", "Gi0/2"}},
		{name: "prefix and indices", prefix: "FastEthernet", indices: []string{"0/7", "0/8"}, want: []string{"FastEthernet0/7", "FastEthernet0/8"}},
		{name: "mixed", names: []string{"Vlan10"}, prefix: "ge-", indices: []string{"0/0/1"}, want: []string{"Vlan10", "ge-0/0/1"}},
		{name: "negative index", prefix: "gi", indices: []string{"0/-1"}, wantErr: true},
		{name: "non numeric index", prefix: "gi", indices: []string{"a/1"}, wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildInterfaces(tt.names, tt.prefix, tt.indices)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, iface := range got {
				names = append(names, iface.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestNeedsPassword(t *testing.T) {
	tests := []struct {
		name string
		dev  entities.DeviceConfig
		want bool
	}{
		{name: "no username", dev: entities.DeviceConfig{}, want: false},
		{name: "password set", dev: entities.DeviceConfig{Username: "admin", Password: "x"}, want: false},
		{name: "telnet missing password", dev: entities.DeviceConfig{Username: "admin"}, want: true},
		{name: "ssh agent", dev: entities.DeviceConfig{Username: "admin", Transport: "ssh", UseAgent: true}, want: false},
		{name: "telnet ignores agent", dev: entities.DeviceConfig{Username: "admin", UseAgent: true}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsPassword(tt.dev))
		})
	}
}

// saveFailingDevice accepts every change and fails to save
type saveFailingDevice struct{}

func (saveFailingDevice) ExecuteRaw(string) error { return nil }
func (saveFailingDevice) Exit() error             { return nil }
func (saveFailingDevice) Close() error            { return nil }
func (saveFailingDevice) Save() error             { return errors.New("broken pipe") }

func (saveFailingDevice) EnterConfig() (ports.ConfigMode, error) {
	return acceptingMode{}, nil
}

type acceptingMode struct{}

func (acceptingMode) ExecuteRaw(string) error                { return nil }
func (acceptingMode) InterfaceUp(entities.Interface) error   { return nil }
func (acceptingMode) InterfaceDown(entities.Interface) error { return nil }
func (acceptingMode) Close()                                 {}
func (acceptingMode) GetInterface(p string, i ...uint) entities.Interface {
	return entities.MakeInterface(p, i...)
}
