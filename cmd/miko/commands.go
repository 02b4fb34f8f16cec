package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	appservices "github.com/carlosrabelo/miko/application/services"
	"github.com/carlosrabelo/miko/domain/entities"
	"github.com/carlosrabelo/miko/domain/services"
	"github.com/carlosrabelo/miko/infrastructure/config"
	"github.com/carlosrabelo/miko/infrastructure/logging"
	"github.com/carlosrabelo/miko/platform"
)

// options holds the persistent flags and the seams tests replace
type options struct {
	configPath string
	target     string
	transport  string
	platform   string
	username   string
	verbosity  int
	timeout    time.Duration

	connect      appservices.Connector
	readPassword func(prompt string) (string, error)
}

func newOptions() *options {
	return &options{
		connect:      platform.Connect,
		readPassword: readTerminalPassword,
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "miko",
		Short: "Configure network devices over Telnet or SSH",
		Long: `Miko opens a CLI session with a Cisco IOS or Juniper JUNOS device and
applies interface changes inside a configuration-mode transaction.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbosity < 0 || opts.verbosity > 3 {
				return errors.New("--verbose must be 0, 1, 2, or 3")
			}
			return logging.Initialize(logging.LevelForVerbosity(opts.verbosity))
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML inventory file (default: search ./, user config dir, /etc/miko)")
	flags.StringVar(&opts.target, "target", "", "Device target, as registered in the inventory")
	flags.StringVar(&opts.transport, "transport", "", "Override transport (telnet, ssh)")
	flags.StringVar(&opts.platform, "platform", "", "Override platform (ios, junos, auto)")
	flags.StringVar(&opts.username, "username", "", "Override username")
	flags.IntVar(&opts.verbosity, "verbose", 0, "Verbosity level: 0=none, 1=debug logs, 2=raw device output, 3=debug+raw output")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Overall time limit for connecting, 0 uses the configured value")

	root.AddCommand(
		newExecCmd(opts),
		newIfaceCmd(opts),
		newSaveCmd(opts),
		newDetectCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "miko %s (built %s)\n", version, buildTime)
		},
	}
}

func newExecCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command>...",
		Short: "Run raw commands at the top-level prompt",
		Example: `  # Disable paging, then show the clock
  miko exec --target 192.0.2.1 "terminal length 0" "show clock"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.application()
			if err != nil {
				return err
			}
			return app.RunCommands(cmd.Context(), args)
		},
	}
}

func newIfaceCmd(opts *options) *cobra.Command {
	var (
		prefix  string
		indices []string
	)

	iface := &cobra.Command{
		Use:   "iface",
		Short: "Bring interfaces up or down",
		Example: `  # Enable GigabitEthernet0/1 and save
  miko iface up --target 192.0.2.1 GigabitEthernet0/1

  # Disable two Juniper ports, built from a prefix and index paths
  miko iface down --target 192.0.2.2 --prefix ge- --index 0/0/0 --index 0/0/1`,
	}
	iface.PersistentFlags().StringVar(&prefix, "prefix", "", "Interface name prefix, combined with --index")
	iface.PersistentFlags().StringArrayVar(&indices, "index", nil, "Slash separated index path, repeatable")

	for _, state := range []string{"up", "down"} {
		up := state == "up"
		iface.AddCommand(&cobra.Command{
			Use:   state + " [interface]...",
			Short: "Bring interfaces " + state,
			RunE: func(cmd *cobra.Command, args []string) error {
				ifaces, err := buildInterfaces(args, prefix, indices)
				if err != nil {
					return err
				}
				app, err := opts.application()
				if err != nil {
					return err
				}
				err = app.SetInterfaces(cmd.Context(), ifaces, up)
				var saveErr *services.SaveError
				if errors.As(err, &saveErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", saveErr)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d interface(s) %s on %s\n", len(ifaces), state, opts.target)
				return nil
			},
		})
	}
	return iface
}

func newSaveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist the running configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.application()
			if err != nil {
				return err
			}
			return app.Save(cmd.Context())
		},
	}
}

func newDetectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Identify the device platform over SNMP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := opts.device()
			if err != nil {
				return err
			}
			name, err := appservices.NewInterfaceApplicationService(dev, logging.GetLogger()).DetectPlatform(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

// buildInterfaces combines positional interface names with prefix/index pairs
func buildInterfaces(names []string, prefix string, indices []string) ([]entities.Interface, error) {
	ifaces := make([]entities.Interface, 0, len(names)+len(indices))
	for _, name := range names {
		ifaces = append(ifaces, entities.NewInterface(name))
	}
	if len(indices) > 0 && prefix == "" {
		return nil, errors.New("--index requires --prefix")
	}
	for _, path := range indices {
		parsed, err := parseIndexPath(path)
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, entities.MakeInterface(prefix, parsed...))
	}
	if len(ifaces) == 0 {
		return nil, errors.New("no interfaces given, pass names or --prefix with --index")
	}
	return ifaces, nil
}

func parseIndexPath(path string) ([]uint, error) {
	parts := strings.Split(path, "/")
	out := make([]uint, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 0)
		if err != nil {
			return nil, fmt.Errorf("invalid interface index %q in %q", part, path)
		}
		out = append(out, uint(n))
	}
	return out, nil
}

func (o *options) application() (*appservices.InterfaceApplicationService, error) {
	dev, err := o.device()
	if err != nil {
		return nil, err
	}
	return appservices.NewInterfaceApplicationService(dev, logging.GetLogger()).WithConnector(o.connect), nil
}

// device resolves the target from the inventory, applies flag overrides
// and asks for a missing password.
func (o *options) device() (entities.DeviceConfig, error) {
	if o.target == "" {
		return entities.DeviceConfig{}, errors.New("the --target flag is required")
	}

	dev, err := o.lookup()
	if err != nil {
		return dev, err
	}
	if o.transport != "" {
		dev.Transport = strings.ToLower(o.transport)
	}
	if o.platform != "" {
		dev.Platform = strings.ToLower(o.platform)
	}
	if o.username != "" {
		dev.Username = o.username
	}
	if o.timeout > 0 {
		dev.ConnectTimeout = o.timeout
	}
	dev.VerbosityLevel = o.verbosity

	if needsPassword(dev) {
		password, err := o.readPassword(fmt.Sprintf("Password for %s@%s: ", dev.Username, dev.Host()))
		if err != nil {
			return dev, err
		}
		dev.Password = password
	}
	return dev, nil
}

func (o *options) lookup() (entities.DeviceConfig, error) {
	path, err := config.Locate(o.configPath)
	if errors.Is(err, config.ErrNotFound) {
		logging.GetLogger().Debug("no inventory found, using flags only", zap.Error(err))
		return entities.DeviceConfig{Target: o.target}, nil
	}
	if err != nil {
		return entities.DeviceConfig{}, err
	}

	cfg, err := config.Load(path, o.verbosity, logging.GetLogger())
	if err != nil {
		return entities.DeviceConfig{}, err
	}
	dev, ok := cfg.Find(o.target)
	if !ok {
		return dev, fmt.Errorf("target %s not registered in %s", o.target, path)
	}
	return dev, nil
}

func needsPassword(dev entities.DeviceConfig) bool {
	if dev.Username == "" || dev.Password != "" {
		return false
	}
	return !(dev.TransportID() == entities.TransportSSH && dev.UseAgent)
}

// readTerminalPassword prompts on stderr when stdin is a terminal and
// returns an empty password otherwise.
func readTerminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}
