// Miko drives network devices over Telnet or SSH: it brings interfaces up
// and down, runs raw commands and saves the running configuration.
//
// Usage:
//
//	miko [command] --target <host> [flags]
//
// Devices are read from a YAML inventory (config.yaml in the working
// directory, the user config directory or /etc/miko). A target missing from
// the inventory can still be reached with --transport, --platform and
// --username.
package main

import (
	"fmt"
	"os"

	"github.com/carlosrabelo/miko/infrastructure/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	root := newRootCmd(newOptions())
	err := root.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
