package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the command tree. Tests build a fresh tree per case so
// flag state never leaks between them.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nuimo-probe",
		Short: "Discover Nuimo controllers over BlueZ and read their battery",
		Long: `Discovers Nuimo Bluetooth Low Energy controllers through the BlueZ D-Bus API,
connects to every matching device and reads the battery level once the
battery characteristic is exported.

The run command does what the probe is for: it starts an LE-only discovery
filtered to the Nuimo service fingerprints and reacts to BlueZ notifications
until interrupted. The other commands are one-shot helpers for inspecting
BlueZ objects and driving single devices.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
	}

	// Silence Cobra's "Error:" prefix - main() prints clean errors
	root.SilenceErrors = true

	root.AddCommand(newRunCmd())
	root.AddCommand(newObjectsCmd())
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newDeviceCmd("connect", "Connect to a device", connectOp))
	root.AddCommand(newDeviceCmd("disconnect", "Disconnect a device", disconnectOp))
	root.AddCommand(newDeviceCmd("pair", "Pair with a device", pairOp))
	root.AddCommand(newBatteryCmd())

	// Global flags
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("config", "", "Path to a YAML config file")
	root.PersistentFlags().String("adapter", "", "BlueZ adapter object path (default /org/bluez/hci0)")
	root.PersistentFlags().StringP("format", "f", "", "Output format (table, json)")

	// Add -v as a short flag for --version
	root.Flags().BoolP("version", "v", false, "Show version information")

	return root
}

var rootCmd = newRootCmd()

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
