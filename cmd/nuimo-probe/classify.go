package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"github.com/srg/nuimo-probe/internal/bluez"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <object-path>...",
		Short: "Classify BlueZ object paths without touching the bus",
		Long: `Prints the role (device, service, characteristic or unrecognized) and the
device address of each object path, using the configured adapter as prefix.

Examples:
  nuimo-probe classify /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/service000f/char0010
  nuimo-probe classify --adapter /org/bluez/hci1 /org/bluez/hci1/dev_AA_BB_CC_DD_EE_FF`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			classifier := bluez.NewClassifier(cfg.AdapterPath())
			results := make([]objectRow, 0, len(args))
			for _, arg := range args {
				c := classifier.Classify(dbus.ObjectPath(arg))
				results = append(results, objectRow{Path: c.Path, Role: c.Role.String(), Address: c.Address})
			}

			if cfg.OutputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), results)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, r := range results {
				address := r.Address
				if address == "" {
					address = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, strings.ToUpper(r.Role[:1])+r.Role[1:], address)
			}
			return tw.Flush()
		},
	}
}
