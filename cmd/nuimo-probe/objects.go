package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"github.com/srg/nuimo-probe/internal/bledb"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/devicefactory"
)

// objectRow is one line of the objects listing.
type objectRow struct {
	Path    dbus.ObjectPath `json:"path"`
	Role    string          `json:"role"`
	Address string          `json:"address,omitempty"`
	UUID    string          `json:"uuid,omitempty"`
	Name    string          `json:"name,omitempty"`
}

func newObjectsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List BlueZ objects below the adapter with their roles",
		Long: `Fetches one GetManagedObjects snapshot and prints every device, GATT service
and GATT characteristic object below the adapter, in path order.

Examples:
  # Table output
  nuimo-probe objects

  # Include objects that are not devices, services or characteristics
  nuimo-probe objects --all

  # JSON output
  nuimo-probe objects --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			logger := configureLogger(cmd, cfg)
			ctx := cmd.Context()

			gw, err := devicefactory.GatewayFactory(ctx, clientOptions(cfg), logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			objects, err := gw.GetManagedObjects(ctx)
			if err != nil {
				return fmt.Errorf("failed to list BlueZ objects: %w", err)
			}

			rows := objectRows(bluez.NewClassifier(gw.Adapter()), objects, all)
			if cfg.OutputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return writeObjectsTable(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include unrecognized objects")
	return cmd
}

// objectRows classifies every object of the snapshot, keeping snapshot order.
func objectRows(classifier *bluez.Classifier, objects *bluez.ManagedObjects, all bool) []objectRow {
	rows := make([]objectRow, 0, objects.Len())
	for pair := objects.Oldest(); pair != nil; pair = pair.Next() {
		c := classifier.Classify(pair.Key)
		if !c.Recognized() && !all {
			continue
		}

		row := objectRow{Path: pair.Key, Role: c.Role.String(), Address: c.Address}
		switch c.Role {
		case bluez.RoleDevice:
			if name, ok := pair.Value.StringProperty(bluez.DeviceInterface, bluez.PropName); ok {
				row.Name = name
			} else if alias, ok := pair.Value.StringProperty(bluez.DeviceInterface, bluez.PropAlias); ok {
				row.Name = alias
			}
		case bluez.RoleService:
			row.UUID, _ = pair.Value.StringProperty(bluez.GattServiceInterface, bluez.PropUUID)
			row.Name = bledb.KnownName(row.UUID)
		case bluez.RoleCharacteristic:
			row.UUID, _ = pair.Value.StringProperty(bluez.GattCharacteristicIface, bluez.PropUUID)
			row.Name = bledb.KnownName(row.UUID)
		}
		rows = append(rows, row)
	}
	return rows
}

func writeObjectsTable(w io.Writer, rows []objectRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No objects found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tPATH\tADDRESS\tUUID\tNAME")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", roleColor(r.Role).Sprint(r.Role), r.Path, r.Address, r.UUID, r.Name)
	}
	return tw.Flush()
}

func roleColor(role string) *color.Color {
	switch role {
	case bluez.RoleDevice.String():
		return color.New(color.FgCyan, color.Bold)
	case bluez.RoleService.String():
		return color.New(color.FgGreen)
	case bluez.RoleCharacteristic.String():
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
