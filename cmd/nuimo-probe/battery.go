package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/controller"
	"github.com/srg/nuimo-probe/internal/device"
	"github.com/srg/nuimo-probe/internal/devicefactory"
	"github.com/srg/nuimo-probe/internal/gatt"
)

func newBatteryCmd() *cobra.Command {
	var readOffset uint16

	cmd := &cobra.Command{
		Use:   "battery <device-address|object-path>",
		Short: "Read the battery level of a connected device once",
		Long: `Looks up the Battery Level characteristic (0x2A19) inside the battery service
(0x180F) of the given device and reads it. The device must be connected and its
services resolved.

Examples:
  nuimo-probe battery AA:BB:CC:DD:EE:FF
  nuimo-probe battery /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("read-offset") {
				cfg.ReadOffset = readOffset
			}
			classifier := bluez.NewClassifier(cfg.AdapterPath())
			path, err := bluez.ResolveDevice(classifier, args[0])
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

			locator := gatt.NewLocator(classifier)
			char, ok := locator.FindDeviceBatteryLevel(objects, path)
			if !ok {
				return fmt.Errorf("%w on %s", ErrBatteryNotFound, path)
			}

			ctrl := controller.New(gw, device.NewRegistry(gw, classifier, logger), locator, logger,
				&controller.Options{ReadOffset: cfg.ReadOffset, EventBuffer: 1})
			readErr := ctrl.ReadBattery(ctx, char)
			if bluez.KindOf(readErr) != "" {
				return readErr
			}

			select {
			case r := <-ctrl.Events():
				if err := writeReading(cmd.OutOrStdout(), r, cfg.OutputFormat); err != nil {
					return err
				}
			default:
			}
			return readErr
		},
	}

	cmd.Flags().Uint16Var(&readOffset, "read-offset", 0, "Offset passed to ReadValue")
	return cmd
}
