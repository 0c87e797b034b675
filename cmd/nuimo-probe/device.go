package main

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/controller"
	"github.com/srg/nuimo-probe/internal/device"
	"github.com/srg/nuimo-probe/internal/devicefactory"
	"github.com/srg/nuimo-probe/internal/gatt"
)

// deviceOp performs one request against a device through the controller.
type deviceOp func(ctx context.Context, c *controller.Controller, path dbus.ObjectPath) error

func connectOp(ctx context.Context, c *controller.Controller, path dbus.ObjectPath) error {
	return c.Connect(ctx, path)
}

func disconnectOp(ctx context.Context, c *controller.Controller, path dbus.ObjectPath) error {
	return c.Disconnect(ctx, path)
}

func pairOp(ctx context.Context, c *controller.Controller, path dbus.ObjectPath) error {
	return c.Pair(ctx, path)
}

func newDeviceCmd(use, short string, op deviceOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <device-address|object-path>",
		Short: short,
		Long: fmt.Sprintf(`%s. The device may be given as a MAC address or as its BlueZ object path.

Examples:
  nuimo-probe %s AA:BB:CC:DD:EE:FF
  nuimo-probe %s /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF`, short, use, use),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
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

			ctrl := controller.New(gw, device.NewRegistry(gw, classifier, logger), gatt.NewLocator(classifier), logger, nil)
			if err := op(ctx, ctrl, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s requested\n", path, use)
			return nil
		},
	}
}
