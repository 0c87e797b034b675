package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/controller"
	"github.com/srg/nuimo-probe/internal/device"
	"github.com/srg/nuimo-probe/internal/devicefactory"
	"github.com/srg/nuimo-probe/internal/gatt"
	"github.com/srg/nuimo-probe/internal/groutine"
	"github.com/srg/nuimo-probe/pkg/config"
	"github.com/srg/nuimo-probe/scanner"
)

func newRunCmd() *cobra.Command {
	var (
		strict     bool
		readOffset uint16
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover Nuimo devices, connect to them and read their battery",
		Long: `Starts LE discovery filtered to the Nuimo service fingerprints and reacts to
BlueZ notifications until interrupted with Ctrl+C:

- every device object that shows up is registered and a connect is requested
- every Connected property change updates the connected set and re-requests a connect
- once a battery service is exported, characteristic objects are read and the
  battery level is printed

Examples:
  # Probe with info logging on the default adapter
  nuimo-probe run --log-level info

  # Use the second adapter and only read characteristics nested in the battery service
  nuimo-probe run --adapter /org/bluez/hci1 --strict

  # Print readings as JSON lines
  nuimo-probe run --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				cfg.StrictNesting = strict
			}
			if cmd.Flags().Changed("read-offset") {
				cfg.ReadOffset = readOffset
			}

			// All arguments validated - don't show usage on runtime errors
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Only read characteristics nested under the battery service")
	cmd.Flags().Uint16Var(&readOffset, "read-offset", 0, "Offset passed to ReadValue for battery reads")

	return cmd
}

// runSession wires the gateway, registry, locator and controller together and
// dispatches notifications until ctx is done or the signal stream ends.
func runSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := configureLogger(cmd, cfg)

	gw, err := devicefactory.GatewayFactory(ctx, clientOptions(cfg), logger)
	if err != nil {
		return err
	}
	defer gw.Close()

	classifier := bluez.NewClassifier(gw.Adapter())
	var locatorOpts []gatt.Option
	if cfg.StrictNesting {
		locatorOpts = append(locatorOpts, gatt.WithStrictNesting())
	}
	ctrl := controller.New(
		gw,
		device.NewRegistry(gw, classifier, logger),
		gatt.NewLocator(classifier, locatorOpts...),
		logger,
		&controller.Options{ReadOffset: cfg.ReadOffset, EventBuffer: cfg.EventBuffer},
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications, err := gw.Subscribe(runCtx, ctrl.MatchRules())
	if err != nil {
		return fmt.Errorf("failed to subscribe to BlueZ signals: %w", err)
	}

	s := scanner.NewScanner(gw, nil, logger)
	// failures are logged by the scanner; the session keeps listening regardless
	_ = s.StartFilteredDiscovery(runCtx)
	defer func() { _ = s.StopDiscovery(context.Background()) }()

	out := cmd.OutOrStdout()
	printed := groutine.Go(runCtx, "battery-printer", func(ctx context.Context) {
		printReadings(ctx, out, ctrl.Events(), cfg.OutputFormat)
	})

	err = ctrl.Run(runCtx, notifications)
	cancel()
	<-printed

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.WithField("devices", len(ctrl.Registry().Known())).Info("Session stopped")
		return nil
	}
	return err
}

// printReadings writes each battery reading to w until ctx is done. Readings
// already buffered when ctx ends are still written.
func printReadings(ctx context.Context, w io.Writer, readings <-chan controller.BatteryReading, format string) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case r, ok := <-readings:
					if !ok {
						return
					}
					_ = writeReading(w, r, format)
				default:
					return
				}
			}
		case r, ok := <-readings:
			if !ok {
				return
			}
			_ = writeReading(w, r, format)
		}
	}
}

func writeReading(w io.Writer, r controller.BatteryReading, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(r)
	}

	_, err := fmt.Fprintf(w, "%s  battery %s  (%s)\n", r.Address, levelColor(r.Level).Sprintf("%3d%%", r.Level), r.Characteristic)
	return err
}

func levelColor(level uint8) *color.Color {
	switch {
	case level >= 50:
		return color.New(color.FgGreen)
	case level >= 20:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
