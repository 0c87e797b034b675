package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/pkg/config"
)

// loadConfig reads the --config file when given and applies flag overrides.
// Flags always take precedence over file values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
	}
	if f := cmd.Flags().Lookup("adapter"); f != nil && f.Changed {
		cfg.Adapter = f.Value.String()
	}
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		cfg.OutputFormat = f.Value.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// configureLogger creates a logger for cfg that writes to the command's error stream.
func configureLogger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	return logger
}

// clientOptions maps the configuration onto the D-Bus client options.
func clientOptions(cfg *config.Config) *bluez.ClientOptions {
	return &bluez.ClientOptions{
		Adapter:     cfg.AdapterPath(),
		CallTimeout: cfg.CallTimeout,
		EventBuffer: cfg.EventBuffer,
	}
}
