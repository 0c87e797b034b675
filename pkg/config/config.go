package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel      string        `yaml:"log_level" json:"log_level" default:"info"`
	LogFormat     string        `yaml:"log_format" json:"log_format" default:"text"`
	Adapter       string        `yaml:"adapter" json:"adapter" default:"/org/bluez/hci0"`
	// ReadOffset defaults to 0; offset 8 reads nothing from the single-octet battery level.
	ReadOffset    uint16        `yaml:"read_offset" json:"read_offset"`
	StrictNesting bool          `yaml:"strict_nesting" json:"strict_nesting"`
	CallTimeout   time.Duration `yaml:"call_timeout" json:"call_timeout"`
	EventBuffer   int           `yaml:"event_buffer" json:"event_buffer" default:"64"`
	OutputFormat  string        `yaml:"output_format" json:"output_format" default:"table"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	defaults.SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}
	switch c.OutputFormat {
	case "table", "json":
	default:
		return fmt.Errorf("invalid output format %q (must be table or json)", c.OutputFormat)
	}
	if !dbus.ObjectPath(c.Adapter).IsValid() || !strings.HasPrefix(c.Adapter, "/org/bluez/") {
		return fmt.Errorf("invalid adapter path %q", c.Adapter)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be positive")
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (logrus.Level, error) {
	switch c.LogLevel {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	}
	return logrus.PanicLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
}

// AdapterPath returns the adapter as a D-Bus object path.
func (c *Config) AdapterPath() dbus.ObjectPath {
	return dbus.ObjectPath(c.Adapter)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := c.Level()
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
		return logger
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
