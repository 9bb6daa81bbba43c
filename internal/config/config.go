package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/ledctl/internal/ble"
	"github.com/chaz8081/ledctl/internal/ble/protocol"
)

// Config holds all application configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Timings TimingsConfig `yaml:"timings"`
	Connect ConnectConfig `yaml:"connect"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// DeviceConfig identifies the LED controller.
type DeviceConfig struct {
	Address  string `yaml:"address"`  // e.g. "BE:32:03:82:3C:B1"
	Protocol string `yaml:"protocol"` // "a" or "b"
	Backend  string `yaml:"backend"`  // "bluez" or "tinygo"
}

// TimingsConfig holds the fixed waits between BLE steps.
type TimingsConfig struct {
	ScanWindow       time.Duration `yaml:"scan_window"` // 0 = protocol default
	DisconnectSettle time.Duration `yaml:"disconnect_settle"`
	ConnectSettle    time.Duration `yaml:"connect_settle"`
	DiscoverySettle  time.Duration `yaml:"discovery_settle"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	CommandInterval  time.Duration `yaml:"command_interval"`
}

// ConnectConfig holds the retry policy.
type ConnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     string        `yaml:"backoff"` // "fixed" or "exponential"
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ledctl")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with the timings the devices tolerate.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Protocol: "a",
			Backend:  ble.BackendBlueZ,
		},
		Timings: TimingsConfig{
			DisconnectSettle: 1 * time.Second,
			ConnectSettle:    2 * time.Second,
			DiscoverySettle:  1 * time.Second,
			RetryBackoff:     2 * time.Second,
			CommandInterval:  500 * time.Millisecond,
		},
		Connect: ConnectConfig{
			MaxAttempts: 3,
			Backoff:     "fixed",
			MaxBackoff:  10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "stdout",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in log.output is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Log.Output = expandTilde(cfg.Log.Output)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the written path, or "" if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	content := append([]byte(defaultHeader), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

const defaultHeader = `# ledctl configuration
# device.protocol: "a" (ELK-BLEDOM style, FFE9/FFF3) or "b" (FFF3 with write permission)
# device.backend: "bluez" (Linux, D-Bus) or "tinygo"
# timings.scan_window: 0 uses the protocol default (a: 5s, b: 3s)

`

// Validate checks the config for invalid values. An empty device address is
// allowed so it can be supplied on the command line.
func (c *Config) Validate() error {
	if c.Device.Address != "" {
		if _, err := ble.ParseAddress(c.Device.Address); err != nil {
			return fmt.Errorf("device.address: %w", err)
		}
	}

	if _, err := protocol.ParseProfile(c.Device.Protocol); err != nil {
		return fmt.Errorf("device.protocol must be \"a\" or \"b\", got %q", c.Device.Protocol)
	}

	switch c.Device.Backend {
	case ble.BackendBlueZ, ble.BackendTinyGo:
	default:
		return fmt.Errorf("device.backend must be %q or %q, got %q", ble.BackendBlueZ, ble.BackendTinyGo, c.Device.Backend)
	}

	timings := map[string]time.Duration{
		"timings.scan_window":       c.Timings.ScanWindow,
		"timings.disconnect_settle": c.Timings.DisconnectSettle,
		"timings.connect_settle":    c.Timings.ConnectSettle,
		"timings.discovery_settle":  c.Timings.DiscoverySettle,
		"timings.retry_backoff":     c.Timings.RetryBackoff,
		"timings.command_interval":  c.Timings.CommandInterval,
	}
	for key, d := range timings {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0, got %v", key, d)
		}
	}

	if c.Connect.MaxAttempts < 1 {
		return fmt.Errorf("connect.max_attempts must be >= 1")
	}

	switch c.Connect.Backoff {
	case "fixed":
	case "exponential":
		if c.Connect.MaxBackoff < c.Timings.RetryBackoff {
			return fmt.Errorf("connect.max_backoff must be >= timings.retry_backoff")
		}
	default:
		return fmt.Errorf("connect.backoff must be \"fixed\" or \"exponential\", got %q", c.Connect.Backoff)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}

	switch c.Tracing.Exporter {
	case "stdout", "noop", "":
	default:
		return fmt.Errorf("tracing.exporter must be \"stdout\" or \"noop\", got %q", c.Tracing.Exporter)
	}

	return nil
}

// Profile returns the configured protocol profile.
func (c *Config) Profile() (protocol.Profile, error) {
	return protocol.ParseProfile(c.Device.Protocol)
}

// Address returns the configured device address.
func (c *Config) Address() (ble.Address, error) {
	if c.Device.Address == "" {
		return ble.Address{}, fmt.Errorf("device.address is not set")
	}
	return ble.ParseAddress(c.Device.Address)
}

// Options maps the timing and retry settings onto ble.Options for profile.
func (c *Config) Options(profile protocol.Profile, observer ble.Observer) ble.Options {
	opts := ble.DefaultOptions(profile)
	if c.Timings.ScanWindow > 0 {
		opts.ScanWindow = c.Timings.ScanWindow
	}
	opts.DisconnectSettle = c.Timings.DisconnectSettle
	opts.ConnectSettle = c.Timings.ConnectSettle
	opts.DiscoverySettle = c.Timings.DiscoverySettle
	opts.CommandInterval = c.Timings.CommandInterval
	opts.MaxAttempts = c.Connect.MaxAttempts
	if c.Connect.Backoff == "exponential" {
		opts.Backoff = ble.ExponentialBackoff(c.Timings.RetryBackoff, c.Connect.MaxBackoff)
	} else {
		opts.Backoff = ble.FixedBackoff(c.Timings.RetryBackoff)
	}
	opts.Observer = observer
	return opts
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
