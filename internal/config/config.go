package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPath is returned by ValidateConfigPath.
var ErrInvalidPath = errors.New("invalid config path")

// BlindsConfig holds the curtain settings persisted by provisioning.
type BlindsConfig struct {
	MaxPosS           int  `yaml:"max_pos_s"`           // full travel time in seconds
	InvertZero        bool `yaml:"invert_zero"`         // position 0 is the closed end
	InvertSwitch      bool `yaml:"invert_switch"`       // swap wall switch directions
	DisableManualLock bool `yaml:"disable_manual_lock"` // ignore the lock gesture
}

// PinsConfig maps functions to BCM pin numbers.
type PinsConfig struct {
	RelayOpen   int `yaml:"relay_open"`
	RelayClose  int `yaml:"relay_close"`
	SwitchA     int `yaml:"switch_a"`
	SwitchB     int `yaml:"switch_b"`
	SetupButton int `yaml:"setup_button"` // 0 = not wired
	LED         int `yaml:"led"`          // 0 = not wired
}

// RemoteConfig configures the command channels.
type RemoteConfig struct {
	SerialPort string `yaml:"serial_port"` // e.g. /dev/ttyUSB0; empty = disabled
	BaudRate   int    `yaml:"baud_rate"`
	WebPort    int    `yaml:"web_port"` // 0 = disabled
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	DebugLevel    int    `yaml:"debug_level"`     // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	GPIOBackend   string `yaml:"gpio_backend"`    // mock, rpio or periph
	TickMs        int    `yaml:"tick_ms"`         // control loop period
	SetupTimeoutS int    `yaml:"setup_timeout_s"` // provisioning mode duration
}

// Config aggregates all application configuration.
type Config struct {
	Blinds   BlindsConfig   `yaml:"blinds"`
	Pins     PinsConfig     `yaml:"pins"`
	Remote   RemoteConfig   `yaml:"remote"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files directly inside a
// directory named "configs", without any ".." element.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q contains a parent reference", ErrInvalidPath, path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("%w: %q must have a .yaml extension", ErrInvalidPath, path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("%w: %q must be inside a configs/ directory", ErrInvalidPath, path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Blinds.MaxPosS <= 0 {
		c.Blinds.MaxPosS = 60 // one minute of travel
	}
	if c.Remote.BaudRate <= 0 {
		c.Remote.BaudRate = 115200
	}
	if c.Defaults.GPIOBackend == "" {
		c.Defaults.GPIOBackend = "mock"
	}
	if c.Defaults.TickMs <= 0 {
		c.Defaults.TickMs = 10
	}
	if c.Defaults.SetupTimeoutS <= 0 {
		c.Defaults.SetupTimeoutS = 300
	}
}

// Validate checks ranges and pin assignments.
func (c *Config) Validate() error {
	if c.Blinds.MaxPosS > 86400 {
		return fmt.Errorf("max_pos_s must be <= 86400, got %d", c.Blinds.MaxPosS)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	switch c.Defaults.GPIOBackend {
	case "mock", "rpio", "periph":
	default:
		return fmt.Errorf("gpio_backend must be mock, rpio or periph, got %q", c.Defaults.GPIOBackend)
	}
	if c.Defaults.TickMs > 1000 {
		return fmt.Errorf("tick_ms must be <= 1000, got %d", c.Defaults.TickMs)
	}
	if c.Remote.WebPort < 0 || c.Remote.WebPort > 65535 {
		return fmt.Errorf("web_port must be 0-65535, got %d", c.Remote.WebPort)
	}

	required := []struct {
		name string
		pin  int
	}{
		{"relay_open", c.Pins.RelayOpen},
		{"relay_close", c.Pins.RelayClose},
		{"switch_a", c.Pins.SwitchA},
		{"switch_b", c.Pins.SwitchB},
	}
	seen := make(map[int]string)
	for _, r := range required {
		if r.pin <= 0 {
			return fmt.Errorf("pins.%s is required", r.name)
		}
		if other, ok := seen[r.pin]; ok {
			return fmt.Errorf("pins.%s and pins.%s share pin %d", other, r.name, r.pin)
		}
		seen[r.pin] = r.name
	}
	for name, pin := range map[string]int{"setup_button": c.Pins.SetupButton, "led": c.Pins.LED} {
		if pin <= 0 {
			continue
		}
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("pins.%s and pins.%s share pin %d", other, name, pin)
		}
		seen[pin] = name
	}
	return nil
}

// Save writes cfg to path atomically (temporary file then rename).
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// MaxPos returns the full travel time.
func (c *Config) MaxPos() time.Duration {
	return time.Duration(c.Blinds.MaxPosS) * time.Second
}

// Tick returns the control loop period.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Defaults.TickMs) * time.Millisecond
}

// SetupTimeout returns how long provisioning mode lasts.
func (c *Config) SetupTimeout() time.Duration {
	return time.Duration(c.Defaults.SetupTimeoutS) * time.Second
}
