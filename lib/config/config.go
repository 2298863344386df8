// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ds9tools/ds9samp/ds9"
)

// PollOff disables the liveness watchdog when used as the
// poll_interval value.
const PollOff = "off"

// Config is the ds9samp configuration.
type Config struct {
	// Viewer configures how the viewer is launched and supervised.
	Viewer ViewerConfig `yaml:"viewer"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// ViewerConfig mirrors the viewer launch options. Durations are Go
// duration strings ("15s", "1m30s"); empty fields keep the built-in
// defaults, including the DS9_EXE and SAMP_HUB_PATH environment
// fallbacks for executable and hub_dir.
type ViewerConfig struct {
	// Title is the viewer window title and SAMP name.
	Title string `yaml:"title"`

	// Executable is the viewer binary to launch.
	Executable string `yaml:"executable"`

	// Args are extra viewer arguments. Omitting the key keeps the
	// built-in defaults; an explicit empty list means none.
	Args []string `yaml:"args"`

	// HubDir is the directory for hub endpoint files.
	HubDir string `yaml:"hub_dir"`

	// Timeout bounds the startup handshake.
	Timeout string `yaml:"timeout"`

	// RetryInterval is the pause between handshake attempts.
	RetryInterval string `yaml:"retry_interval"`

	// CallTimeout bounds each relayed command.
	CallTimeout string `yaml:"call_timeout"`

	// PollInterval is the watchdog period, or "off" to disable the
	// watchdog.
	PollInterval string `yaml:"poll_interval"`

	// KillHostOnExit signals the ds9samp process itself once the
	// viewer is gone.
	KillHostOnExit bool `yaml:"kill_host_on_exit"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns a Config matching the built-in viewer defaults.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Title:         ds9.DefaultTitle,
			Timeout:       ds9.DefaultTimeout.String(),
			RetryInterval: ds9.DefaultRetryInterval.String(),
			CallTimeout:   ds9.DefaultCallTimeout.String(),
			PollInterval:  ds9.DefaultPollInterval.String(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by the DS9SAMP_CONFIG
// environment variable. An unset variable is an error; there is no
// config file discovery.
func Load() (*Config, error) {
	configPath := os.Getenv("DS9SAMP_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DS9SAMP_CONFIG environment variable not set; " +
			"set it to the path of your ds9samp.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults. Path fields are variable-expanded after loading.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Viewer.Executable = expandVars(c.Viewer.Executable, vars)
	c.Viewer.HubDir = expandVars(c.Viewer.HubDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	for _, field := range []struct {
		name  string
		value string
	}{
		{"viewer.timeout", c.Viewer.Timeout},
		{"viewer.retry_interval", c.Viewer.RetryInterval},
		{"viewer.call_timeout", c.Viewer.CallTimeout},
	} {
		if field.value == "" {
			continue
		}
		if d, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field.name, field.value))
		}
	}

	if v := c.Viewer.PollInterval; v != "" && v != PollOff {
		if d, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("viewer.poll_interval: %w", err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("viewer.poll_interval must be positive or %q, got %s", PollOff, v))
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ToOptions converts the configuration to viewer launch options.
// Validate must have accepted the config first; unparseable durations
// fall back to the built-in defaults here.
func (c *Config) ToOptions() ds9.Options {
	options := ds9.Options{
		Title:          c.Viewer.Title,
		Executable:     c.Viewer.Executable,
		Args:           c.Viewer.Args,
		HubDir:         c.Viewer.HubDir,
		Timeout:        parseDuration(c.Viewer.Timeout),
		RetryInterval:  parseDuration(c.Viewer.RetryInterval),
		CallTimeout:    parseDuration(c.Viewer.CallTimeout),
		KillHostOnExit: c.Viewer.KillHostOnExit,
	}
	if c.Viewer.PollInterval == PollOff {
		options.PollInterval = -1
	} else {
		options.PollInterval = parseDuration(c.Viewer.PollInterval)
	}
	return options
}

// parseDuration returns zero for empty or invalid input, deferring to
// the option defaults.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
