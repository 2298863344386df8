// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ds9tools/ds9samp/lib/clock"
	"github.com/ds9tools/ds9samp/samp"
)

// Defaults applied by Launch for zero-valued Options fields. The
// executable and hub directory defaults may be overridden through the
// DS9_EXE and SAMP_HUB_PATH environment variables.
const (
	DefaultTitle      = "ds9SAMP"
	DefaultExecutable = "ds9v8.7"

	// DefaultTimeout bounds the whole handshake, hub connect and viewer
	// discovery together.
	DefaultTimeout = 15 * time.Second

	// DefaultRetryInterval is the pause between handshake attempts.
	DefaultRetryInterval = time.Second

	// DefaultCallTimeout bounds a single relayed command.
	DefaultCallTimeout = 10 * time.Second

	// DefaultPollInterval is the watchdog's liveness period.
	DefaultPollInterval = 5 * time.Second
)

// DefaultArgs returns the extra viewer arguments used when Options.Args
// is nil.
func DefaultArgs() []string {
	return []string{"-geometry", "1024x768", "-colorbar", "no"}
}

// Options configures Launch.
type Options struct {
	// Title is the viewer's window title and its advertised SAMP name.
	// The handshake matches on it, so two live viewers must not share a
	// title. Empty means DefaultTitle.
	Title string

	// Executable is the viewer binary. Empty means the DS9_EXE
	// environment variable, falling back to DefaultExecutable. The
	// viewer must be version 8.7 or later for hub and ping support.
	Executable string

	// Args are extra command-line arguments appended after the
	// supervisor's own flags. Nil means DefaultArgs; an empty non-nil
	// slice means none.
	Args []string

	// HubDir is the directory for hub endpoint lockfiles, created with
	// mode 0700 if missing. Empty means the SAMP_HUB_PATH environment
	// variable, falling back to ~/.samp-ds9.
	HubDir string

	// Timeout bounds the handshake. Zero or negative means
	// DefaultTimeout.
	Timeout time.Duration

	// RetryInterval is the pause between handshake attempts. Zero or
	// negative means DefaultRetryInterval.
	RetryInterval time.Duration

	// CallTimeout bounds each relayed command. Zero or negative means
	// DefaultCallTimeout.
	CallTimeout time.Duration

	// PollInterval is the watchdog's liveness period. Zero means
	// DefaultPollInterval; negative disables the watchdog entirely.
	PollInterval time.Duration

	// ExitCallback, when non-nil, runs exactly once during teardown,
	// whichever path triggers it.
	ExitCallback func()

	// KillHostOnExit sends SIGTERM to the supervisor's own process as
	// the final teardown step. Meant for notebook-style hosts that
	// should die with the viewer.
	KillHostOnExit bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock defaults to the system clock. Tests inject a fake.
	Clock clock.Clock

	// Hub overrides the SAMP client the supervisor builds for itself.
	// Tests inject a scripted hub.
	Hub samp.Hub
}

// withDefaults resolves environment fallbacks and fills zero values.
func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Executable == "" {
		o.Executable = envOr("DS9_EXE", DefaultExecutable)
	}
	if o.Args == nil {
		o.Args = DefaultArgs()
	}
	if o.HubDir == "" {
		o.HubDir = envOr("SAMP_HUB_PATH", "")
	}
	if o.HubDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			o.HubDir = filepath.Join(home, ".samp-ds9")
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	return o
}

func (o Options) validate() error {
	if o.Title == "" {
		return fmt.Errorf("ds9: title must not be empty")
	}
	if strings.ContainsAny(o.Title, "\x00\n\r") {
		return fmt.Errorf("ds9: title contains control characters")
	}
	if o.Executable == "" {
		return fmt.Errorf("ds9: executable must not be empty")
	}
	if o.HubDir == "" {
		return fmt.Errorf("ds9: hub directory could not be determined")
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
