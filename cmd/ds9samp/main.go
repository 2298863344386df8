// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

// ds9samp launches a SAOImageDS9 viewer, connects to its SAMP hub, and
// supervises it until the viewer exits or the supervisor is told to
// stop.
//
// Modes of operation:
//
// One-shot: commands given on the command line are applied in order,
// then the viewer is torn down and the process exits. Arguments
// starting with "get " are queries and print the viewer's answer.
//
// Console (--console, or a terminal with no commands): an interactive
// console for sending commands to the running viewer. With --console,
// command-line commands are applied first.
//
// Resident (no commands, no terminal): hold until a signal arrives or
// the viewer goes away. The built-in watchdog tears everything down
// if the viewer stops answering pings.
//
// Doctor ("ds9samp doctor"): check the local environment (viewer
// binary, version, hub directory, display) without launching anything.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ds9tools/ds9samp/ds9"
	"github.com/ds9tools/ds9samp/lib/config"
	"github.com/ds9tools/ds9samp/lib/version"
	"github.com/ds9tools/ds9samp/samp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		console    bool
		debug      bool
		flags      viewerFlags
	)

	flagSet := pflag.NewFlagSet("ds9samp", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to ds9samp.yaml (default: $DS9SAMP_CONFIG if set)")
	flags.register(flagSet)
	flagSet.BoolVar(&console, "console", false, "interactive command console after launch")
	flagSet.BoolVar(&debug, "debug", false, "debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing so it works regardless of
	// other arguments.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("ds9samp %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	flags.apply(cfg, flagSet)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.LogLevel()
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	args := flagSet.Args()
	if len(args) > 0 && args[0] == "doctor" {
		if len(args) > 1 {
			return fmt.Errorf("doctor takes no arguments, got %q", args[1])
		}
		return runDoctor(cfg)
	}

	options := cfg.ToOptions()
	options.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	viewer, err := ds9.Launch(ctx, options)
	if err != nil {
		if ds9.IsLaunchError(err) || ds9.IsHandshakeTimeout(err) {
			return fmt.Errorf("%w (run \"ds9samp doctor\" to check the environment)", err)
		}
		return err
	}
	defer viewer.Close()

	// Positional arguments are commands, applied in order.
	for _, command := range args {
		if query, isQuery := strings.CutPrefix(command, "get "); isQuery {
			response, err := viewer.Get(ctx, strings.TrimSpace(query))
			if err != nil {
				return err
			}
			if err := response.Err(); err != nil {
				return fmt.Errorf("get %q: %w", query, err)
			}
			fmt.Println(formatResult(response))
			continue
		}
		if err := viewer.Set(ctx, command); err != nil {
			return err
		}
	}

	if console || (len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))) {
		return runConsole(ctx, viewer, cfg.Viewer.Title)
	}
	if len(args) > 0 {
		// One-shot: the deferred Close tears the viewer down.
		return nil
	}

	logger.Info("viewer running, send SIGINT or SIGTERM to stop",
		"title", cfg.Viewer.Title, "pid", viewer.PID())
	select {
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	case <-viewer.Done():
		logger.Info("viewer is gone, exiting")
	}
	return nil
}

// viewerFlags carries the flag-bound values that can override the
// configuration file. An untouched flag never clobbers a file value
// with its zero default; apply copies only flags the user set.
type viewerFlags struct {
	title         string
	executable    string
	hubDir        string
	args          []string
	timeout       time.Duration
	retryInterval time.Duration
	callTimeout   time.Duration
	pollInterval  time.Duration
	noWatchdog    bool
	killHost      bool
}

func (f *viewerFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.title, "title", "", "viewer window title and SAMP name")
	flagSet.StringVar(&f.executable, "exe", "", "viewer binary (default: $DS9_EXE, then "+ds9.DefaultExecutable+")")
	flagSet.StringVar(&f.hubDir, "hub-dir", "", "directory for hub endpoint files (default: $SAMP_HUB_PATH, then ~/.samp-ds9)")
	flagSet.StringArrayVar(&f.args, "arg", nil, "extra viewer argument (repeatable)")
	flagSet.DurationVar(&f.timeout, "timeout", 0, "startup handshake deadline")
	flagSet.DurationVar(&f.retryInterval, "retry-interval", 0, "pause between handshake attempts")
	flagSet.DurationVar(&f.callTimeout, "call-timeout", 0, "per-command deadline")
	flagSet.DurationVar(&f.pollInterval, "poll-interval", 0, "watchdog liveness period")
	flagSet.BoolVar(&f.noWatchdog, "no-watchdog", false, "disable the liveness watchdog")
	flagSet.BoolVar(&f.killHost, "kill-host-on-exit", false, "SIGTERM this process once the viewer is gone")
}

// apply copies the explicitly set flags over the loaded configuration.
func (f *viewerFlags) apply(cfg *config.Config, flagSet *pflag.FlagSet) {
	if flagSet.Changed("title") {
		cfg.Viewer.Title = f.title
	}
	if flagSet.Changed("exe") {
		cfg.Viewer.Executable = f.executable
	}
	if flagSet.Changed("hub-dir") {
		cfg.Viewer.HubDir = f.hubDir
	}
	if flagSet.Changed("arg") {
		cfg.Viewer.Args = f.args
	}
	if flagSet.Changed("timeout") {
		cfg.Viewer.Timeout = f.timeout.String()
	}
	if flagSet.Changed("retry-interval") {
		cfg.Viewer.RetryInterval = f.retryInterval.String()
	}
	if flagSet.Changed("call-timeout") {
		cfg.Viewer.CallTimeout = f.callTimeout.String()
	}
	if flagSet.Changed("poll-interval") {
		cfg.Viewer.PollInterval = f.pollInterval.String()
	}
	if f.noWatchdog {
		cfg.Viewer.PollInterval = config.PollOff
	}
	if f.killHost {
		cfg.Viewer.KillHostOnExit = true
	}
}

// loadConfig resolves the configuration source: an explicit --config
// path wins, then DS9SAMP_CONFIG, and with neither the built-in
// defaults apply so the command works with no setup at all.
func loadConfig(configPath string) (*config.Config, error) {
	switch {
	case configPath != "":
		return config.LoadFile(configPath)
	case os.Getenv("DS9SAMP_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// formatResult renders a get response for the terminal. The common
// single-entry {"value": ...} result prints as a bare value; anything
// richer prints one key per line.
func formatResult(response *samp.Response) string {
	if value, ok := response.Result["value"].(string); ok && len(response.Result) == 1 {
		return value
	}
	keys := make([]string, 0, len(response.Result))
	for key := range response.Result {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s = %v", key, response.Result[key])
	}
	return b.String()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ds9samp launches and drives a SAOImageDS9 viewer over SAMP.

The viewer is started with its own private SAMP hub; ds9samp connects
to that hub, relays commands, and cleans everything up when either
side goes away. Requires ds9 version 8.7 or later.

Usage:
  ds9samp [flags] [command ...]
  ds9samp doctor

Commands given on the command line are applied in order and then the
viewer is torn down again. A command starting with "get " is a query
and prints the viewer's answer; everything else is sent as-is. With
no commands, a terminal gets the interactive console and anything
else stays resident until signaled.

Examples:
  # Launch and drive the viewer from an interactive console
  ds9samp

  # Load an image, switch the colormap, tear down again
  ds9samp "fits m31.fits" "cmap viridis" "scale log"

  # Print the viewer's version and exit
  ds9samp "get version"

  # Apply commands, then keep the console open
  ds9samp --console "fits m31.fits"

  # Check the environment without launching
  ds9samp doctor

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
