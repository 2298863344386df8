// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/ds9tools/ds9samp/lib/clock"
	"github.com/ds9tools/ds9samp/samp"
)

// Viewer supervises one running viewer process and relays commands to
// it over the hub. Viewers are created by Launch and shut down by
// Close; all methods are safe for concurrent use.
type Viewer struct {
	options Options
	logger  *slog.Logger
	clock   clock.Clock
	hub     samp.Hub

	hubFile string
	command *exec.Cmd

	// clientID is the viewer's identity on the hub. Written once by the
	// handshake before any other goroutine exists, then read-only.
	clientID string

	// callMu serializes hub calls so relayed commands cannot
	// interleave with each other or with liveness pings.
	callMu sync.Mutex

	// exit tells the watchdog to stop. Closed exactly once.
	exit     chan struct{}
	exitOnce sync.Once

	// watcherDone closes when the watchdog goroutine has returned. Nil
	// when the watchdog is disabled.
	watcherDone chan struct{}

	// teardownOnce guards the destructive shutdown steps. done closes
	// when they have run.
	teardownOnce sync.Once
	done         chan struct{}
}

// Launch starts a viewer process and blocks until it is reachable over
// its hub, or until the handshake deadline passes. ctx bounds the
// construction only; cancelling it after Launch returns has no effect.
//
// On any failure the partially built instance is fully torn down
// (including the child process, if it started) before the error is
// returned.
func Launch(ctx context.Context, options Options) (*Viewer, error) {
	options = options.withDefaults()
	if err := options.validate(); err != nil {
		return nil, err
	}

	if err := ensureHubDir(options.HubDir); err != nil {
		return nil, err
	}
	hubFile := filepath.Join(options.HubDir,
		hubFileName(options.Title, options.Clock.Now(), os.Getpid()))

	hub := options.Hub
	if hub == nil {
		client, err := samp.NewClient(samp.ClientConfig{
			Name:    options.Title + " controller",
			Locator: hubFile,
			Logger:  options.Logger,
		})
		if err != nil {
			return nil, err
		}
		hub = client
	}

	v := &Viewer{
		options: options,
		logger:  options.Logger,
		clock:   options.Clock,
		hub:     hub,
		hubFile: hubFile,
		exit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	v.command = launchCommand(options, hubFile)

	if err := v.start(); err != nil {
		v.teardown(true)
		return nil, err
	}
	if err := v.handshake(ctx); err != nil {
		v.logger.Warn("handshake failed, tearing down", "error", err)
		v.teardown(true)
		return nil, err
	}

	if options.PollInterval > 0 {
		v.watcherDone = make(chan struct{})
		go v.watch()
	}

	v.logger.Info("viewer ready",
		"title", options.Title,
		"client_id", v.clientID,
		"pid", v.command.Process.Pid)
	return v, nil
}

// ClientID returns the viewer's identity on the hub.
func (v *Viewer) ClientID() string { return v.clientID }

// HubFile returns the path of the hub endpoint lockfile.
func (v *Viewer) HubFile() string { return v.hubFile }

// PID returns the viewer's process ID, or zero if the process never
// started.
func (v *Viewer) PID() int {
	if v.command.Process == nil {
		return 0
	}
	return v.command.Process.Pid
}

// Done returns a channel that closes once teardown has completed,
// whether Close triggered it or the watchdog did.
func (v *Viewer) Done() <-chan struct{} { return v.done }

// Close shuts the viewer down: it stops the watchdog, asks the viewer
// to exit, force-kills whatever remains, and removes the hub endpoint
// file. Every step is best-effort and failures are only logged, so
// Close never fails and may be called any number of times, including
// concurrently with the watchdog's own teardown.
func (v *Viewer) Close() {
	v.teardown(true)
}
