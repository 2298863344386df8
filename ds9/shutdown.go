// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"
)

// watcherJoinTimeout bounds how long teardown waits for the watchdog
// goroutine to notice the shutdown signal.
const watcherJoinTimeout = time.Second

// teardown runs the shutdown sequence. joinWatcher is true on the
// Close and failed-launch paths and false when the watchdog itself is
// the caller, since the watchdog must not wait on its own goroutine.
//
// The destructive steps run under teardownOnce: a second caller blocks
// until the first finishes, then returns with everything already done.
// Each step is best-effort; a failed step is logged and the rest still
// run.
func (v *Viewer) teardown(joinWatcher bool) {
	v.exitOnce.Do(func() { close(v.exit) })

	if joinWatcher && v.watcherDone != nil {
		select {
		case <-v.watcherDone:
		case <-v.clock.After(watcherJoinTimeout):
			v.logger.Warn("watchdog did not stop in time")
		}
	}

	v.teardownOnce.Do(func() {
		defer close(v.done)
		v.logger.Info("shutting down viewer", "title", v.options.Title)
		v.exitViewer()
		v.closeHub()
		v.killViewer()
		v.removeHubFile()
		v.runExitCallback()
		v.killHost()
	})
}

// exitViewer asks the viewer to quit on its own terms before we reach
// for signals. Skipped when the handshake never found the viewer.
func (v *Viewer) exitViewer() {
	if v.clientID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), v.options.CallTimeout)
	defer cancel()
	if err := v.Set(ctx, "exit"); err != nil {
		v.logger.Warn("teardown: exit command failed", "error", err)
	}
}

// closeHub drops our own hub registration. Once the viewer quits it
// takes the hub down with it, so failure here usually just means the
// hub beat us to it.
func (v *Viewer) closeHub() {
	if err := v.hub.Close(); err != nil {
		v.logger.Warn("teardown: hub close failed", "error", err)
	}
}

// killViewer force-kills the viewer's whole process group. The viewer
// leads its own session, so its PID doubles as the group ID and one
// signal reaches anything it spawned. ESRCH means everything already
// exited.
func (v *Viewer) killViewer() {
	process := v.command.Process
	if process == nil {
		return
	}
	if err := syscall.Kill(-process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		v.logger.Warn("teardown: killing viewer process group failed",
			"pid", process.Pid, "error", err)
	}
}

// removeHubFile deletes the endpoint lockfile. A missing file is the
// common case when the hub never started or cleaned up after itself.
func (v *Viewer) removeHubFile() {
	if err := os.Remove(v.hubFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		v.logger.Warn("teardown: removing hub file failed",
			"path", v.hubFile, "error", err)
	}
}

// runExitCallback invokes the configured callback. A panic inside the
// callback must not abort the remaining steps.
func (v *Viewer) runExitCallback() {
	if v.options.ExitCallback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("teardown: exit callback panicked", "panic", r)
		}
	}()
	v.options.ExitCallback()
}

// killHost signals the supervisor's own process when configured to die
// with the viewer.
func (v *Viewer) killHost() {
	if !v.options.KillHostOnExit {
		return
	}
	v.logger.Info("signaling own process to exit")
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		v.logger.Warn("teardown: signaling own process failed", "error", err)
	}
}
