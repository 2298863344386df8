// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import "context"

// watch polls the viewer's liveness once per PollInterval until it is
// told to stop or a ping fails. Leaving the loop for either reason runs
// teardown, so a viewer that dies behind our back is cleaned up without
// anyone calling Close. The watchdog never waits for its own goroutine,
// which is why it calls teardown in self mode.
func (v *Viewer) watch() {
	defer close(v.watcherDone)
	v.logger.Debug("watchdog started", "period", v.options.PollInterval)

	for {
		select {
		case <-v.exit:
			v.logger.Debug("watchdog stopping on shutdown signal")
			v.teardown(false)
			return
		case <-v.clock.After(v.options.PollInterval):
		}
		if !v.Alive(context.Background()) {
			v.logger.Warn("viewer stopped responding, shutting down",
				"title", v.options.Title)
			v.teardown(false)
			return
		}
	}
}
