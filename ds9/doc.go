// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

// Package ds9 supervises a SAOImageDS9 viewer process over a SAMP hub.
//
// [Launch] spawns the viewer in its own session with a private hub
// endpoint path injected through the environment, waits for the
// viewer's built-in hub to come up, discovers the viewer's client ID on
// that hub by its advertised name, and returns a [Viewer]. The Viewer
// relays textual commands ([Viewer.Set], [Viewer.Get]), answers
// liveness queries ([Viewer.Alive]), and optionally runs a watchdog
// that polls the viewer and tears everything down when it stops
// responding.
//
// The supervisor is a hub client, never a hub: the viewer owns the hub
// and writes the endpoint lockfile; the supervisor only names the path
// and removes the file during teardown.
//
// Teardown ([Viewer.Close]) never fails. Each step is independently
// best-effort: failures are logged and the remaining steps still run.
// Closing twice, or racing Close against the watchdog's own teardown,
// is safe. [Viewer.Done] is closed once teardown has completed.
//
// Time and hub access are injectable: [Options.Clock] substitutes a
// fake clock and [Options.Hub] a scripted hub, so the full supervision
// cycle runs in tests without a real viewer.
package ds9
