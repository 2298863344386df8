// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"context"
	"fmt"

	"github.com/ds9tools/ds9samp/samp"
)

// handshake waits for the viewer's hub to accept a registration, then
// for the viewer itself to appear on that hub. Both phases share one
// deadline; the deadline is only checked after a failed attempt, so a
// viewer that turns up just in time is never rejected.
func (v *Viewer) handshake(ctx context.Context) error {
	deadline := v.clock.Now().Add(v.options.Timeout)

	// Phase one: the hub. The viewer starts it and writes the endpoint
	// lockfile when ready, so a missing lockfile or an unreachable
	// endpoint just means "not yet" and is retried. Any other failure
	// (malformed lockfile, rejected registration) will not heal on its
	// own and fails the launch immediately.
	for {
		err := v.hub.Connect(ctx)
		if err == nil {
			v.logger.Debug("registered with hub", "hub_file", v.hubFile)
			break
		}
		if !samp.IsHubUnavailable(err) {
			return fmt.Errorf("ds9: connecting to hub: %w", err)
		}
		if v.clock.Now().After(deadline) {
			return &HandshakeTimeoutError{
				Phase:   HandshakePhaseHub,
				Title:   v.options.Title,
				Timeout: v.options.Timeout,
			}
		}
		v.logger.Debug("hub not up yet, retrying", "error", err)
		if err := v.waitRetry(ctx); err != nil {
			return err
		}
	}

	// Phase two: the viewer, matched by its advertised name among the
	// clients subscribed to ds9.set. Title matching is exact, so a
	// stale viewer from an earlier run with a different title is never
	// picked up.
	for {
		clientID, err := v.findViewer(ctx)
		if err != nil {
			return fmt.Errorf("ds9: discovering viewer: %w", err)
		}
		if clientID != "" {
			v.clientID = clientID
			return nil
		}
		if v.clock.Now().After(deadline) {
			return &HandshakeTimeoutError{
				Phase:   HandshakePhaseViewer,
				Title:   v.options.Title,
				Timeout: v.options.Timeout,
			}
		}
		v.logger.Debug("viewer not on hub yet, retrying", "title", v.options.Title)
		if err := v.waitRetry(ctx); err != nil {
			return err
		}
	}
}

// findViewer returns the client ID advertising our title, or "" when no
// such client is registered yet.
func (v *Viewer) findViewer(ctx context.Context) (string, error) {
	ids, err := v.hub.GetSubscribedClients(ctx, mtypeSet)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		metadata, err := v.hub.GetMetadata(ctx, id)
		if err != nil {
			return "", err
		}
		if metadata.Name() == v.options.Title {
			return id, nil
		}
	}
	return "", nil
}

// waitRetry pauses one retry interval, honoring ctx cancellation.
func (v *Viewer) waitRetry(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("ds9: handshake interrupted: %w", ctx.Err())
	case <-v.clock.After(v.options.RetryInterval):
		return nil
	}
}
