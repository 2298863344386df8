// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import (
	"context"
	"time"
)

// Hub is the interface for the hub operations supervision code
// performs. *Client is the Standard Profile implementation; tests
// substitute in-memory fakes.
type Hub interface {
	// Connect locates the hub and registers with it. Safe to call
	// repeatedly; an already-connected client returns nil.
	Connect(ctx context.Context) error

	// GetSubscribedClients returns the IDs of clients subscribed to
	// the given mtype.
	GetSubscribedClients(ctx context.Context, mtype string) ([]string, error)

	// GetMetadata returns the metadata clientID declared to the hub.
	GetMetadata(ctx context.Context, clientID string) (Metadata, error)

	// Notify delivers message to clientID without waiting for the
	// recipient to process it, returning the hub's acknowledgment
	// value folded to a string.
	Notify(ctx context.Context, clientID string, message Message) (string, error)

	// CallAndWait delivers message to clientID and waits up to timeout
	// for the recipient's response.
	CallAndWait(ctx context.Context, clientID string, message Message, timeout time.Duration) (*Response, error)

	// Close unregisters from the hub. Idempotent.
	Close() error
}
