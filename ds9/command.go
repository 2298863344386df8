// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"context"

	"github.com/ds9tools/ds9samp/samp"
)

// Message types the viewer subscribes to.
const (
	mtypeSet = "ds9.set"
	mtypeGet = "ds9.get"
)

// pingAck is the viewer's application-level reply to samp.app.ping.
// The acknowledgment comes from the viewer itself, not from the SAMP
// transport, so a live hub fronting a dead viewer still fails the
// check.
const pingAck = "OK"

// Set relays one or more commands to the viewer in order, waiting for
// each acknowledgment before sending the next. It stops at the first
// failure, reported as a *CallError naming the command; commands
// already delivered stay delivered.
func (v *Viewer) Set(ctx context.Context, commands ...string) error {
	v.callMu.Lock()
	defer v.callMu.Unlock()
	for _, command := range commands {
		response, err := v.hub.CallAndWait(ctx, v.clientID, samp.Message{
			MType:  mtypeSet,
			Params: map[string]any{"cmd": command},
		}, v.options.CallTimeout)
		if err != nil {
			return &CallError{Op: "set", Command: command, Err: err}
		}
		if err := response.Err(); err != nil {
			return &CallError{Op: "set", Command: command, Err: err}
		}
		v.logger.Debug("set command acknowledged", "cmd", command)
	}
	return nil
}

// Get relays one query to the viewer and returns its structured
// response. The response is returned as-is even when its status is not
// samp.ok; callers that only want the failure can check Response.Err.
func (v *Viewer) Get(ctx context.Context, command string) (*samp.Response, error) {
	v.callMu.Lock()
	defer v.callMu.Unlock()
	response, err := v.hub.CallAndWait(ctx, v.clientID, samp.Message{
		MType:  mtypeGet,
		Params: map[string]any{"cmd": command},
	}, v.options.CallTimeout)
	if err != nil {
		return nil, &CallError{Op: "get", Command: command, Err: err}
	}
	v.logger.Debug("get command answered", "cmd", command, "status", response.Status)
	return response, nil
}

// Alive reports whether the viewer answers an application-level ping.
// Any transport failure, and any reply other than the viewer's "OK"
// acknowledgment, counts as dead.
func (v *Viewer) Alive(ctx context.Context) bool {
	v.callMu.Lock()
	defer v.callMu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, v.options.CallTimeout)
	defer cancel()
	ack, err := v.hub.Notify(ctx, v.clientID, samp.Message{MType: samp.MTypePing})
	if err != nil {
		v.logger.Debug("liveness ping failed", "error", err)
		return false
	}
	return ack == pingAck
}
