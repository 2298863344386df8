// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"errors"
	"fmt"
	"time"
)

// LaunchError indicates the viewer process could not be started at all.
// The hub and the SAMP layer were never involved.
type LaunchError struct {
	// Executable is the binary the launch attempted to run.
	Executable string

	// Err is the underlying start failure.
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("ds9: starting %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IsLaunchError reports whether err is a viewer start failure.
func IsLaunchError(err error) bool {
	var launchErr *LaunchError
	return errors.As(err, &launchErr)
}

// Handshake phases, named by what the supervisor was still waiting for
// when the deadline passed.
const (
	HandshakePhaseHub    = "hub"
	HandshakePhaseViewer = "viewer"
)

// HandshakeTimeoutError indicates the startup deadline passed before
// the viewer's hub accepted a registration (Phase "hub") or before a
// client with the expected title appeared on the hub (Phase "viewer").
// The viewer process has already been torn down when this is returned.
type HandshakeTimeoutError struct {
	Phase   string
	Title   string
	Timeout time.Duration
}

func (e *HandshakeTimeoutError) Error() string {
	switch e.Phase {
	case HandshakePhaseHub:
		return fmt.Sprintf("ds9: unable to find the SAMP hub (timeout %s)", e.Timeout)
	default:
		return fmt.Sprintf("ds9: unable to find %s on the SAMP hub (timeout %s)", e.Title, e.Timeout)
	}
}

// IsHandshakeTimeout reports whether err is a startup deadline failure.
func IsHandshakeTimeout(err error) bool {
	var timeoutErr *HandshakeTimeoutError
	return errors.As(err, &timeoutErr)
}

// CallError indicates a relayed command failed, either in transport or
// because the viewer reported a non-OK status.
type CallError struct {
	// Op is "set" or "get".
	Op string

	// Command is the command text that failed.
	Command string

	// Err is the underlying failure. For a viewer-reported failure this
	// is a *samp.StatusError.
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("ds9: %s %q: %v", e.Op, e.Command, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// IsCallError reports whether err is a relayed command failure.
func IsCallError(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr)
}
