// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import (
	"errors"
	"fmt"
)

// Fault represents an XML-RPC fault returned by the hub. Callers can
// use errors.As to extract the structured information:
//
//	var fault *samp.Fault
//	if errors.As(err, &fault) {
//	    if fault.Code == ... { ... }
//	}
type Fault struct {
	// Code is the XML-RPC faultCode.
	Code int
	// Message is the human-readable faultString from the hub.
	Message string
}

func (e *Fault) Error() string {
	return fmt.Sprintf("samp: hub fault %d: %s", e.Code, e.Message)
}

// IsFault checks whether err is a *Fault.
func IsFault(err error) bool {
	var fault *Fault
	return errors.As(err, &fault)
}

// HubUnavailableError indicates the hub endpoint could not be reached
// at all: the lockfile does not exist yet, or nothing answered at the
// XML-RPC URL it records. A freshly launched hub passes through this
// state while it starts up, so this is the one error class callers
// retry; every other connection failure is permanent.
type HubUnavailableError struct {
	// Locator is the lockfile path or hub locator that was tried.
	Locator string
	// Err is the underlying cause (file-not-exist, dial failure).
	Err error
}

func (e *HubUnavailableError) Error() string {
	return fmt.Sprintf("samp: hub not available at %s: %v", e.Locator, e.Err)
}

func (e *HubUnavailableError) Unwrap() error { return e.Err }

// IsHubUnavailable checks whether err is a *HubUnavailableError.
func IsHubUnavailable(err error) bool {
	var unavailable *HubUnavailableError
	return errors.As(err, &unavailable)
}

// StatusError is a synchronous call that completed at the transport
// level but whose SAMP status was not samp.ok.
type StatusError struct {
	// Status is the samp.status value (samp.warning or samp.error).
	Status string
	// ErrorText is the samp.errortxt entry of the error map, if the
	// responder provided one.
	ErrorText string
}

func (e *StatusError) Error() string {
	if e.ErrorText == "" {
		return fmt.Sprintf("samp: call failed with status %q", e.Status)
	}
	return fmt.Sprintf("samp: call failed with status %q: %s", e.Status, e.ErrorText)
}
