// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import "fmt"

// SAMP status codes carried in the samp.status field of a call response.
// The error status "samp.error" has no constant here: that name belongs
// to the StatusError error type.
const (
	StatusOK      = "samp.ok"
	StatusWarning = "samp.warning"
)

// MTypePing is the application-level ping message every SAMP client is
// expected to answer.
const MTypePing = "samp.app.ping"

// Metadata is the key/value metadata a client declares to the hub.
// Values follow the SAMP type system (string, list, map); the standard
// keys (samp.name, samp.description.text, ...) are plain strings.
type Metadata map[string]any

// Name returns the samp.name entry, or "" when absent or not a string.
func (m Metadata) Name() string {
	name, _ := m["samp.name"].(string)
	return name
}

// Message is a SAMP message: an mtype naming the operation and a params
// map of SAMP values.
type Message struct {
	MType  string
	Params map[string]any
}

// toValue converts the message to its wire form. The samp.params entry
// is always present; hubs reject messages without it.
func (m Message) toValue() map[string]any {
	params := m.Params
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"samp.mtype":  m.MType,
		"samp.params": params,
	}
}

// Response is the reply to a synchronous call: the SAMP status, the
// result map on success, and the error map on failure.
type Response struct {
	Status string
	Result map[string]any
	Error  map[string]any
}

// OK reports whether the call succeeded (status samp.ok).
func (r *Response) OK() bool { return r.Status == StatusOK }

// Value returns the named Result entry as a string, or "" when absent
// or not a string.
func (r *Response) Value(key string) string {
	value, _ := r.Result[key].(string)
	return value
}

// Err returns nil for an OK response, and a *StatusError carrying the
// status and any samp.errortxt otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	text, _ := r.Error["samp.errortxt"].(string)
	return &StatusError{Status: r.Status, ErrorText: text}
}

// responseFromValue builds a Response from a decoded call reply.
func responseFromValue(value any) (*Response, error) {
	reply, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("samp: call reply is %T, want a map", value)
	}
	status, _ := reply["samp.status"].(string)
	if status == "" {
		return nil, fmt.Errorf("samp: call reply has no samp.status")
	}
	result, _ := reply["samp.result"].(map[string]any)
	errorMap, _ := reply["samp.error"].(map[string]any)
	return &Response{Status: status, Result: result, Error: errorMap}, nil
}

// RegisterResult holds the identifiers the hub assigns at registration.
type RegisterResult struct {
	// SelfID is the public client ID other clients see.
	SelfID string
	// PrivateKey authenticates every subsequent hub call.
	PrivateKey string
	// HubID is the hub's own client ID.
	HubID string
}
