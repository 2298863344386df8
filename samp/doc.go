// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

// Package samp implements the client side of the SAMP Standard Profile
// (Simple Application Messaging Protocol), the IVOA hub architecture
// that desktop astronomy tools use to interoperate.
//
// The package provides two core types. [Client] is a hub client for the
// Standard Profile: it locates the hub's lockfile, registers with the
// hub's XML-RPC endpoint, declares metadata, and performs the hub
// operations this project needs (subscription queries, metadata lookup,
// notify, synchronous call-and-wait, unregister). [Hub] is the interface
// those operations form; supervision code depends on Hub so that tests
// can substitute an in-memory fake without HTTP.
//
// Wire values follow the SAMP type system: every value is a string, a
// list, or a map, nested arbitrarily. In Go these are string, []any,
// and map[string]any. Encoding rejects any other Go type; decoding is
// liberal and folds the scalar XML-RPC types some hub implementations
// emit (int, boolean, double) back into their string forms.
//
// Errors are typed. [*Fault] is an XML-RPC fault from the hub.
// [*HubUnavailableError] means the hub endpoint could not be reached at
// all (lockfile missing, or nothing listening at the recorded URL) and
// is the one class worth retrying while a freshly launched hub finishes
// starting; [IsHubUnavailable] classifies. [*StatusError] is a call
// that completed at the transport level but whose SAMP status was not
// samp.ok.
package samp
