// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ds9samp packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. These are the only place
// in the test suite where real wall-clock timeouts are used; package
// logic under test runs on an injected clock.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no ds9samp-internal dependencies.
package testutil
