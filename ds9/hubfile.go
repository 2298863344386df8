// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// hubFileName builds the lockfile name for one viewer instance. The
// timestamp (to the microsecond) and the supervisor PID keep names from
// colliding across concurrent launches; any byte outside [A-Za-z0-9.]
// becomes an underscore so the name stays shell- and URL-safe.
func hubFileName(title string, now time.Time, pid int) string {
	now = now.UTC()
	stem := fmt.Sprintf("%s_utc%s.%06d_pid%d",
		title, now.Format("20060102T150405"), now.Nanosecond()/1000, pid)
	return sanitizeHubName(stem) + ".samp"
}

func sanitizeHubName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ensureHubDir creates the lockfile directory with owner-only access.
// An existing directory keeps whatever mode it already has.
func ensureHubDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ds9: creating hub directory: %w", err)
	}
	return nil
}
