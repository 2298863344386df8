// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LockfileInfo holds the Standard Profile lockfile fields the client
// needs: the registration secret and the hub's XML-RPC endpoint.
type LockfileInfo struct {
	// Secret is the samp.secret registration token.
	Secret string
	// URL is the samp.hub.xmlrpc.url endpoint.
	URL string
	// ProfileVersion is the samp.profile.version the hub declares,
	// if present.
	ProfileVersion string
}

// LockfilePath resolves a hub locator to a lockfile path. Three forms
// are accepted:
//
//   - "std-lockurl:file:///path/to/lockfile" (the SAMP_HUB form)
//   - a plain filesystem path
//   - "" resolves through the SAMP_HUB environment variable, falling
//     back to the Standard Profile default ~/.samp
//
// Non-file lockurl schemes are rejected: this client talks only to
// hubs on the local machine.
func LockfilePath(locator string) (string, error) {
	if locator == "" {
		locator = os.Getenv("SAMP_HUB")
	}
	if locator == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("samp: resolving default lockfile: %w", err)
		}
		return filepath.Join(home, ".samp"), nil
	}
	lockurl, isLockurl := strings.CutPrefix(locator, "std-lockurl:")
	if !isLockurl {
		return locator, nil
	}
	parsed, err := url.Parse(lockurl)
	if err != nil {
		return "", fmt.Errorf("samp: invalid hub lockurl %q: %w", lockurl, err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("samp: unsupported lockurl scheme %q (only file URLs are supported)", parsed.Scheme)
	}
	if parsed.Path == "" {
		return "", fmt.Errorf("samp: lockurl %q has no path", lockurl)
	}
	return parsed.Path, nil
}

// ReadLockfile parses the hub lockfile at path. A missing file is a
// *HubUnavailableError (the hub has not written it yet); a present but
// malformed file is a permanent error, since waiting will not heal it.
func ReadLockfile(path string) (*LockfileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &HubUnavailableError{Locator: path, Err: err}
		}
		return nil, fmt.Errorf("samp: reading lockfile: %w", err)
	}

	info := &LockfileInfo{}
	for lineNumber, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("samp: lockfile %s line %d: no key=value pair", path, lineNumber+1)
		}
		switch key {
		case "samp.secret":
			info.Secret = value
		case "samp.hub.xmlrpc.url":
			info.URL = value
		case "samp.profile.version":
			info.ProfileVersion = value
		}
	}
	if info.Secret == "" {
		return nil, fmt.Errorf("samp: lockfile %s has no samp.secret", path)
	}
	if info.URL == "" {
		return nil, fmt.Errorf("samp: lockfile %s has no samp.hub.xmlrpc.url", path)
	}
	return info, nil
}
