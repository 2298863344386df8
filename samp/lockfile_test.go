// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLockfilePath(t *testing.T) {
	t.Run("std-lockurl file URL", func(t *testing.T) {
		path, err := LockfilePath("std-lockurl:file:///home/user/.samp-ds9/hub.samp")
		if err != nil {
			t.Fatalf("LockfilePath failed: %v", err)
		}
		if path != "/home/user/.samp-ds9/hub.samp" {
			t.Errorf("path = %q", path)
		}
	})

	t.Run("plain path", func(t *testing.T) {
		path, err := LockfilePath("/tmp/hub.samp")
		if err != nil {
			t.Fatalf("LockfilePath failed: %v", err)
		}
		if path != "/tmp/hub.samp" {
			t.Errorf("path = %q", path)
		}
	})

	t.Run("non-file scheme rejected", func(t *testing.T) {
		if _, err := LockfilePath("std-lockurl:http://example.com/lock"); err == nil {
			t.Fatal("expected error for http lockurl")
		}
	})

	t.Run("empty locator uses SAMP_HUB", func(t *testing.T) {
		t.Setenv("SAMP_HUB", "std-lockurl:file:///var/run/hub.samp")
		path, err := LockfilePath("")
		if err != nil {
			t.Fatalf("LockfilePath failed: %v", err)
		}
		if path != "/var/run/hub.samp" {
			t.Errorf("path = %q", path)
		}
	})

	t.Run("empty locator and env falls back to home", func(t *testing.T) {
		t.Setenv("SAMP_HUB", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}
		path, err := LockfilePath("")
		if err != nil {
			t.Fatalf("LockfilePath failed: %v", err)
		}
		if path != filepath.Join(home, ".samp") {
			t.Errorf("path = %q, want %q", path, filepath.Join(home, ".samp"))
		}
	})
}

func TestReadLockfile(t *testing.T) {
	t.Run("valid lockfile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hub.samp")
		content := "# SAMP lockfile written at Mon Aug 24 10:00:00 2026\n" +
			"samp.secret=0d5f2a\n" +
			"samp.hub.xmlrpc.url=http://127.0.0.1:43729/xmlrpc\n" +
			"\n" +
			"samp.profile.version=1.3\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("writing lockfile: %v", err)
		}

		info, err := ReadLockfile(path)
		if err != nil {
			t.Fatalf("ReadLockfile failed: %v", err)
		}
		if info.Secret != "0d5f2a" {
			t.Errorf("Secret = %q", info.Secret)
		}
		if info.URL != "http://127.0.0.1:43729/xmlrpc" {
			t.Errorf("URL = %q", info.URL)
		}
		if info.ProfileVersion != "1.3" {
			t.Errorf("ProfileVersion = %q", info.ProfileVersion)
		}
	})

	t.Run("missing file is hub-unavailable", func(t *testing.T) {
		_, err := ReadLockfile(filepath.Join(t.TempDir(), "absent.samp"))
		if err == nil {
			t.Fatal("expected error for missing lockfile")
		}
		if !IsHubUnavailable(err) {
			t.Errorf("IsHubUnavailable = false for %v", err)
		}
	})

	t.Run("missing keys are permanent errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hub.samp")
		if err := os.WriteFile(path, []byte("samp.secret=abc\n"), 0o600); err != nil {
			t.Fatalf("writing lockfile: %v", err)
		}
		_, err := ReadLockfile(path)
		if err == nil {
			t.Fatal("expected error for lockfile without URL")
		}
		if IsHubUnavailable(err) {
			t.Error("malformed lockfile must not classify as hub-unavailable")
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hub.samp")
		if err := os.WriteFile(path, []byte("this is not a key value pair\n"), 0o600); err != nil {
			t.Fatalf("writing lockfile: %v", err)
		}
		if _, err := ReadLockfile(path); err == nil {
			t.Fatal("expected error for malformed line")
		}
	})
}
