// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestOptionsWithDefaults(t *testing.T) {
	t.Setenv("DS9_EXE", "")
	t.Setenv("SAMP_HUB_PATH", "")
	t.Setenv("HOME", "/home/astro")

	o := Options{}.withDefaults()

	if o.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", o.Title, DefaultTitle)
	}
	if o.Executable != DefaultExecutable {
		t.Errorf("Executable = %q, want %q", o.Executable, DefaultExecutable)
	}
	if !reflect.DeepEqual(o.Args, DefaultArgs()) {
		t.Errorf("Args = %v, want %v", o.Args, DefaultArgs())
	}
	if o.HubDir != filepath.Join("/home/astro", ".samp-ds9") {
		t.Errorf("HubDir = %q, want /home/astro/.samp-ds9", o.HubDir)
	}
	if o.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", o.Timeout, DefaultTimeout)
	}
	if o.RetryInterval != DefaultRetryInterval {
		t.Errorf("RetryInterval = %v, want %v", o.RetryInterval, DefaultRetryInterval)
	}
	if o.CallTimeout != DefaultCallTimeout {
		t.Errorf("CallTimeout = %v, want %v", o.CallTimeout, DefaultCallTimeout)
	}
	if o.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", o.PollInterval, DefaultPollInterval)
	}
	if o.Logger == nil {
		t.Errorf("Logger not defaulted")
	}
	if o.Clock == nil {
		t.Errorf("Clock not defaulted")
	}
}

func TestOptionsEnvironmentOverrides(t *testing.T) {
	t.Setenv("DS9_EXE", "/opt/ds9/bin/ds9")
	t.Setenv("SAMP_HUB_PATH", "/tmp/hubs")

	o := Options{}.withDefaults()
	if o.Executable != "/opt/ds9/bin/ds9" {
		t.Errorf("Executable = %q, want DS9_EXE value", o.Executable)
	}
	if o.HubDir != "/tmp/hubs" {
		t.Errorf("HubDir = %q, want SAMP_HUB_PATH value", o.HubDir)
	}

	// Explicit fields beat the environment.
	o = Options{Executable: "ds9", HubDir: "/var/hub"}.withDefaults()
	if o.Executable != "ds9" || o.HubDir != "/var/hub" {
		t.Errorf("explicit fields overridden: exe=%q dir=%q", o.Executable, o.HubDir)
	}
}

func TestOptionsArgsSemantics(t *testing.T) {
	// Nil means the default set, an empty non-nil slice means none.
	if got := (Options{}.withDefaults()).Args; !reflect.DeepEqual(got, DefaultArgs()) {
		t.Errorf("nil Args = %v, want defaults", got)
	}
	if got := (Options{Args: []string{}}.withDefaults()).Args; len(got) != 0 {
		t.Errorf("empty Args = %v, want none", got)
	}
}

func TestOptionsPollIntervalSemantics(t *testing.T) {
	if got := (Options{}.withDefaults()).PollInterval; got != DefaultPollInterval {
		t.Errorf("zero PollInterval = %v, want default", got)
	}
	// Negative disables the watchdog and must survive defaulting.
	if got := (Options{PollInterval: -1}.withDefaults()).PollInterval; got >= 0 {
		t.Errorf("negative PollInterval = %v, want it preserved", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := Options{
		Title:      "ds9SAMP",
		Executable: "ds9",
		HubDir:     "/tmp/hubs",
		Timeout:    time.Second,
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("validate(valid) = %v", err)
	}

	bad := valid
	bad.Title = "two\nlines"
	if err := bad.validate(); err == nil {
		t.Fatalf("validate accepted a title with control characters")
	}

	bad = valid
	bad.Title = ""
	if err := bad.validate(); err == nil {
		t.Fatalf("validate accepted an empty title")
	}
}
