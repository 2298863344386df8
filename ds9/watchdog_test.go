// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ds9tools/ds9samp/lib/clock"
	"github.com/ds9tools/ds9samp/lib/testutil"
)

func TestWatchdogPingsEveryPeriod(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	fakeClock := clock.Fake(epoch)
	options := testOptions(t, hub, fakeClock)
	options.PollInterval = 5 * time.Second

	v, err := Launch(context.Background(), options)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	for i := 0; i < 3; i++ {
		fakeClock.WaitForTimers(1)
		fakeClock.Advance(5 * time.Second)
	}
	// The next timer is only armed once the previous ping finished.
	fakeClock.WaitForTimers(1)

	if got := hub.pingCount(); got != 3 {
		t.Errorf("ping count = %d, want 3", got)
	}
	select {
	case <-v.Done():
		t.Fatalf("teardown ran for a healthy viewer")
	default:
	}

	v.Close()
	testutil.RequireClosed(t, v.Done(), 5*time.Second, "teardown after Close")
}

func TestWatchdogTearsDownUnresponsiveViewer(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	hub.pingErr = errors.New("connection refused")
	fakeClock := clock.Fake(epoch)
	options := testOptions(t, hub, fakeClock)
	options.PollInterval = 5 * time.Second
	var callbacks atomic.Int32
	options.ExitCallback = func() { callbacks.Add(1) }

	v, err := Launch(context.Background(), options)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	pid := v.PID()

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(5 * time.Second)

	testutil.RequireClosed(t, v.Done(), 5*time.Second, "watchdog teardown")
	if got := hub.pingCount(); got != 1 {
		t.Errorf("ping count = %d, want 1", got)
	}
	if got := callbacks.Load(); got != 1 {
		t.Errorf("exit callback ran %d times, want 1", got)
	}
	waitProcessGone(t, pid)

	// Close after the watchdog already cleaned up is a quiet no-op.
	v.Close()
	if got := callbacks.Load(); got != 1 {
		t.Errorf("Close after watchdog teardown reran the callback: %d runs", got)
	}
}

func TestWatchdogStopsOnClose(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	fakeClock := clock.Fake(epoch)
	options := testOptions(t, hub, fakeClock)
	options.PollInterval = 5 * time.Second

	v, err := Launch(context.Background(), options)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	fakeClock.WaitForTimers(1)

	v.Close()
	testutil.RequireClosed(t, v.Done(), 5*time.Second, "teardown after Close")

	// Close returned, so teardown is complete and the pending poll
	// timer is orphaned. Firing it must not produce another ping.
	if got := hub.pingCount(); got != 0 {
		t.Errorf("ping count = %d before the first period, want 0", got)
	}
	fakeClock.Advance(5 * time.Second)
	if got := hub.pingCount(); got != 0 {
		t.Errorf("ping count = %d after Close, want 0", got)
	}
}

func TestWatchdogDisabled(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	fakeClock := clock.Fake(epoch)
	options := testOptions(t, hub, fakeClock)
	options.PollInterval = -1

	v, err := Launch(context.Background(), options)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	if got := fakeClock.PendingCount(); got != 0 {
		t.Errorf("%d timers armed with the watchdog disabled, want 0", got)
	}
	v.Close()
	testutil.RequireClosed(t, v.Done(), 5*time.Second, "teardown after Close")
	if got := hub.pingCount(); got != 0 {
		t.Errorf("ping count = %d, want 0", got)
	}
}
