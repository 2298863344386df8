// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package ds9

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/ds9tools/ds9samp/lib/clock"
	"github.com/ds9tools/ds9samp/lib/testutil"
	"github.com/ds9tools/ds9samp/samp"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeHub scripts the hub side of the supervisor. The zero value is
// not useful; build one with newFakeHub.
type fakeHub struct {
	mu sync.Mutex

	// viewerID advertises viewerName on the hub. bystanders are extra
	// client IDs advertising an unrelated name.
	viewerID   string
	viewerName string
	bystanders []string

	// connectErr fails every Connect. connectFailures makes the first
	// N Connects fail as hub-unavailable instead.
	connectErr      error
	connectFailures int
	connects        int

	pingAck string
	pingErr error
	pings   int

	calls       []hubCall
	callErr     error
	failCommand string
	result      map[string]any

	closed int
}

type hubCall struct {
	mtype string
	cmd   string
}

var _ samp.Hub = (*fakeHub)(nil)

func newFakeHub(title string) *fakeHub {
	return &fakeHub{
		viewerID:   "c2",
		viewerName: title,
		pingAck:    "OK",
		result:     map[string]any{"value": "8.7.1"},
	}
}

func (h *fakeHub) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects++
	if h.connectErr != nil {
		return h.connectErr
	}
	if h.connects <= h.connectFailures {
		return &samp.HubUnavailableError{Locator: "fake", Err: errors.New("hub not listening")}
	}
	return nil
}

func (h *fakeHub) GetSubscribedClients(ctx context.Context, mtype string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if mtype != "ds9.set" {
		return nil, fmt.Errorf("unexpected mtype %q", mtype)
	}
	ids := append([]string(nil), h.bystanders...)
	return append(ids, h.viewerID), nil
}

func (h *fakeHub) GetMetadata(ctx context.Context, clientID string) (samp.Metadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clientID == h.viewerID {
		return samp.Metadata{"samp.name": h.viewerName}, nil
	}
	return samp.Metadata{"samp.name": "imviewer"}, nil
}

func (h *fakeHub) Notify(ctx context.Context, clientID string, message samp.Message) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if message.MType == samp.MTypePing {
		h.pings++
	}
	if h.pingErr != nil {
		return "", h.pingErr
	}
	return h.pingAck, nil
}

func (h *fakeHub) CallAndWait(ctx context.Context, clientID string, message samp.Message, timeout time.Duration) (*samp.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cmd, _ := message.Params["cmd"].(string)
	h.calls = append(h.calls, hubCall{mtype: message.MType, cmd: cmd})
	if h.callErr != nil {
		return nil, h.callErr
	}
	if cmd == h.failCommand && cmd != "" {
		return &samp.Response{
			Status: "samp.error",
			Error:  map[string]any{"samp.errortxt": "unknown command"},
		}, nil
	}
	return &samp.Response{Status: samp.StatusOK, Result: h.result}, nil
}

func (h *fakeHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return nil
}

func (h *fakeHub) connectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}

func (h *fakeHub) pingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pings
}

func (h *fakeHub) closedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHub) snapshotCalls() []hubCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hubCall(nil), h.calls...)
}

// testScript builds a stand-in viewer binary that ignores its arguments
// and stays alive until killed.
func testScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakeds9")
	script := "#!/bin/sh\nexec sleep 300\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake viewer script: %v", err)
	}
	return path
}

// testOptions wires a scripted hub, a fake clock, and a harmless child
// process. The watchdog is off unless a test turns it on.
func testOptions(t *testing.T, hub *fakeHub, fakeClock *clock.FakeClock) Options {
	t.Helper()
	return Options{
		Title:         "ds9SAMP",
		Executable:    testScript(t),
		Args:          []string{},
		HubDir:        t.TempDir(),
		Timeout:       3 * time.Second,
		RetryInterval: time.Second,
		CallTimeout:   time.Second,
		PollInterval:  -1,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:         fakeClock,
		Hub:           hub,
	}
}

// waitProcessGone polls until pid no longer exists. The reaper
// goroutine collects the child, after which signal 0 reports ESRCH.
func waitProcessGone(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("viewer process %d still running", pid)
}

func TestLaunchAndClose(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	var callbacks atomic.Int32
	options := testOptions(t, hub, clock.Fake(epoch))
	options.ExitCallback = func() { callbacks.Add(1) }

	v, err := Launch(context.Background(), options)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if v.ClientID() != "c2" {
		t.Errorf("ClientID = %q, want c2", v.ClientID())
	}
	pid := v.PID()
	if pid <= 0 {
		t.Fatalf("PID = %d, want a live process", pid)
	}

	// Stand in for the lockfile the viewer's hub would have written.
	if err := os.WriteFile(v.HubFile(), []byte("samp.secret=s\n"), 0o600); err != nil {
		t.Fatalf("writing hub file: %v", err)
	}

	v.Close()
	testutil.RequireClosed(t, v.Done(), 5*time.Second, "teardown finished")

	if got := callbacks.Load(); got != 1 {
		t.Errorf("exit callback ran %d times, want 1", got)
	}
	if got := hub.closedCount(); got != 1 {
		t.Errorf("hub closed %d times, want 1", got)
	}
	if _, err := os.Stat(v.HubFile()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("hub file still present after Close (stat err %v)", err)
	}

	calls := hub.snapshotCalls()
	if len(calls) == 0 || calls[len(calls)-1] != (hubCall{mtype: "ds9.set", cmd: "exit"}) {
		t.Errorf("exit command not relayed, calls = %v", calls)
	}

	waitProcessGone(t, pid)

	// A second Close finds everything done already.
	v.Close()
	if got := callbacks.Load(); got != 1 {
		t.Errorf("second Close reran the callback: %d runs", got)
	}
}

func TestLaunchSpawnFailure(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	options := testOptions(t, hub, clock.Fake(epoch))
	options.Executable = filepath.Join(t.TempDir(), "no-such-binary")
	callbackRan := make(chan struct{})
	options.ExitCallback = func() { close(callbackRan) }

	_, err := Launch(context.Background(), options)
	if err == nil {
		t.Fatalf("Launch succeeded with a missing executable")
	}
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("error = %v (%T), want *LaunchError", err, err)
	}
	if launchErr.Executable != options.Executable {
		t.Errorf("LaunchError.Executable = %q, want %q", launchErr.Executable, options.Executable)
	}
	if got := hub.connectCount(); got != 0 {
		t.Errorf("handshake ran %d connects despite the spawn failure", got)
	}
	testutil.RequireClosed(t, callbackRan, time.Second, "teardown callback after spawn failure")
}

func TestLaunchRejectsControlCharactersInTitle(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	options := testOptions(t, hub, clock.Fake(epoch))
	options.Title = "two\nlines"

	_, err := Launch(context.Background(), options)
	if err == nil {
		t.Fatalf("Launch accepted a title with control characters")
	}
	if got := hub.connectCount(); got != 0 {
		t.Errorf("connect attempted despite invalid options: %d", got)
	}
}

func TestSetRelaysCommandsInOrder(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	v, err := Launch(context.Background(), testOptions(t, hub, clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer v.Close()

	if err := v.Set(context.Background(), "frame 1", "scale log", "cmap viridis"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	want := []hubCall{
		{mtype: "ds9.set", cmd: "frame 1"},
		{mtype: "ds9.set", cmd: "scale log"},
		{mtype: "ds9.set", cmd: "cmap viridis"},
	}
	if got := hub.snapshotCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("relayed calls = %v, want %v", got, want)
	}
}

func TestSetStopsAtFirstFailure(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	hub.failCommand = "bogus"
	v, err := Launch(context.Background(), testOptions(t, hub, clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer v.Close()

	err = v.Set(context.Background(), "frame 1", "bogus", "scale log")
	if !IsCallError(err) {
		t.Errorf("IsCallError = false for %v", err)
	}
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Set error = %v (%T), want *CallError", err, err)
	}
	if callErr.Op != "set" || callErr.Command != "bogus" {
		t.Errorf("CallError = %+v, want op set, command bogus", callErr)
	}
	var statusErr *samp.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("CallError does not wrap the viewer's status: %v", err)
	}
	if statusErr.Status != "samp.error" {
		t.Errorf("wrapped status = %q, want %q", statusErr.Status, "samp.error")
	}

	want := []hubCall{
		{mtype: "ds9.set", cmd: "frame 1"},
		{mtype: "ds9.set", cmd: "bogus"},
	}
	if got := hub.snapshotCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("relayed calls = %v, want delivery to stop after the failure", got)
	}
}

func TestGetReturnsViewerResponse(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	hub.result = map[string]any{"value": "8.7.1"}
	v, err := Launch(context.Background(), testOptions(t, hub, clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer v.Close()

	response, err := v.Get(context.Background(), "version")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !response.OK() {
		t.Errorf("response status = %q, want %q", response.Status, samp.StatusOK)
	}
	if got := response.Value("value"); got != "8.7.1" {
		t.Errorf("response value = %q, want 8.7.1", got)
	}
	if got := hub.snapshotCalls(); len(got) != 1 || got[0] != (hubCall{mtype: "ds9.get", cmd: "version"}) {
		t.Errorf("relayed calls = %v, want one ds9.get", got)
	}
}

func TestGetSurfacesViewerErrorInResponse(t *testing.T) {
	// A non-OK status is data, not a transport failure: the caller gets
	// the response and decides.
	hub := newFakeHub("ds9SAMP")
	hub.failCommand = "bogus"
	v, err := Launch(context.Background(), testOptions(t, hub, clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer v.Close()

	response, err := v.Get(context.Background(), "bogus")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if response.OK() {
		t.Fatalf("response reports OK for a failed command")
	}
	if response.Err() == nil {
		t.Errorf("Response.Err() = nil for status %q", response.Status)
	}
}

func TestGetTransportFailure(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	v, err := Launch(context.Background(), testOptions(t, hub, clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer v.Close()

	hub.mu.Lock()
	hub.callErr = errors.New("hub gone")
	hub.mu.Unlock()

	_, err = v.Get(context.Background(), "version")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Get error = %v (%T), want *CallError", err, err)
	}
	if callErr.Op != "get" || callErr.Command != "version" {
		t.Errorf("CallError = %+v, want op get, command version", callErr)
	}
}

func TestAlive(t *testing.T) {
	hub := newFakeHub("ds9SAMP")
	v, err := Launch(context.Background(), testOptions(t, hub, clock.Fake(epoch)))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer v.Close()

	if !v.Alive(context.Background()) {
		t.Errorf("Alive = false for a responsive viewer")
	}

	// Any acknowledgment other than the viewer's "OK" means something
	// else answered; that is not alive.
	hub.mu.Lock()
	hub.pingAck = "maybe"
	hub.mu.Unlock()
	if v.Alive(context.Background()) {
		t.Errorf("Alive = true for a non-OK acknowledgment")
	}

	hub.mu.Lock()
	hub.pingAck = "OK"
	hub.pingErr = errors.New("connection refused")
	hub.mu.Unlock()
	if v.Alive(context.Background()) {
		t.Errorf("Alive = true when the ping cannot be delivered")
	}

	if got := hub.pingCount(); got != 3 {
		t.Errorf("ping count = %d, want 3", got)
	}
}
