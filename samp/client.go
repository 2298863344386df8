// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package samp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// maxResponseSize bounds hub response body reads: 64 MB. Hub replies
// are small maps; the bound exists so a misbehaving hub cannot exhaust
// memory.
const maxResponseSize int64 = 64 << 20

// callGrace is added to the transport deadline of CallAndWait requests
// so the hub's own timer fires first and produces a proper SAMP
// response instead of a severed connection.
const callGrace = 5 * time.Second

// closeTimeout bounds the unregister call in Close so teardown cannot
// hang on a dead hub.
const closeTimeout = 5 * time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// Name is declared to the hub as samp.name. Other clients discover
	// this client by it.
	Name string
	// Locator selects the hub: "std-lockurl:file:///path", a plain
	// lockfile path, or "" for the SAMP_HUB environment variable and
	// the profile default. See LockfilePath.
	Locator string
	// Metadata is extra metadata declared alongside samp.name.
	Metadata Metadata
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is a Standard Profile hub client. Connect registers with the
// hub; every other operation requires a successful Connect first.
// Client is safe for concurrent use.
type Client struct {
	name       string
	locator    string
	metadata   Metadata
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.Mutex
	registered bool
	hubURL     string
	privateKey string
	selfID     string
	hubID      string
}

var _ Hub = (*Client)(nil)

// NewClient creates a hub client. The client does not touch the
// network until Connect.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("samp: Name is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		name:       config.Name,
		locator:    config.Locator,
		metadata:   config.Metadata,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Connect resolves the hub locator, reads the lockfile, registers with
// the hub, and declares metadata. Transport failures during
// registration classify as *HubUnavailableError so callers can retry
// while a freshly launched hub starts up; every other failure is
// permanent. Calling Connect on a connected client returns nil.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return nil
	}

	path, err := LockfilePath(c.locator)
	if err != nil {
		return err
	}
	info, err := ReadLockfile(path)
	if err != nil {
		return err
	}

	value, err := c.post(ctx, info.URL, "samp.hub.register", info.Secret)
	if err != nil {
		var transport *transportError
		if errors.As(err, &transport) {
			return &HubUnavailableError{Locator: path, Err: transport.err}
		}
		return fmt.Errorf("samp: registering with hub: %w", err)
	}
	reply, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("samp: register reply is %T, want a map", value)
	}
	registration := RegisterResult{
		SelfID:     stringEntry(reply, "samp.self-id"),
		PrivateKey: stringEntry(reply, "samp.private-key"),
		HubID:      stringEntry(reply, "samp.hub-id"),
	}
	if registration.PrivateKey == "" {
		return fmt.Errorf("samp: register reply has no samp.private-key")
	}

	metadata := map[string]any{}
	for key, entry := range c.metadata {
		metadata[key] = entry
	}
	metadata["samp.name"] = c.name

	if _, err := c.post(ctx, info.URL, "samp.hub.declareMetadata", registration.PrivateKey, metadata); err != nil {
		// Do not stay half-registered: a registration without metadata
		// is undiscoverable. Unregister best-effort and fail.
		if _, unregisterErr := c.post(ctx, info.URL, "samp.hub.unregister", registration.PrivateKey); unregisterErr != nil {
			c.logger.Warn("unregister after failed metadata declaration", "error", unregisterErr)
		}
		return fmt.Errorf("samp: declaring metadata: %w", err)
	}

	c.hubURL = info.URL
	c.privateKey = registration.PrivateKey
	c.selfID = registration.SelfID
	c.hubID = registration.HubID
	c.registered = true
	c.logger.Debug("registered with samp hub",
		"self_id", c.selfID,
		"hub_id", c.hubID,
		"lockfile", path,
	)
	return nil
}

// GetSubscribedClients returns the IDs of clients subscribed to mtype,
// sorted for deterministic iteration.
func (c *Client) GetSubscribedClients(ctx context.Context, mtype string) ([]string, error) {
	value, err := c.call(ctx, "samp.hub.getSubscribedClients", mtype)
	if err != nil {
		return nil, err
	}
	subscribed, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("samp: getSubscribedClients reply is %T, want a map", value)
	}
	ids := make([]string, 0, len(subscribed))
	for id := range subscribed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetMetadata returns the metadata clientID declared to the hub.
func (c *Client) GetMetadata(ctx context.Context, clientID string) (Metadata, error) {
	value, err := c.call(ctx, "samp.hub.getMetadata", clientID)
	if err != nil {
		return nil, err
	}
	metadata, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("samp: getMetadata reply is %T, want a map", value)
	}
	return Metadata(metadata), nil
}

// Notify delivers message to clientID without waiting for the
// recipient to process it. The hub's acknowledgment value is folded to
// a string; DS9's built-in hub answers "OK".
func (c *Client) Notify(ctx context.Context, clientID string, message Message) (string, error) {
	value, err := c.call(ctx, "samp.hub.notify", clientID, message.toValue())
	if err != nil {
		return "", err
	}
	ack, _ := value.(string)
	return ack, nil
}

// CallAndWait delivers message to clientID and waits for the
// recipient's response. The timeout travels to the hub in whole
// seconds per the Standard Profile; the HTTP request gets the same
// deadline plus callGrace so the hub's timer fires first.
func (c *Client) CallAndWait(ctx context.Context, clientID string, message Message, timeout time.Duration) (*Response, error) {
	seconds := int(timeout / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout+callGrace)
		defer cancel()
	}
	value, err := c.call(ctx, "samp.hub.callAndWait", clientID, message.toValue(), strconv.Itoa(seconds))
	if err != nil {
		return nil, err
	}
	return responseFromValue(value)
}

// Ping checks that the hub answers at all. Usable before Connect; the
// Standard Profile exempts samp.hub.ping from the private key.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	hubURL := c.hubURL
	c.mu.Unlock()
	if hubURL == "" {
		path, err := LockfilePath(c.locator)
		if err != nil {
			return err
		}
		info, err := ReadLockfile(path)
		if err != nil {
			return err
		}
		hubURL = info.URL
	}
	_, err := c.post(ctx, hubURL, "samp.hub.ping")
	return err
}

// SelfID returns the public client ID the hub assigned, or "" before
// Connect.
func (c *Client) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

// HubID returns the hub's own client ID, or "" before Connect.
func (c *Client) HubID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hubID
}

// Close unregisters from the hub. Idempotent. Unregister failures are
// logged and swallowed: a hub that cannot be reached has already
// forgotten the registration.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if _, err := c.post(ctx, c.hubURL, "samp.hub.unregister", c.privateKey); err != nil {
		c.logger.Debug("samp unregister failed", "error", err)
	}
	c.registered = false
	c.privateKey = ""
	return nil
}

// call performs a hub call that requires registration, injecting the
// private key as the first parameter.
func (c *Client) call(ctx context.Context, method string, params ...any) (any, error) {
	c.mu.Lock()
	hubURL, privateKey, registered := c.hubURL, c.privateKey, c.registered
	c.mu.Unlock()
	if !registered {
		return nil, fmt.Errorf("samp: not connected to a hub")
	}
	return c.post(ctx, hubURL, method, append([]any{privateKey}, params...)...)
}

// post performs one XML-RPC round trip against hubURL.
func (c *Client) post(ctx context.Context, hubURL, method string, params ...any) (any, error) {
	payload, err := marshalCall(method, params)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, hubURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("samp: creating %s request: %w", method, err)
	}
	request.Header.Set("Content-Type", "text/xml")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &transportError{method: method, err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("samp: reading %s response: %w", method, err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("samp: unexpected %d response to %s: %s",
			response.StatusCode, method, string(body))
	}
	return unmarshalResponse(body)
}

// transportError marks a failure to complete the HTTP round trip, as
// opposed to an XML-RPC fault or a decode error. Connect uses the
// distinction to classify hub availability.
type transportError struct {
	method string
	err    error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("samp: %s request failed: %v", e.method, e.err)
}

func (e *transportError) Unwrap() error { return e.err }

// stringEntry returns the named map entry as a string, or "" when
// absent or not a string.
func stringEntry(m map[string]any, key string) string {
	value, _ := m[key].(string)
	return value
}
