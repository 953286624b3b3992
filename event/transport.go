// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/agenthub/coord/internal/pool"
)

// Transport delivers serialized event bodies to the fan-out service.
type Transport interface {
	// Send delivers one event body and returns the listener count reported
	// by the fan-out service, or -1 when the transport cannot know it.
	Send(ctx context.Context, body []byte) (clients int, err error)

	// Healthy probes the fan-out service.
	Healthy(ctx context.Context) error

	// Close releases transport resources.
	Close() error
}

// Default fan-out endpoint paths.
const (
	DefaultEventsPath = "/events"
	DefaultHealthPath = "/health"
)

// ackResponse is the fan-out service's reply to a delivery. Only the client
// count is read, and only for logging.
type ackResponse struct {
	Clients int `json:"clients"`
}

// HTTPTransport posts event bodies as JSON to the fan-out service.
type HTTPTransport struct {
	baseURL    string
	eventsPath string
	healthPath string
	client     *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport posting to baseURL. The optional
// client may be nil, in which case a client with a 10s timeout is used.
func NewHTTPTransport(baseURL string, client *http.Client) (*HTTPTransport, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid fan-out base URL %q: %w", baseURL, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		eventsPath: DefaultEventsPath,
		healthPath: DefaultHealthPath,
		client:     client,
	}, nil
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, body []byte) (int, error) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)
	buf.Write(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+t.eventsPath, buf)
	if err != nil {
		return -1, fmt.Errorf("create fan-out request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return -1, fmt.Errorf("deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return -1, fmt.Errorf("fan-out service returned %s", resp.Status)
	}

	// The ack body is advisory; a missing or malformed client count is not
	// a delivery failure.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return -1, nil
	}
	var ack ackResponse
	if err := sonic.ConfigDefault.Unmarshal(data, &ack); err != nil {
		return -1, nil
	}
	return ack.Clients, nil
}

// Healthy implements Transport with a GET against the health path.
func (t *HTTPTransport) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+t.healthPath, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned %s", resp.Status)
	}
	return nil
}

// Close implements Transport.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// SocketTransport delivers event bodies over a persistent websocket to the
// fan-out service. Delivery acknowledgements are not read, so Send always
// reports an unknown listener count.
type SocketTransport struct {
	url          string
	dialer       *websocket.Dialer
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ Transport = (*SocketTransport)(nil)

// NewSocketTransport creates a websocket transport for the given ws:// or
// wss:// URL. The connection is dialed lazily on first use.
func NewSocketTransport(wsURL string) (*SocketTransport, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid fan-out socket URL %q: %w", wsURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("fan-out socket URL must be ws or wss, got %q", u.Scheme)
	}
	return &SocketTransport{
		url:          wsURL,
		dialer:       websocket.DefaultDialer,
		writeTimeout: 10 * time.Second,
	}, nil
}

// Send implements Transport. A write failure closes the connection and
// retries once on a fresh dial.
func (t *SocketTransport) Send(ctx context.Context, body []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.write(ctx, body); err != nil {
		t.closeLocked()
		if err := t.write(ctx, body); err != nil {
			return -1, fmt.Errorf("deliver event over socket: %w", err)
		}
	}
	return -1, nil
}

func (t *SocketTransport) write(ctx context.Context, body []byte) error {
	if t.conn == nil {
		conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
		if err != nil {
			return fmt.Errorf("dial fan-out socket: %w", err)
		}
		t.conn = conn
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, body)
}

// Healthy implements Transport by ensuring a connection can be established.
func (t *SocketTransport) Healthy(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dial fan-out socket: %w", err)
	}
	t.conn = conn
	return nil
}

// Close implements Transport.
func (t *SocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}

func (t *SocketTransport) closeLocked() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
