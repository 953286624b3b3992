// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestNewHTTPTransportValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPTransport("not a url", nil); err == nil {
		t.Error("NewHTTPTransport() should reject an invalid URL")
	}
	if _, err := NewHTTPTransport("http://localhost:5001/", nil); err != nil {
		t.Errorf("NewHTTPTransport() error = %v", err)
	}
}

func TestHTTPTransportSendReportsClients(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	transport, err := NewHTTPTransport(f.srv.URL, f.srv.Client())
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}

	clients, err := transport.Send(context.Background(), []byte(`{"eventType":"event"}`))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if clients != 2 {
		t.Errorf("clients = %d, want 2 from the ack body", clients)
	}
}

func TestHTTPTransportSendErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	transport, err := NewHTTPTransport(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	if _, err := transport.Send(context.Background(), []byte(`{}`)); err == nil {
		t.Error("Send() should fail on a non-2xx response")
	}
}

func TestSocketTransportValidatesScheme(t *testing.T) {
	t.Parallel()

	if _, err := NewSocketTransport("http://localhost:5001"); err == nil {
		t.Error("NewSocketTransport() should reject non-ws schemes")
	}
	if _, err := NewSocketTransport("ws://localhost:5001/events"); err != nil {
		t.Errorf("NewSocketTransport() error = %v", err)
	}
}

func TestSocketTransportSend(t *testing.T) {
	t.Parallel()

	received := make(chan []byte, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	transport, err := NewSocketTransport(wsURL)
	if err != nil {
		t.Fatalf("NewSocketTransport() error = %v", err)
	}
	t.Cleanup(func() { transport.Close() })

	if err := transport.Healthy(context.Background()); err != nil {
		t.Fatalf("Healthy() error = %v", err)
	}

	body := []byte(`{"eventType":"event","name":"ping"}`)
	if _, err := transport.Send(context.Background(), body); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(body) {
			t.Errorf("fan-out received %s, want %s", got, body)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fan-out never received the frame")
	}
}
