// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fanoutServer is a fake fan-out service recording delivered bodies.
type fanoutServer struct {
	mu      sync.Mutex
	bodies  [][]byte
	healthy bool
	srv     *httptest.Server
}

func newFanoutServer(t *testing.T, healthy bool) *fanoutServer {
	t.Helper()

	f := &fanoutServer{healthy: healthy}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.mu.Lock()
		ok := f.healthy
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clients":2}`))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fanoutServer) deliveries() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.bodies))
	copy(out, f.bodies)
	return out
}

func newTestPublisher(t *testing.T, f *fanoutServer) *Publisher {
	t.Helper()

	transport, err := NewHTTPTransport(f.srv.URL, f.srv.Client())
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	p, err := NewPublisher(transport)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	return p
}

func TestPublisherInitialize(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newFanoutServer(t, true)
		p := newTestPublisher(t, f)

		if err := p.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if !p.Initialized() {
			t.Error("publisher should be initialized after a passing probe")
		}
	})

	t.Run("degraded on failing probe", func(t *testing.T) {
		t.Parallel()

		f := newFanoutServer(t, false)
		p := newTestPublisher(t, f)

		if err := p.Initialize(context.Background()); err == nil {
			t.Fatal("Initialize() should fail when the health probe fails")
		}
		if p.Initialized() {
			t.Error("publisher should stay degraded")
		}

		// Degraded publishes short-circuit without network I/O.
		if ok := p.PublishConversation(context.Background(), ConversationEvent{
			Action:         ConversationCreated,
			ConversationID: "c-1",
		}); ok {
			t.Error("publish on a degraded publisher should report false")
		}
		if got := len(f.deliveries()); got != 0 {
			t.Errorf("degraded publisher made %d transport calls, want 0", got)
		}
	})
}

func TestPublishEnvelope(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	p := newTestPublisher(t, f)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	ok := p.PublishMessage(context.Background(), MessageEvent{
		Direction:      DirectionReceived,
		ConversationID: "conv-7",
		Parts:          []MessagePart{NewTextPart("result ready")},
	})
	if !ok {
		t.Fatal("PublishMessage() = false, want true")
	}

	bodies := f.deliveries()
	if len(bodies) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(bodies))
	}

	var got map[string]any
	if err := json.Unmarshal(bodies[0], &got); err != nil {
		t.Fatalf("delivered body is not JSON: %v", err)
	}

	if got["eventType"] != TypeMessage {
		t.Errorf("eventType = %v, want %q", got["eventType"], TypeMessage)
	}
	ts, _ := got["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q is not RFC 3339: %v", ts, err)
	}
	// Type-specific fields sit flat next to the envelope.
	if got["conversationId"] != "conv-7" {
		t.Errorf("conversationId = %v, want conv-7", got["conversationId"])
	}
	if got["routingKey"] != "conv-7" {
		t.Errorf("routingKey = %v, want conv-7", got["routingKey"])
	}
	if got["direction"] != string(DirectionReceived) {
		t.Errorf("direction = %v, want %q", got["direction"], DirectionReceived)
	}
}

func TestPublishFileDeduplication(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	p := newTestPublisher(t, f)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	ctx := context.Background()

	ev := NewFileUploaded("conv-1", "report.pdf", "files://report.pdf", "application/pdf", 1024)

	// Same URI twice in one conversation: one transport call, two trues.
	if !p.PublishFile(ctx, ev) {
		t.Fatal("first PublishFile() = false, want true")
	}
	if !p.PublishFile(ctx, ev) {
		t.Fatal("duplicate PublishFile() = false, want true")
	}
	if got := len(f.deliveries()); got != 1 {
		t.Errorf("transport calls after duplicate = %d, want 1", got)
	}

	// Same URI in a different conversation is not suppressed.
	other := ev
	other.ConversationID = "conv-2"
	if !p.PublishFile(ctx, other) {
		t.Fatal("cross-conversation PublishFile() = false, want true")
	}
	if got := len(f.deliveries()); got != 2 {
		t.Errorf("transport calls across conversations = %d, want 2", got)
	}

	// Resetting the conversation clears its de-dup state.
	p.ResetConversation("conv-1")
	if !p.PublishFile(ctx, ev) {
		t.Fatal("PublishFile() after reset = false, want true")
	}
	if got := len(f.deliveries()); got != 3 {
		t.Errorf("transport calls after reset = %d, want 3", got)
	}
}

func TestPublishFileRequiresURI(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	p := newTestPublisher(t, f)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if ok := p.PublishFile(context.Background(), FileEvent{ConversationID: "c"}); ok {
		t.Error("PublishFile() without URI = true, want false")
	}
}

func TestSyncRegistry(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	p := newTestPublisher(t, f)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// No provider installed yet.
	if ok := p.SyncRegistry(context.Background()); ok {
		t.Error("SyncRegistry() without provider = true, want false")
	}

	catalog := []AgentDescriptor{
		{ID: "summarizer", Name: "Summarizer", Capabilities: []string{"text"}},
		{ID: "coder", Name: "Coder"},
	}
	p.SetRegistryProvider(func() []AgentDescriptor { return catalog })

	if ok := p.SyncRegistry(context.Background()); !ok {
		t.Fatal("SyncRegistry() = false, want true")
	}

	bodies := f.deliveries()
	if len(bodies) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(bodies))
	}

	var got struct {
		EventType string            `json:"eventType"`
		Agents    []AgentDescriptor `json:"agents"`
	}
	if err := json.Unmarshal(bodies[0], &got); err != nil {
		t.Fatalf("delivered body is not JSON: %v", err)
	}
	if got.EventType != TypeAgentsSync {
		t.Errorf("eventType = %q, want %q", got.EventType, TypeAgentsSync)
	}
	if diff := cmp.Diff(catalog, got.Agents); diff != "" {
		t.Errorf("agent catalog mismatch (-want +got):\n%s", diff)
	}
}

// stubTransport is an in-process Transport whose deliveries can be gated
// and failed deterministically.
type stubTransport struct {
	mu    sync.Mutex
	calls int
	fail  bool
	gate  chan struct{} // when non-nil, Send blocks until closed
}

func (s *stubTransport) Send(ctx context.Context, body []byte) (int, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.calls++
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return 0, errors.New("fan-out unavailable")
	}
	return 1, nil
}

func (s *stubTransport) Healthy(ctx context.Context) error { return nil }

func (s *stubTransport) Close() error { return nil }

func (s *stubTransport) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubTransport) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func newStubPublisher(t *testing.T, transport *stubTransport) *Publisher {
	t.Helper()

	p, err := NewPublisher(transport)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return p
}

func TestPublishFileConcurrentProducers(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{gate: make(chan struct{})}
	p := newStubPublisher(t, transport)

	ev := NewFileUploaded("conv-1", "report.pdf", "files://report.pdf", "application/pdf", 1024)

	// Two producers race to publish the same artifact. One claims the URI
	// and blocks inside the transport; the other must collapse onto that
	// in-flight claim instead of delivering a second copy.
	results := make(chan bool, 2)
	for n := 0; n < 2; n++ {
		go func() {
			results <- p.PublishFile(context.Background(), ev)
		}()
	}

	if got := <-results; !got {
		t.Error("duplicate PublishFile() = false, want true")
	}
	close(transport.gate)
	if got := <-results; !got {
		t.Error("PublishFile() = false, want true")
	}

	if got := transport.sent(); got != 1 {
		t.Errorf("transport calls = %d, want 1", got)
	}
}

func TestPublishFileFailureAllowsRetry(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{fail: true}
	p := newStubPublisher(t, transport)
	ctx := context.Background()

	ev := NewFileUploaded("conv-1", "report.pdf", "files://report.pdf", "application/pdf", 1024)

	// A failed delivery must not leave the URI claimed.
	if ok := p.PublishFile(ctx, ev); ok {
		t.Fatal("PublishFile() on failing transport = true, want false")
	}

	transport.setFail(false)
	if ok := p.PublishFile(ctx, ev); !ok {
		t.Fatal("PublishFile() retry = false, want true")
	}
	if got := transport.sent(); got != 2 {
		t.Errorf("transport calls = %d, want 2", got)
	}

	// The retry recorded the URI; further publishes are suppressed.
	if ok := p.PublishFile(ctx, ev); !ok {
		t.Fatal("duplicate PublishFile() = false, want true")
	}
	if got := transport.sent(); got != 2 {
		t.Errorf("transport calls after duplicate = %d, want 2", got)
	}
}

func TestPublishTransportFailureReportsFalse(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	p := newTestPublisher(t, f)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// Kill the server; publishes must degrade to false, never panic.
	f.srv.Close()

	if ok := p.PublishEvent(context.Background(), GenericEvent{Name: "ping"}, ""); ok {
		t.Error("publish against a dead fan-out = true, want false")
	}
}

func TestPublishTaskNil(t *testing.T) {
	t.Parallel()

	f := newFanoutServer(t, true)
	p := newTestPublisher(t, f)
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if ok := p.PublishTask(context.Background(), TaskUpdated, nil); ok {
		t.Error("PublishTask(nil) = true, want false")
	}
}
