// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agenthub/coord"
)

// RegistryProvider returns the current agent catalog. The publisher calls it
// on SyncRegistry so it can push fresh catalog state without owning catalog
// storage.
type RegistryProvider func() []AgentDescriptor

// Publisher republishes platform events to the fan-out service. It must be
// initialized with a successful health probe before any publish reaches the
// network; until then every publish short-circuits to false.
//
// Publish methods never return an error and never panic: all transport
// failures are logged and reported as false.
type Publisher struct {
	transport   Transport
	logger      *slog.Logger
	clock       func() time.Time
	timeout     time.Duration
	initialized atomic.Bool

	// mu guards the per-conversation file de-duplication sets and the
	// registry provider.
	mu        sync.Mutex
	seenFiles map[string]map[string]struct{}
	registry  RegistryProvider
}

// NewPublisher creates a publisher delivering through transport.
func NewPublisher(transport Transport, opts ...PublisherOption) (*Publisher, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	p := &Publisher{
		transport: transport,
		logger:    slog.Default(),
		clock:     time.Now,
		timeout:   10 * time.Second,
		seenFiles: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "event_publisher")
	return p, nil
}

// Initialize probes the fan-out service. On success the publisher becomes
// usable; on failure it stays degraded and the error is returned so the host
// can decide whether to retry.
func (p *Publisher) Initialize(ctx context.Context) error {
	if err := p.transport.Healthy(ctx); err != nil {
		p.logger.Error("fan-out health probe failed, publisher degraded", "error", err)
		return err
	}
	p.initialized.Store(true)
	p.logger.Info("publisher initialized")
	return nil
}

// Initialized reports whether the health probe has succeeded.
func (p *Publisher) Initialized() bool {
	return p.initialized.Load()
}

// Close releases the underlying transport.
func (p *Publisher) Close() error {
	p.initialized.Store(false)
	return p.transport.Close()
}

// PublishMessage publishes a chat message event, routed by its conversation.
func (p *Publisher) PublishMessage(ctx context.Context, ev MessageEvent) bool {
	return p.publish(ctx, ev, ev.ConversationID)
}

// PublishConversation publishes a conversation lifecycle event.
func (p *Publisher) PublishConversation(ctx context.Context, ev ConversationEvent) bool {
	return p.publish(ctx, ev, ev.ConversationID)
}

// PublishTask publishes a snapshot of queued-task state, routed by the
// task's session.
func (p *Publisher) PublishTask(ctx context.Context, action TaskAction, task *coord.Task) bool {
	if task == nil {
		p.logger.Warn("dropping task event with nil task")
		return false
	}
	snapshot := task.Clone()
	return p.publish(ctx, TaskEvent{Action: action, Task: snapshot}, snapshot.SessionID)
}

// PublishEvent publishes a generic named event.
func (p *Publisher) PublishEvent(ctx context.Context, ev GenericEvent, routingKey string) bool {
	return p.publish(ctx, ev, routingKey)
}

// PublishFile publishes an uploaded-file event. A URI already published for
// the same conversation is treated as a successful no-op so the same
// artifact reported by multiple producers reaches listeners once.
func (p *Publisher) PublishFile(ctx context.Context, ev FileEvent) bool {
	if ev.URI == "" {
		p.logger.Warn("dropping file event without URI", "conversation_id", ev.ConversationID)
		return false
	}

	// Claim the URI before touching the transport so concurrent producers
	// of the same artifact collapse into a single delivery.
	p.mu.Lock()
	seen := p.seenFiles[ev.ConversationID]
	if _, dup := seen[ev.URI]; dup {
		p.mu.Unlock()
		p.logger.Debug("file already published for conversation",
			"conversation_id", ev.ConversationID,
			"uri", ev.URI)
		return true
	}
	if seen == nil {
		seen = make(map[string]struct{})
		p.seenFiles[ev.ConversationID] = seen
	}
	seen[ev.URI] = struct{}{}
	p.mu.Unlock()

	if !p.publish(ctx, ev, ev.ConversationID) {
		// Release the claim so the producer can retry a failed delivery.
		p.mu.Lock()
		if seen := p.seenFiles[ev.ConversationID]; seen != nil {
			delete(seen, ev.URI)
			if len(seen) == 0 {
				delete(p.seenFiles, ev.ConversationID)
			}
		}
		p.mu.Unlock()
		return false
	}
	return true
}

// PublishForm publishes a submitted-form event.
func (p *Publisher) PublishForm(ctx context.Context, ev FormEvent) bool {
	return p.publish(ctx, ev, ev.ConversationID)
}

// SetRegistryProvider installs the agent catalog callback used by
// SyncRegistry.
func (p *Publisher) SetRegistryProvider(fn RegistryProvider) {
	p.mu.Lock()
	p.registry = fn
	p.mu.Unlock()
}

// SyncRegistry fetches the current agent catalog from the registry provider
// and publishes it as an agents_sync event.
func (p *Publisher) SyncRegistry(ctx context.Context) bool {
	p.mu.Lock()
	fn := p.registry
	p.mu.Unlock()

	if fn == nil {
		p.logger.Warn("registry sync requested without a provider")
		return false
	}

	agents := fn()
	p.logger.Debug("syncing agent catalog", "agents", len(agents))
	return p.publish(ctx, AgentsSyncEvent{Agents: agents}, "")
}

// ResetConversation drops the de-duplication state for one conversation so
// deleted conversations do not leak seen-file sets.
func (p *Publisher) ResetConversation(conversationID string) {
	p.mu.Lock()
	delete(p.seenFiles, conversationID)
	p.mu.Unlock()
}

// publish serializes and delivers one event. It is the single funnel where
// the never-raise contract is enforced.
func (p *Publisher) publish(ctx context.Context, ev Event, routingKey string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("publish panicked", "event_type", ev.EventType(), "panic", r)
			ok = false
		}
	}()

	if !p.initialized.Load() {
		p.logger.Warn("publish skipped, publisher not initialized", "event_type", ev.EventType())
		return false
	}

	body, err := encodeEvent(ev, routingKey, p.clock())
	if err != nil {
		p.logger.Error("event serialization failed", "event_type", ev.EventType(), "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	clients, err := p.transport.Send(ctx, body)
	if err != nil {
		p.logger.Error("event delivery failed", "event_type", ev.EventType(), "error", err)
		return false
	}

	if clients >= 0 {
		p.logger.Debug("event delivered",
			"event_type", ev.EventType(),
			"routing_key", routingKey,
			"clients", clients)
	} else {
		p.logger.Debug("event delivered",
			"event_type", ev.EventType(),
			"routing_key", routingKey)
	}
	return true
}
