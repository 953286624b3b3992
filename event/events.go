// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/agenthub/coord"
)

// Wire event type tags, one per event kind.
const (
	TypeMessage      = "message"
	TypeConversation = "conversation"
	TypeTask         = "task"
	TypeGeneric      = "event"
	TypeFile         = "file"
	TypeForm         = "form"
	TypeAgentsSync   = "agents_sync"
)

// Event is one publishable platform event.
type Event interface {
	// EventType returns the wire type tag for the envelope.
	EventType() string
}

// MessageDirection distinguishes user-sent from agent-received messages.
type MessageDirection string

const (
	DirectionSent     MessageDirection = "sent"
	DirectionReceived MessageDirection = "received"
)

// MessagePart is one piece of message content.
type MessagePart struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	URI      string `json:"uri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// NewTextPart returns a plain-text message part.
func NewTextPart(text string) MessagePart {
	return MessagePart{Kind: "text", Text: text}
}

// MessageEvent reports a chat message crossing the platform boundary.
type MessageEvent struct {
	Direction      MessageDirection `json:"direction"`
	ConversationID string           `json:"conversationId"`
	ContextID      string           `json:"contextId,omitempty"`
	Parts          []MessagePart    `json:"parts"`
}

// EventType implements Event.
func (MessageEvent) EventType() string { return TypeMessage }

// ConversationAction is the lifecycle verb carried by a ConversationEvent.
type ConversationAction string

const (
	ConversationCreated ConversationAction = "created"
	ConversationUpdated ConversationAction = "updated"
)

// ConversationEvent reports a conversation being created or renamed.
type ConversationEvent struct {
	Action         ConversationAction `json:"action"`
	ConversationID string             `json:"conversationId"`
	Title          string             `json:"title,omitempty"`
}

// EventType implements Event.
func (ConversationEvent) EventType() string { return TypeConversation }

// TaskAction is the lifecycle verb carried by a TaskEvent.
type TaskAction string

const (
	TaskCreated TaskAction = "created"
	TaskUpdated TaskAction = "updated"
)

// TaskEvent reports queued-task state to listeners.
type TaskEvent struct {
	Action TaskAction  `json:"action"`
	Task   *coord.Task `json:"task"`
}

// EventType implements Event.
func (TaskEvent) EventType() string { return TypeTask }

// GenericEvent carries an ad-hoc named payload.
type GenericEvent struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data,omitempty"`
}

// EventType implements Event.
func (GenericEvent) EventType() string { return TypeGeneric }

// FileEvent reports an uploaded artifact. ConversationID scopes the
// publisher's de-duplication of URI.
type FileEvent struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversationId"`
	Name           string `json:"name,omitempty"`
	URI            string `json:"uri"`
	MimeType       string `json:"mimeType,omitempty"`
	SizeBytes      int64  `json:"sizeBytes,omitempty"`
}

// NewFileUploaded returns the standard uploaded-file event.
func NewFileUploaded(conversationID, name, uri, mimeType string, size int64) FileEvent {
	return FileEvent{
		Action:         "uploaded",
		ConversationID: conversationID,
		Name:           name,
		URI:            uri,
		MimeType:       mimeType,
		SizeBytes:      size,
	}
}

// EventType implements Event.
func (FileEvent) EventType() string { return TypeFile }

// FormEvent reports a submitted form.
type FormEvent struct {
	Action         string         `json:"action"`
	ConversationID string         `json:"conversationId,omitempty"`
	FormID         string         `json:"formId"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// EventType implements Event.
func (FormEvent) EventType() string { return TypeForm }

// AgentDescriptor is one entry of the agent catalog. The coordination core
// treats it as opaque metadata.
type AgentDescriptor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// AgentsSyncEvent pushes the current agent catalog to the fan-out service.
type AgentsSyncEvent struct {
	Agents []AgentDescriptor `json:"agents"`
}

// EventType implements Event.
func (AgentsSyncEvent) EventType() string { return TypeAgentsSync }

// envelope is the fixed wire frame wrapped around every event. The
// type-specific fields are inlined next to the envelope fields so the body
// stays a single flat JSON object.
type envelope struct {
	EventType  string         `json:"eventType"`
	Timestamp  time.Time      `json:"timestamp"`
	RoutingKey string         `json:"routingKey,omitempty"`
	Fields     jsontext.Value `json:",inline"`
}

// encodeEvent serializes ev into the wire envelope. Timestamps go out as
// RFC 3339 UTC.
func encodeEvent(ev Event, routingKey string, at time.Time) ([]byte, error) {
	fields, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.EventType(), err)
	}

	body, err := json.Marshal(envelope{
		EventType:  ev.EventType(),
		Timestamp:  at.UTC(),
		RoutingKey: routingKey,
		Fields:     fields,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", ev.EventType(), err)
	}
	return body, nil
}
