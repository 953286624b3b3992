// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package coord

import (
	"fmt"
	"maps"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued and waiting for a worker.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusProcessing indicates a worker currently owns the task.
	TaskStatusProcessing TaskStatus = "processing"

	// TaskStatusCompleted indicates the processor returned a result.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed indicates the task exhausted its retries or failed
	// non-retryably.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusTimedOut indicates the task exceeded its deadline, either
	// waiting in the queue or inside the processor.
	TaskStatusTimedOut TaskStatus = "timed_out"
)

// Terminal reports whether the status is a terminal state. A task in a
// terminal state is never mutated again.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusTimedOut:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusTimedOut:
		return true
	default:
		return false
	}
}

// Default task limits applied by NewTask when the caller leaves them zero.
const (
	DefaultMaxRetries  = 3
	DefaultTaskTimeout = 30 * time.Second
)

// Task is one unit of asynchronous work. The descriptive fields (ID, Payload,
// OwnerID, SessionID, CorrelationID, CreatedAt) are immutable after creation;
// Status and RetryCount are mutated only by the engine worker that currently
// owns the task.
type Task struct {
	// ID is the unique task identifier, generated at enqueue time.
	ID string `json:"taskId"`

	// Payload is the opaque work description. The coordination core never
	// interprets it.
	Payload map[string]any `json:"payload,omitempty"`

	// OwnerID and SessionID are opaque routing and ownership tags.
	OwnerID   string `json:"ownerId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`

	// CorrelationID is an optional cross-system tracing tag.
	CorrelationID string `json:"correlationId,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	Status    TaskStatus `json:"status"`

	// RetryCount is the number of retry attempts consumed so far.
	RetryCount int `json:"retryCount"`

	// MaxRetries bounds RetryCount. Once exceeded the task can never
	// re-enter the pending state.
	MaxRetries int `json:"maxRetries"`

	// Timeout bounds both queue wait and processor execution.
	Timeout time.Duration `json:"timeout"`
}

// NewTask creates a pending task with a fresh ID and defaulted limits.
func NewTask(payload map[string]any, ownerID, sessionID string) (*Task, error) {
	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return &Task{
		ID:         id,
		Payload:    maps.Clone(payload),
		OwnerID:    ownerID,
		SessionID:  sessionID,
		CreatedAt:  time.Now(),
		Status:     TaskStatusPending,
		MaxRetries: DefaultMaxRetries,
		Timeout:    DefaultTaskTimeout,
	}, nil
}

// Validate checks the task's structural invariants.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status: %q", t.Status)
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Deadline returns the moment the task expires, measured from creation.
func (t *Task) Deadline() time.Time {
	return t.CreatedAt.Add(t.Timeout)
}

// Clone returns a deep copy of the task so callers can hand it across
// goroutines without racing the owning worker.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Payload = maps.Clone(t.Payload)
	return &clone
}

// DeadLetterEntry records a permanently failed task for diagnostics. Entries
// are append-only; the engine never mutates or removes them.
type DeadLetterEntry struct {
	TaskID     string         `json:"taskId"`
	Error      string         `json:"error"`
	RetryCount int            `json:"retryCount"`
	FailedAt   time.Time      `json:"failedAt"`
	OwnerID    string         `json:"ownerId,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}
