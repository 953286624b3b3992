// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue stays at capacity
	// for the whole enqueue timeout. This is the engine's backpressure
	// signal to the caller.
	ErrQueueFull = errors.New("task queue is full")

	// ErrEngineClosed is returned when enqueueing into an engine that is
	// shutting down or already stopped.
	ErrEngineClosed = errors.New("task engine is closed")

	// ErrEngineRunning is returned by Start when the engine was already
	// started.
	ErrEngineRunning = errors.New("task engine is already running")

	// ErrNoProcessor is returned by Start when no processor is supplied.
	ErrNoProcessor = errors.New("processor cannot be nil")

	// ErrTaskFinished is returned by Watch when the task already reached a
	// terminal state and its outcome has been delivered.
	ErrTaskFinished = errors.New("task already reached a terminal state")

	// errProcessingTimeout marks a processor invocation that exceeded the
	// task's deadline.
	errProcessingTimeout = errors.New("processing exceeded task timeout")

	// errQueueWaitTimeout marks a task that expired before any worker
	// picked it up.
	errQueueWaitTimeout = errors.New("task expired while waiting in queue")
)

// PermanentError wraps a processor error that must not be retried. The engine
// dead-letters the task immediately, regardless of its remaining retry
// budget.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func isPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
