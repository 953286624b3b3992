// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthub/coord"
)

// Defaults applied by New when the corresponding option is not supplied.
const (
	DefaultWorkers        = 5
	DefaultQueueSize      = 100
	DefaultEnqueueTimeout = 5 * time.Second
	DefaultDrainTimeout   = 10 * time.Second
	DefaultMaxBackoff     = 16 * time.Second
)

// ResultCallback is invoked once when a task completes successfully.
type ResultCallback func(task *coord.Task, result any)

// ErrorCallback is invoked once when a task terminates without a result.
type ErrorCallback func(task *coord.Task, err error)

// Option configures an Engine.
type Option func(*options) error

// options holds all Engine configuration.
type options struct {
	workers        int
	queueSize      int
	enqueueTimeout time.Duration
	drainTimeout   time.Duration
	maxBackoff     time.Duration
	retention      time.Duration
	onResult       ResultCallback
	onError        ErrorCallback
	logger         *slog.Logger
}

func defaultOptions() *options {
	return &options{
		workers:        DefaultWorkers,
		queueSize:      DefaultQueueSize,
		enqueueTimeout: DefaultEnqueueTimeout,
		drainTimeout:   DefaultDrainTimeout,
		maxBackoff:     DefaultMaxBackoff,
		logger:         slog.Default(),
	}
}

// WithWorkers sets the worker pool width.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("workers must be positive, got %d", n)
		}
		o.workers = n
		return nil
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("queue size must be positive, got %d", n)
		}
		o.queueSize = n
		return nil
	}
}

// WithEnqueueTimeout bounds how long Enqueue waits on a full queue before
// failing with ErrQueueFull.
func WithEnqueueTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("enqueue timeout must be positive, got %v", d)
		}
		o.enqueueTimeout = d
		return nil
	}
}

// WithDrainTimeout bounds how long Shutdown waits for the queue to empty.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("drain timeout must be positive, got %v", d)
		}
		o.drainTimeout = d
		return nil
	}
}

// WithMaxBackoff caps the exponential retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("max backoff must be positive, got %v", d)
		}
		o.maxBackoff = d
		return nil
	}
}

// WithRetention enables the terminal-task sweep: tasks that reached a
// terminal state more than d ago are pruned from the live table. Zero (the
// default) disables the sweep and terminal tasks stay resident.
func WithRetention(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("retention cannot be negative, got %v", d)
		}
		o.retention = d
		return nil
	}
}

// WithOnResult registers the success callback.
func WithOnResult(cb ResultCallback) Option {
	return func(o *options) error {
		o.onResult = cb
		return nil
	}
}

// WithOnError registers the failure callback.
func WithOnError(cb ErrorCallback) Option {
	return func(o *options) error {
		o.onError = cb
		return nil
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// TaskOption overrides per-task limits at enqueue time.
type TaskOption func(*coord.Task)

// WithTaskTimeout overrides the task's deadline budget.
func WithTaskTimeout(d time.Duration) TaskOption {
	return func(t *coord.Task) {
		if d > 0 {
			t.Timeout = d
		}
	}
}

// WithTaskMaxRetries overrides the task's retry budget.
func WithTaskMaxRetries(n int) TaskOption {
	return func(t *coord.Task) {
		if n >= 0 {
			t.MaxRetries = n
		}
	}
}

// WithCorrelationID tags the task for cross-system tracing.
func WithCorrelationID(id string) TaskOption {
	return func(t *coord.Task) {
		t.CorrelationID = id
	}
}
