// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time snapshot of engine counters.
type Metrics struct {
	Enqueued  uint64 `json:"enqueued"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	TimedOut  uint64 `json:"timedOut"`
	Retried   uint64 `json:"retried"`

	// ProcessingTime is the cumulative wall time spent inside processor
	// invocations; divide by Completed for mean latency.
	ProcessingTime time.Duration `json:"processingTimeNs"`

	QueueDepth    int `json:"queueDepth"`
	LiveTasks     int `json:"liveTasks"`
	DeadLetters   int `json:"deadLetters"`
	ActiveWorkers int `json:"activeWorkers"`
}

// counters holds the engine's lock-free counters so metrics reads never
// block workers.
type counters struct {
	enqueued      atomic.Uint64
	completed     atomic.Uint64
	failed        atomic.Uint64
	timedOut      atomic.Uint64
	retried       atomic.Uint64
	processingNs  atomic.Int64
	activeWorkers atomic.Int32
}

// Metrics returns a snapshot of the engine's counters and gauge values.
func (e *Engine) Metrics() Metrics {
	e.mu.RLock()
	live := len(e.tasks)
	e.mu.RUnlock()

	e.dlMu.Lock()
	dead := len(e.deadLetters)
	e.dlMu.Unlock()

	return Metrics{
		Enqueued:       e.counters.enqueued.Load(),
		Completed:      e.counters.completed.Load(),
		Failed:         e.counters.failed.Load(),
		TimedOut:       e.counters.timedOut.Load(),
		Retried:        e.counters.retried.Load(),
		ProcessingTime: time.Duration(e.counters.processingNs.Load()),
		QueueDepth:     len(e.queue),
		LiveTasks:      live,
		DeadLetters:    dead,
		ActiveWorkers:  int(e.counters.activeWorkers.Load()),
	}
}
