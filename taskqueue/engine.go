// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agenthub/coord"
)

// Processor performs one task's work. It is invoked from worker context under
// a deadline derived from the task's timeout; implementations should honor
// ctx, but a processor that ignores it is only abandoned, never preempted.
type Processor func(ctx context.Context, task *coord.Task) (any, error)

// Outcome is the terminal result of one task, delivered through Watch
// channels.
type Outcome struct {
	Task   *coord.Task
	Result any
	Err    error
}

// Engine is the bounded task queue and its fixed worker pool. Construct with
// New, launch with Start, and stop with Shutdown. All methods are safe for
// concurrent use.
type Engine struct {
	opts   *options
	logger *slog.Logger

	queue chan *coord.Task

	// mu guards the live task table, the finished index used by the
	// retention sweep, and the watcher registry.
	mu       sync.RWMutex
	tasks    map[string]*coord.Task
	finished map[string]time.Time
	watchers map[string][]chan Outcome

	dlMu        sync.Mutex
	deadLetters []coord.DeadLetterEntry

	counters counters

	runMu     sync.Mutex
	running   bool
	draining  bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	processor Processor
}

// New creates an engine with the given options. The engine does not process
// anything until Start is called, but Enqueue is usable immediately.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return &Engine{
		opts:     o,
		logger:   o.logger.With("component", "taskqueue"),
		queue:    make(chan *coord.Task, o.queueSize),
		tasks:    make(map[string]*coord.Task),
		finished: make(map[string]time.Time),
		watchers: make(map[string][]chan Outcome),
	}, nil
}

// Enqueue creates a pending task and places it on the queue, waiting up to
// the configured enqueue timeout when the queue is at capacity. On timeout
// the task is evicted from the live table and ErrQueueFull is returned, so a
// rejected enqueue leaves no trace.
func (e *Engine) Enqueue(ctx context.Context, payload map[string]any, ownerID, sessionID string, opts ...TaskOption) (string, error) {
	e.runMu.Lock()
	draining := e.draining
	e.runMu.Unlock()
	if draining {
		return "", ErrEngineClosed
	}

	task, err := coord.NewTask(payload, ownerID, sessionID)
	if err != nil {
		return "", err
	}
	for _, opt := range opts {
		opt(task)
	}
	if err := task.Validate(); err != nil {
		return "", err
	}

	e.mu.Lock()
	e.tasks[task.ID] = task
	e.mu.Unlock()

	timer := time.NewTimer(e.opts.enqueueTimeout)
	defer timer.Stop()

	select {
	case e.queue <- task:
		e.counters.enqueued.Add(1)
		e.logger.Debug("task enqueued",
			"task_id", task.ID,
			"owner_id", ownerID,
			"queue_depth", len(e.queue))
		return task.ID, nil
	case <-timer.C:
		e.evict(task.ID)
		e.logger.Warn("enqueue rejected, queue full",
			"task_id", task.ID,
			"queue_depth", len(e.queue))
		return "", ErrQueueFull
	case <-ctx.Done():
		e.evict(task.ID)
		return "", ctx.Err()
	}
}

// Start launches the worker pool. It returns ErrEngineRunning if the engine
// was already started and ErrNoProcessor when processor is nil.
func (e *Engine) Start(processor Processor) error {
	if processor == nil {
		return ErrNoProcessor
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		return ErrEngineRunning
	}
	e.running = true
	e.draining = false
	e.processor = processor
	e.stopCh = make(chan struct{})

	for i := 0; i < e.opts.workers; i++ {
		e.wg.Add(1)
		go e.workerLoop(i)
	}
	if e.opts.retention > 0 {
		e.wg.Add(1)
		go e.sweepLoop()
	}

	e.logger.Info("engine started", "workers", e.opts.workers, "queue_size", e.opts.queueSize)
	return nil
}

// Shutdown stops the engine: new enqueues are rejected, the queue is given a
// bounded window (the drain timeout, or ctx if it expires sooner) to empty,
// and workers then finish their in-flight task and exit. A queue that is
// still non-empty after the window is logged and abandoned; draining is a
// soft guarantee.
//
// Only the first caller performs the teardown; concurrent or repeated
// Shutdown calls return immediately.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.runMu.Lock()
	if !e.running || e.draining {
		e.runMu.Unlock()
		return nil
	}
	e.draining = true
	e.runMu.Unlock()

	drainDeadline := time.NewTimer(e.opts.drainTimeout)
	defer drainDeadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

drain:
	for len(e.queue) > 0 {
		select {
		case <-tick.C:
		case <-drainDeadline.C:
			break drain
		case <-ctx.Done():
			break drain
		}
	}
	if remaining := len(e.queue); remaining > 0 {
		e.logger.Warn("queue not drained before shutdown", "remaining", remaining)
	}

	close(e.stopCh)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.runMu.Lock()
	e.running = false
	e.runMu.Unlock()

	e.logger.Info("engine stopped")
	return err
}

// Get returns a copy of the task with the given ID from the live table.
func (e *Engine) Get(taskID string) (*coord.Task, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, coord.TaskNotFoundError{TaskID: taskID}
	}
	return task.Clone(), nil
}

// List returns copies of all live tasks for an owner. An empty ownerID
// matches every task.
func (e *Engine) List(ownerID string) []*coord.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*coord.Task
	for _, task := range e.tasks {
		if ownerID != "" && task.OwnerID != ownerID {
			continue
		}
		out = append(out, task.Clone())
	}
	return out
}

// DeadLetters returns a snapshot of the dead-letter log in append order.
func (e *Engine) DeadLetters() []coord.DeadLetterEntry {
	e.dlMu.Lock()
	defer e.dlMu.Unlock()

	out := make([]coord.DeadLetterEntry, len(e.deadLetters))
	copy(out, e.deadLetters)
	return out
}

// Watch returns a channel that receives the task's terminal outcome and is
// then closed. The channel is buffered, so the engine never blocks on an
// abandoned watcher. Watching a task that already terminated returns
// ErrTaskFinished; watching an unknown task returns a not-found error.
func (e *Engine) Watch(taskID string) (<-chan Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[taskID]
	if !ok {
		return nil, coord.TaskNotFoundError{TaskID: taskID}
	}
	if task.Status.Terminal() {
		return nil, ErrTaskFinished
	}

	ch := make(chan Outcome, 1)
	e.watchers[taskID] = append(e.watchers[taskID], ch)
	return ch, nil
}

// evict removes a task that never made it onto the queue.
func (e *Engine) evict(taskID string) {
	e.mu.Lock()
	delete(e.tasks, taskID)
	delete(e.watchers, taskID)
	e.mu.Unlock()
}

// sweepLoop prunes terminal tasks older than the retention window.
func (e *Engine) sweepLoop() {
	defer e.wg.Done()

	interval := e.opts.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			e.sweep(now)
		}
	}
}

func (e *Engine) sweep(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var pruned int
	for id, at := range e.finished {
		if now.Sub(at) < e.opts.retention {
			continue
		}
		delete(e.tasks, id)
		delete(e.finished, id)
		delete(e.watchers, id)
		pruned++
	}
	if pruned > 0 {
		e.logger.Debug("pruned terminal tasks", "count", pruned)
	}
}
