// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agenthub/coord"
)

// workerLoop is the body of one pool worker. It runs until the stop channel
// closes; a failure in one worker never takes down the others because every
// task is processed under panic recovery.
func (e *Engine) workerLoop(id int) {
	defer e.wg.Done()

	logger := e.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		select {
		case <-e.stopCh:
			logger.Debug("worker stopped")
			return
		case task := <-e.queue:
			e.counters.activeWorkers.Add(1)
			e.process(task)
			e.counters.activeWorkers.Add(-1)
		}
	}
}

// process runs one dequeued task to a retry or terminal transition.
func (e *Engine) process(task *coord.Task) {
	// Tasks that expired while queued are failed without touching the
	// processor.
	if time.Now().After(task.Deadline()) {
		e.handleFailure(task, errQueueWaitTimeout)
		return
	}

	e.mu.Lock()
	task.Status = coord.TaskStatusProcessing
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), task.Timeout)
	defer cancel()

	start := time.Now()
	result, err := e.invoke(ctx, task)
	e.counters.processingNs.Add(int64(time.Since(start)))

	if err != nil {
		e.handleFailure(task, err)
		return
	}
	e.complete(task, result)
}

// invoke calls the processor in its own goroutine so the worker can enforce
// the task deadline even against a processor that ignores ctx. An abandoned
// invocation keeps running until it returns on its own; it is never
// preempted.
func (e *Engine) invoke(ctx context.Context, task *coord.Task) (any, error) {
	type invokeResult struct {
		value any
		err   error
	}
	resultCh := make(chan invokeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- invokeResult{err: fmt.Errorf("processor panicked: %v", r)}
			}
		}()
		value, err := e.processor(ctx, task.Clone())
		resultCh <- invokeResult{value: value, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, errProcessingTimeout
	}
}

// handleFailure routes a failed or timed-out attempt to either the retry
// path or a terminal transition.
func (e *Engine) handleFailure(task *coord.Task, cause error) {
	timedOut := errors.Is(cause, errProcessingTimeout) || errors.Is(cause, errQueueWaitTimeout)

	e.mu.Lock()
	retryable := !isPermanent(cause) && task.RetryCount < task.MaxRetries
	if retryable {
		task.RetryCount++
		task.Status = coord.TaskStatusPending
	}
	retryCount := task.RetryCount
	e.mu.Unlock()

	if retryable {
		e.scheduleRetry(task, retryCount, cause)
		return
	}

	status := coord.TaskStatusFailed
	if timedOut {
		status = coord.TaskStatusTimedOut
	}
	e.fail(task, status, cause)
}

// scheduleRetry re-enqueues the task after a capped exponential backoff
// without occupying a worker slot.
func (e *Engine) scheduleRetry(task *coord.Task, retryCount int, cause error) {
	shift := min(retryCount, 10)
	delay := min(time.Duration(1<<shift)*time.Second, e.opts.maxBackoff)
	e.counters.retried.Add(1)
	e.logger.Debug("retry scheduled",
		"task_id", task.ID,
		"retry_count", retryCount,
		"delay", delay,
		"cause", cause)

	time.AfterFunc(delay, func() {
		select {
		case e.queue <- task:
		case <-e.stopCh:
			e.fail(task, coord.TaskStatusFailed, fmt.Errorf("retry abandoned: %w", ErrEngineClosed))
		}
	})
}

// complete drives the task to its successful terminal state.
func (e *Engine) complete(task *coord.Task, result any) {
	if !e.markTerminal(task, coord.TaskStatusCompleted) {
		return
	}
	e.counters.completed.Add(1)
	e.deliver(task, result, nil)
}

// fail drives the task to a failed terminal state and dead-letters it.
func (e *Engine) fail(task *coord.Task, status coord.TaskStatus, cause error) {
	if !e.markTerminal(task, status) {
		return
	}
	if status == coord.TaskStatusTimedOut {
		e.counters.timedOut.Add(1)
	} else {
		e.counters.failed.Add(1)
	}

	entry := coord.DeadLetterEntry{
		TaskID:     task.ID,
		Error:      cause.Error(),
		RetryCount: task.RetryCount,
		FailedAt:   time.Now(),
		OwnerID:    task.OwnerID,
		SessionID:  task.SessionID,
		Payload:    task.Payload,
	}
	e.dlMu.Lock()
	e.deadLetters = append(e.deadLetters, entry)
	e.dlMu.Unlock()

	e.logger.Warn("task dead-lettered",
		"task_id", task.ID,
		"retry_count", task.RetryCount,
		"error", cause)

	e.deliver(task, nil, cause)
}

// markTerminal transitions the task to a terminal status exactly once. It
// returns false if the task already terminated, which suppresses any second
// delivery.
func (e *Engine) markTerminal(task *coord.Task, status coord.TaskStatus) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if task.Status.Terminal() {
		return false
	}
	task.Status = status
	e.finished[task.ID] = time.Now()
	return true
}

// deliver fans the terminal outcome out to watch channels and the registered
// callback. Exactly one of the result/error callbacks fires per task, and a
// panicking callback is logged, never escalated into task state.
func (e *Engine) deliver(task *coord.Task, result any, cause error) {
	e.mu.Lock()
	watchers := e.watchers[task.ID]
	delete(e.watchers, task.ID)
	e.mu.Unlock()

	snapshot := task.Clone()
	for _, ch := range watchers {
		ch <- Outcome{Task: snapshot, Result: result, Err: cause}
		close(ch)
	}

	switch {
	case cause == nil && e.opts.onResult != nil:
		e.safeCall(func() { e.opts.onResult(snapshot, result) })
	case cause != nil && e.opts.onError != nil:
		e.safeCall(func() { e.opts.onError(snapshot, cause) })
	}
}

func (e *Engine) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("callback panicked", "panic", r)
		}
	}()
	fn()
}
