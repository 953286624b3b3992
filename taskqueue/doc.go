// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskqueue implements the bounded in-process task queue that moves
// agent work off the request path. An Engine owns a fixed worker pool, a live
// task table, retry scheduling with capped exponential backoff, an append-only
// dead-letter log, and result delivery via callbacks or per-task watch
// channels.
//
// Enqueue is the only synchronous surface: a full queue is reported to the
// caller as ErrQueueFull after a bounded wait. Every other failure mode is
// observed asynchronously through callbacks, watch channels, metrics, or the
// dead-letter log; nothing in this package is allowed to crash the host
// process.
package taskqueue
