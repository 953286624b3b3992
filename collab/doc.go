// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

// Package collab tracks invitations and membership for shared conversation
// sessions. Invitations carry a fixed TTL and are expired lazily on access;
// there is no background sweep. Misuse (wrong recipient, missing or expired
// invitation, non-owner operations) is reported through ok-bools rather than
// errors so callers can branch without error handling.
package collab
