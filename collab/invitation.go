// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import "time"

// InvitationTTL is the fixed lifetime of an invitation from creation.
const InvitationTTL = 5 * time.Minute

// User identifies one platform user.
type User struct {
	ID   string `json:"userId"`
	Name string `json:"userName,omitempty"`
}

// Invitation is a time-limited offer for one user to join a shared session.
// At most one live invitation exists per (session, from, to) triple; creating
// a duplicate returns the existing one.
type Invitation struct {
	ID        string    `json:"invitationId"`
	SessionID string    `json:"sessionId"`
	From      User      `json:"from"`
	To        User      `json:"to"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the invitation is past its expiry at the given
// moment.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// clone returns a copy safe to hand to callers.
func (i *Invitation) clone() *Invitation {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
