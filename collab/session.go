// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import "sort"

// Session is a point-in-time snapshot of one shared conversation session.
// The owner is implicitly always a member and is not repeated in
// MemberUserIDs.
type Session struct {
	ID    string `json:"sessionId"`
	Owner User   `json:"owner"`

	// MemberUserIDs lists non-owner members in sorted order.
	MemberUserIDs []string `json:"memberUserIds"`

	// CurrentConversationID is the last-active conversation used for
	// auto-navigation of newly joined members.
	CurrentConversationID string `json:"currentConversationId,omitempty"`
}

// sessionState is the manager's mutable record behind Session snapshots.
type sessionState struct {
	id                  string
	owner               User
	members             map[string]struct{}
	currentConversation string
}

func newSessionState(id string, owner User) *sessionState {
	return &sessionState{
		id:      id,
		owner:   owner,
		members: make(map[string]struct{}),
	}
}

// snapshot returns a copy safe to hand to callers.
func (s *sessionState) snapshot() *Session {
	members := make([]string, 0, len(s.members))
	for id := range s.members {
		members = append(members, id)
	}
	sort.Strings(members)

	return &Session{
		ID:                    s.id,
		Owner:                 s.owner,
		MemberUserIDs:         members,
		CurrentConversationID: s.currentConversation,
	}
}

// memberCount is the total member count including the owner.
func (s *sessionState) memberCount() int {
	return len(s.members) + 1
}
