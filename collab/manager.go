// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks invitations and session membership for multi-user shared
// conversations. All methods are safe for concurrent use.
type Manager struct {
	logger *slog.Logger
	now    func() time.Time
	ttl    time.Duration

	// mu guards all three maps; membership mutations update the
	// user→sessions index in the same critical section.
	mu           sync.RWMutex
	invitations  map[string]*Invitation
	sessions     map[string]*sessionState
	userSessions map[string]map[string]struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager) error

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		m.logger = logger
		return nil
	}
}

// WithClock overrides the expiry clock.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		m.now = clock
		return nil
	}
}

// NewManager creates an empty session manager.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		logger:       slog.Default(),
		now:          time.Now,
		ttl:          InvitationTTL,
		invitations:  make(map[string]*Invitation),
		sessions:     make(map[string]*sessionState),
		userSessions: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "collab")
	return m, nil
}

// CreateInvitation invites to into the session. If a live invitation for the
// same (session, from, to) triple already exists it is returned instead of a
// new record.
func (m *Manager) CreateInvitation(sessionID string, from, to User) (*Invitation, error) {
	if sessionID == "" || from.ID == "" || to.ID == "" {
		return nil, fmt.Errorf("session ID, inviter, and invitee are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.cleanupExpiredLocked(now)

	for _, inv := range m.invitations {
		if inv.SessionID == sessionID && inv.From.ID == from.ID && inv.To.ID == to.ID {
			return inv.clone(), nil
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	inv := &Invitation{
		ID:        id.String(),
		SessionID: sessionID,
		From:      from,
		To:        to,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.invitations[inv.ID] = inv

	m.logger.Info("invitation created",
		"invitation_id", inv.ID,
		"session_id", sessionID,
		"from", from.ID,
		"to", to.ID)
	return inv.clone(), nil
}

// GetInvitation returns the invitation if it exists and is still live.
// Expired invitations are removed on read.
func (m *Manager) GetInvitation(invitationID string) (*Invitation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.liveInvitationLocked(invitationID)
	if !ok {
		return nil, false
	}
	return inv.clone(), true
}

// ListPendingInvitations returns live invitations addressed to the user.
func (m *Manager) ListPendingInvitations(toUserID string) []*Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanupExpiredLocked(m.now())

	var out []*Invitation
	for _, inv := range m.invitations {
		if inv.To.ID == toUserID {
			out = append(out, inv.clone())
		}
	}
	return out
}

// AcceptInvitation joins the invited user to the session. It fails when the
// invitation is missing or expired, or when userID is not the invitee; a
// failed accept leaves the invitation intact. On success the session is
// created lazily with the inviter as owner, the user becomes a member, and
// the invitation is consumed.
func (m *Manager) AcceptInvitation(invitationID, userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.liveInvitationLocked(invitationID)
	if !ok || inv.To.ID != userID {
		return nil, false
	}

	state, exists := m.sessions[inv.SessionID]
	if !exists {
		state = newSessionState(inv.SessionID, inv.From)
		m.sessions[inv.SessionID] = state
		m.indexLocked(inv.From.ID, inv.SessionID)
	}

	state.members[userID] = struct{}{}
	m.indexLocked(userID, inv.SessionID)
	delete(m.invitations, invitationID)

	m.logger.Info("invitation accepted",
		"invitation_id", invitationID,
		"session_id", inv.SessionID,
		"user_id", userID)
	return state.snapshot(), true
}

// DeclineInvitation removes the invitation. The same recipient check applies
// as for accept.
func (m *Manager) DeclineInvitation(invitationID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.liveInvitationLocked(invitationID)
	if !ok || inv.To.ID != userID {
		return false
	}

	delete(m.invitations, invitationID)
	m.logger.Info("invitation declined", "invitation_id", invitationID, "user_id", userID)
	return true
}

// LeaveSession removes the user from the session. When the owner leaves, the
// whole session ends for every member; ownership never transfers.
func (m *Manager) LeaveSession(sessionID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return false
	}

	if state.owner.ID == userID {
		for memberID := range state.members {
			m.unindexLocked(memberID, sessionID)
		}
		m.unindexLocked(state.owner.ID, sessionID)
		delete(m.sessions, sessionID)
		m.logger.Info("session ended by owner", "session_id", sessionID, "owner", userID)
		return true
	}

	if _, member := state.members[userID]; !member {
		return false
	}
	delete(state.members, userID)
	m.unindexLocked(userID, sessionID)
	m.logger.Info("member left session", "session_id", sessionID, "user_id", userID)
	return true
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return state.snapshot(), true
}

// SessionsForUser returns snapshots of every session the user belongs to,
// owner or member, via the user→sessions index.
func (m *Manager) SessionsForUser(userID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for sessionID := range m.userSessions[userID] {
		if state, ok := m.sessions[sessionID]; ok {
			out = append(out, state.snapshot())
		}
	}
	return out
}

// UpdateCurrentConversation records where the group currently is.
// Last-writer-wins, no conflict resolution.
func (m *Manager) UpdateCurrentConversation(sessionID, conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	state.currentConversation = conversationID
	return true
}

// CurrentConversation returns the session's last-active conversation.
func (m *Manager) CurrentConversation(sessionID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok || state.currentConversation == "" {
		return "", false
	}
	return state.currentConversation, true
}

// IsCollaborativeSession reports whether the session exists and has more
// than one total member.
func (m *Manager) IsCollaborativeSession(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	return ok && state.memberCount() > 1
}

// liveInvitationLocked looks up an invitation, removing it if expired.
func (m *Manager) liveInvitationLocked(invitationID string) (*Invitation, bool) {
	inv, ok := m.invitations[invitationID]
	if !ok {
		return nil, false
	}
	if inv.Expired(m.now()) {
		delete(m.invitations, invitationID)
		m.logger.Debug("invitation expired", "invitation_id", invitationID)
		return nil, false
	}
	return inv, true
}

// cleanupExpiredLocked sweeps all expired invitations.
func (m *Manager) cleanupExpiredLocked(now time.Time) {
	for id, inv := range m.invitations {
		if inv.Expired(now) {
			delete(m.invitations, id)
		}
	}
}

func (m *Manager) indexLocked(userID, sessionID string) {
	if m.userSessions[userID] == nil {
		m.userSessions[userID] = make(map[string]struct{})
	}
	m.userSessions[userID][sessionID] = struct{}{}
}

func (m *Manager) unindexLocked(userID, sessionID string) {
	if set, ok := m.userSessions[userID]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.userSessions, userID)
		}
	}
}
