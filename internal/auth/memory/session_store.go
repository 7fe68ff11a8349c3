// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package memory

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/auth"
)

// SessionStore implements auth.SessionStore with an owned map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]auth.Session)}
}

// Put stores sess under sessionID.
func (s *SessionStore) Put(_ context.Context, sessionID string, sess auth.Session) error {
	if sessionID == "" {
		return oops.Code("SESSION_INVALID_ID").Wrapf(auth.ErrValidation, "session id cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
	return nil
}

// Get returns the session stored under sessionID.
func (s *SessionStore) Get(_ context.Context, sessionID string) (auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return auth.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return sess, nil
}

// Delete removes sessionID.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
