// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Session is the server-side record of an issued session id.
type Session struct {
	UserID    int64
	CreatedAt time.Time
}

// ExpiredAt reports whether the session is past its lifetime at t.
// A non-positive duration never expires.
func (s Session) ExpiredAt(t time.Time, duration time.Duration) bool {
	if duration <= 0 {
		return false
	}
	return t.After(s.CreatedAt.Add(duration))
}

// SessionStore maps session ids to Session records.
type SessionStore interface {
	// Put stores sess under sessionID, replacing any existing entry.
	Put(ctx context.Context, sessionID string, sess Session) error

	// Get returns the session stored under sessionID or ErrNotFound.
	Get(ctx context.Context, sessionID string) (Session, error)

	// Delete removes sessionID. Deleting an absent id is not an error.
	Delete(ctx context.Context, sessionID string) error
}

// ParseSessionDuration parses a lifetime in whole seconds. Empty,
// unparsable and non-positive values yield 0, meaning sessions never expire.
func ParseSessionDuration(s string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// SessionManager issues, resolves and destroys session ids.
type SessionManager struct {
	users    UserRepository
	store    SessionStore
	duration time.Duration
	now      func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionDuration sets the session lifetime. Zero or negative means
// sessions never expire.
func WithSessionDuration(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.duration = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(users UserRepository, store SessionStore, opts ...SessionOption) (*SessionManager, error) {
	if users == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("user repository is required")
	}
	if store == nil {
		return nil, oops.Code("SESSION_INVALID_CONFIG").Errorf("session store is required")
	}
	m := &SessionManager{
		users: users,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Duration returns the configured session lifetime.
func (m *SessionManager) Duration() time.Duration {
	return m.duration
}

// CreateSession issues a new session id for userID. Any earlier session of
// the same user stops resolving.
func (m *SessionManager) CreateSession(ctx context.Context, userID int64) (string, error) {
	if userID == 0 {
		return "", oops.Code("SESSION_EMPTY_USER").Wrap(ErrEmptyUserID)
	}

	user, err := m.users.Find(ctx, ByID(userID))
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").With("user_id", userID).Wrap(err)
	}

	sessionID := uuid.NewString()
	createdAt := m.now().UTC()

	if err := m.users.Update(ctx, userID, Fields{
		FieldSessionID:        sessionID,
		FieldSessionCreatedAt: createdAt,
	}); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").With("user_id", userID).Wrap(err)
	}

	if err := m.store.Put(ctx, sessionID, Session{UserID: userID, CreatedAt: createdAt}); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").With("user_id", userID).Wrap(err)
	}

	if user.SessionID != nil && *user.SessionID != sessionID {
		// The old id no longer matches the user row, so a failed delete
		// leaves only an unreachable entry.
		_ = m.store.Delete(ctx, *user.SessionID) //nolint:errcheck // stale entry cannot resolve
	}

	return sessionID, nil
}

// ResolveUser returns the user holding sessionID. Expired sessions report
// ErrSessionExpired and are left in the store.
func (m *SessionManager) ResolveUser(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrapf(ErrSessionNotFound, "session id is empty")
	}

	sess, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrSessionNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").With("operation", "get session").Wrap(err)
	}

	if sess.ExpiredAt(m.now(), m.duration) {
		return nil, oops.Code("SESSION_EXPIRED").
			With("created_at", sess.CreatedAt).
			With("duration", m.duration.String()).
			Wrap(ErrSessionExpired)
	}

	user, err := m.users.Find(ctx, Criteria{FieldSessionID: sessionID})
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrSessionNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_LOOKUP_FAILED").With("operation", "find user by session").Wrap(err)
	}
	if user.ID != sess.UserID {
		return nil, oops.Code("SESSION_NOT_FOUND").With("user_id", user.ID).Wrap(ErrSessionNotFound)
	}

	return user, nil
}

// DestroySession clears the session of userID. It reports
// ErrSessionNotFound when the user does not exist or holds no session.
func (m *SessionManager) DestroySession(ctx context.Context, userID int64) error {
	if userID == 0 {
		return oops.Code("SESSION_EMPTY_USER").Wrap(ErrEmptyUserID)
	}

	user, err := m.users.Find(ctx, ByID(userID))
	if errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_NOT_FOUND").With("user_id", userID).Wrap(ErrSessionNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").With("user_id", userID).Wrap(err)
	}
	if user.SessionID == nil {
		return oops.Code("SESSION_NOT_FOUND").With("user_id", userID).Wrap(ErrSessionNotFound)
	}

	if err := m.users.Update(ctx, userID, Fields{
		FieldSessionID:        nil,
		FieldSessionCreatedAt: nil,
	}); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").With("user_id", userID).Wrap(err)
	}

	if err := m.store.Delete(ctx, *user.SessionID); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").With("user_id", userID).Wrap(err)
	}

	return nil
}
