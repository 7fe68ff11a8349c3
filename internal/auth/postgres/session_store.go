// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/auth"
)

// SessionStore implements auth.SessionStore on the session_id and
// session_created_at columns of the users table, so the user row is the
// only record of a session.
type SessionStore struct {
	pool Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Put binds sessionID to the user in sess.
func (s *SessionStore) Put(ctx context.Context, sessionID string, sess auth.Session) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE users
		SET session_id = $1, session_created_at = $2, updated_at = now()
		WHERE id = $3
	`, sessionID, sess.CreatedAt, sess.UserID)
	if isUniqueViolation(err) {
		return oops.Code("SESSION_ID_TAKEN").
			With("user_id", sess.UserID).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("SESSION_PUT_FAILED").
			With("operation", "store session").
			With("user_id", sess.UserID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", sess.UserID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Get returns the session bound to sessionID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (auth.Session, error) {
	var (
		sess      auth.Session
		createdAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_created_at
		FROM users
		WHERE session_id = $1
	`, sessionID).Scan(&sess.UserID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return auth.Session{}, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			Wrap(err)
	}
	if createdAt != nil {
		sess.CreatedAt = *createdAt
	}
	return sess, nil
}

// Delete unbinds sessionID from whichever user holds it.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users
		SET session_id = NULL, session_created_at = NULL, updated_at = now()
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
