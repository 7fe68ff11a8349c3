// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package redis implements auth.SessionStore on Redis.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/auth"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "authkeep"

const (
	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
)

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore keeps one hash per session id. Keys carry no TTL; expiry is
// evaluated by the session manager so expired sessions stay observable.
type SessionStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewSessionStore creates a SessionStore. An empty prefix uses DefaultPrefix.
func NewSessionStore(rdb redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{rdb: rdb, prefix: prefix}
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + ":session:" + sessionID
}

// Put stores sess under sessionID.
func (s *SessionStore) Put(ctx context.Context, sessionID string, sess auth.Session) error {
	if sessionID == "" {
		return oops.Code("SESSION_INVALID_ID").Wrapf(auth.ErrValidation, "session id is empty")
	}

	key := s.key(sessionID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldUserID, strconv.FormatInt(sess.UserID, 10),
			fieldCreatedAt, strconv.FormatInt(sess.CreatedAt.UnixNano(), 10),
		)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_PUT_FAILED").
			With("operation", "store session").
			With("user_id", sess.UserID).
			Wrap(err)
	}
	return nil
}

// Get returns the session stored under sessionID.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (auth.Session, error) {
	values, err := s.rdb.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return auth.Session{}, oops.Code("SESSION_GET_FAILED").With("operation", "load session").Wrap(err)
	}
	if len(values) == 0 {
		return auth.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	userID, err := strconv.ParseInt(values[fieldUserID], 10, 64)
	if err != nil {
		return auth.Session{}, oops.Code("SESSION_CORRUPT").With("field", fieldUserID).Wrap(err)
	}
	nanos, err := strconv.ParseInt(values[fieldCreatedAt], 10, 64)
	if err != nil {
		return auth.Session{}, oops.Code("SESSION_CORRUPT").With("field", fieldCreatedAt).Wrap(err)
	}

	return auth.Session{UserID: userID, CreatedAt: time.Unix(0, nanos).UTC()}, nil
}

// Delete removes sessionID.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "delete session").Wrap(err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return oops.Code("SESSION_STORE_UNAVAILABLE").Wrap(err)
	}
	return nil
}
