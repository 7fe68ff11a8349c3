// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package memory provides in-process implementations of the auth storage
// interfaces. They are safe for concurrent use but hold no state across
// restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/auth"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*auth.User
	now    func() time.Time
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID: 1,
		users:  make(map[int64]*auth.User),
		now:    time.Now,
	}
}

// Add stores a new user.
func (r *UserRepository) Add(_ context.Context, email, hashedPassword string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return nil, oops.Code("USER_EMAIL_TAKEN").With("email", email).Wrap(auth.ErrConflict)
		}
	}

	now := r.now().UTC()
	u := &auth.User{
		ID:             r.nextID,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.users[u.ID] = u
	r.nextID++
	return clone(u), nil
}

// Find returns the lowest-id user matching criteria.
func (r *UserRepository) Find(ctx context.Context, criteria auth.Criteria) (*auth.User, error) {
	users, err := r.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, oops.Code("USER_NOT_FOUND").With("criteria", criteria.Keys()).Wrap(auth.ErrNotFound)
	}
	return users[0], nil
}

// Search returns all users matching criteria ordered by id.
func (r *UserRepository) Search(_ context.Context, criteria auth.Criteria) ([]*auth.User, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*auth.User{}
	for id := int64(1); id < r.nextID; id++ {
		u, ok := r.users[id]
		if !ok || !matches(u, criteria) {
			continue
		}
		result = append(result, clone(u))
	}
	return result, nil
}

// Update applies fields to the user atomically.
func (r *UserRepository) Update(_ context.Context, id int64, fields auth.Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}

	// Check every unique column before touching the record.
	for _, name := range []string{auth.FieldEmail, auth.FieldSessionID, auth.FieldResetToken} {
		v, ok := fields.Value(name).(string)
		if !ok {
			continue
		}
		for _, other := range r.users {
			if other.ID != id && value(other, name) == v {
				return oops.Code("USER_UNIQUE_VIOLATION").With("field", name).Wrap(auth.ErrConflict)
			}
		}
	}

	updated := clone(u)
	for _, name := range fields.Keys() {
		apply(updated, name, fields.Value(name))
	}
	updated.UpdatedAt = r.now().UTC()
	r.users[id] = updated
	return nil
}

func matches(u *auth.User, criteria auth.Criteria) bool {
	for _, name := range criteria.Keys() {
		if value(u, name) != criteria.Value(name) {
			return false
		}
	}
	return true
}

// value returns the comparable value of a queryable field; NULL columns
// return nil so they never equal a string criterion.
func value(u *auth.User, name string) any {
	switch name {
	case auth.FieldID:
		return u.ID
	case auth.FieldEmail:
		return u.Email
	case auth.FieldHashedPassword:
		return u.HashedPassword
	case auth.FieldSessionID:
		if u.SessionID == nil {
			return nil
		}
		return *u.SessionID
	case auth.FieldResetToken:
		if u.ResetToken == nil {
			return nil
		}
		return *u.ResetToken
	}
	return nil
}

func apply(u *auth.User, name string, v any) {
	switch name {
	case auth.FieldEmail:
		u.Email = v.(string)
	case auth.FieldHashedPassword:
		u.HashedPassword = v.(string)
	case auth.FieldSessionID:
		u.SessionID = stringPtr(v)
	case auth.FieldResetToken:
		u.ResetToken = stringPtr(v)
	case auth.FieldSessionCreatedAt:
		if t, ok := v.(time.Time); ok {
			u.SessionCreatedAt = &t
		} else {
			u.SessionCreatedAt = nil
		}
	}
}

func stringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func clone(u *auth.User) *auth.User {
	c := *u
	if u.SessionID != nil {
		s := *u.SessionID
		c.SessionID = &s
	}
	if u.ResetToken != nil {
		s := *u.ResetToken
		c.ResetToken = &s
	}
	if u.SessionCreatedAt != nil {
		t := *u.SessionCreatedAt
		c.SessionCreatedAt = &t
	}
	return &c
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
