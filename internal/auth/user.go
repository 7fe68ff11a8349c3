// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package auth

import (
	"context"
	"slices"
	"time"

	"github.com/samber/oops"
)

// Recognized user fields for Criteria and Fields.
const (
	FieldID               = "id"
	FieldEmail            = "email"
	FieldHashedPassword   = "hashed_password"
	FieldSessionID        = "session_id"
	FieldSessionCreatedAt = "session_created_at"
	FieldResetToken       = "reset_token"
)

var (
	queryableFields = []string{FieldID, FieldEmail, FieldHashedPassword, FieldSessionID, FieldResetToken}
	updatableFields = []string{FieldEmail, FieldHashedPassword, FieldSessionID, FieldSessionCreatedAt, FieldResetToken}
)

// User is a registered account.
type User struct {
	ID               int64
	Email            string
	HashedPassword   string
	SessionID        *string
	SessionCreatedAt *time.Time
	ResetToken       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasSession reports whether the user currently holds sessionID.
func (u *User) HasSession(sessionID string) bool {
	return u.SessionID != nil && sessionID != "" && *u.SessionID == sessionID
}

// Criteria is an exact-match lookup over recognized user fields.
// Values are int64 (or int) for "id" and string for everything else.
type Criteria map[string]any

// ByEmail returns criteria matching a single email.
func ByEmail(email string) Criteria { return Criteria{FieldEmail: email} }

// ByID returns criteria matching a single id.
func ByID(id int64) Criteria { return Criteria{FieldID: id} }

// Validate reports ErrInvalidQuery for empty criteria, unknown field names
// and values of the wrong type.
func (c Criteria) Validate() error {
	if len(c) == 0 {
		return oops.Code("USER_INVALID_QUERY").Wrapf(ErrInvalidQuery, "criteria cannot be empty")
	}
	for _, name := range c.Keys() {
		if !slices.Contains(queryableFields, name) {
			return oops.Code("USER_INVALID_QUERY").With("field", name).Wrapf(ErrInvalidQuery, "unknown field %q", name)
		}
		switch c[name].(type) {
		case int64, int:
			if name != FieldID {
				return invalidType(name, c[name])
			}
		case string:
			if name == FieldID {
				return invalidType(name, c[name])
			}
		default:
			return invalidType(name, c[name])
		}
	}
	return nil
}

// Keys returns the field names in sorted order.
func (c Criteria) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Value returns the criteria value for name with ints widened to int64.
func (c Criteria) Value(name string) any {
	if v, ok := c[name].(int); ok {
		return int64(v)
	}
	return c[name]
}

// Fields is a set of column updates applied atomically by UserRepository.Update.
// Nullable fields (session_id, session_created_at, reset_token) accept nil
// to clear the column.
type Fields map[string]any

// Validate reports ErrInvalidQuery for empty updates, unknown or immutable
// field names and values of the wrong type.
func (f Fields) Validate() error {
	if len(f) == 0 {
		return oops.Code("USER_INVALID_QUERY").Wrapf(ErrInvalidQuery, "no fields to update")
	}
	for _, name := range f.Keys() {
		if !slices.Contains(updatableFields, name) {
			return oops.Code("USER_INVALID_QUERY").With("field", name).Wrapf(ErrInvalidQuery, "unknown field %q", name)
		}
		v := f[name]
		switch name {
		case FieldEmail, FieldHashedPassword:
			if _, ok := v.(string); !ok {
				return invalidType(name, v)
			}
		case FieldSessionID, FieldResetToken:
			switch v.(type) {
			case nil, string, *string:
			default:
				return invalidType(name, v)
			}
		case FieldSessionCreatedAt:
			switch v.(type) {
			case nil, time.Time, *time.Time:
			default:
				return invalidType(name, v)
			}
		}
	}
	return nil
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Value returns the value for name with pointers dereferenced; a nil pointer
// becomes an untyped nil.
func (f Fields) Value(name string) any {
	switch v := f[name].(type) {
	case *string:
		if v == nil {
			return nil
		}
		return *v
	case *time.Time:
		if v == nil {
			return nil
		}
		return *v
	default:
		return v
	}
}

func invalidType(name string, v any) error {
	return oops.Code("USER_INVALID_QUERY").
		With("field", name).
		Wrapf(ErrInvalidQuery, "field %q has unsupported value type %T", name, v)
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Add stores a new user. Returns ErrConflict if the email is taken.
	Add(ctx context.Context, email, hashedPassword string) (*User, error)

	// Find returns the lowest-id user matching every criterion.
	// Returns ErrInvalidQuery for bad criteria and ErrNotFound when nothing matches.
	Find(ctx context.Context, criteria Criteria) (*User, error)

	// Search returns every user matching the criteria ordered by id.
	// An empty result is not an error.
	Search(ctx context.Context, criteria Criteria) ([]*User, error)

	// Update applies all fields to the user atomically.
	// Returns ErrInvalidQuery for bad fields, ErrNotFound for an unknown id
	// and ErrConflict when a unique column would be duplicated.
	Update(ctx context.Context, id int64, fields Fields) error
}
