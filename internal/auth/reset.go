// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// ResetManager issues and consumes single-use password reset tokens.
type ResetManager struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewResetManager creates a new ResetManager.
func NewResetManager(users UserRepository, hasher PasswordHasher) (*ResetManager, error) {
	if users == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("password hasher is required")
	}
	return &ResetManager{users: users, hasher: hasher}, nil
}

// IssueToken generates a reset token for the user with email, replacing any
// outstanding token. Returns ErrUserNotFound for an unknown email.
func (m *ResetManager) IssueToken(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", oops.Code("RESET_USER_NOT_FOUND").Wrapf(ErrUserNotFound, "email cannot be empty")
	}

	user, err := m.users.Find(ctx, ByEmail(email))
	if errors.Is(err, ErrNotFound) {
		return "", oops.Code("RESET_USER_NOT_FOUND").With("email", email).Wrap(ErrUserNotFound)
	}
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token := uuid.NewString()
	if err := m.users.Update(ctx, user.ID, Fields{FieldResetToken: token}); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			With("user_id", user.ID).
			Wrap(err)
	}

	return token, nil
}

// ConsumeToken sets the password of the user holding token and clears the
// token. Returns ErrInvalidToken when no user holds it.
func (m *ResetManager) ConsumeToken(ctx context.Context, token, newPassword string) error {
	user, err := m.holder(ctx, token)
	if err != nil {
		return err
	}
	return m.consume(ctx, user, newPassword)
}

// ConsumeTokenForEmail is ConsumeToken with the additional requirement that
// the token belongs to the user with email.
func (m *ResetManager) ConsumeTokenForEmail(ctx context.Context, email, token, newPassword string) error {
	user, err := m.holder(ctx, token)
	if err != nil {
		return err
	}
	if user.Email != email {
		return oops.Code("RESET_INVALID_TOKEN").
			With("reason", "email mismatch").
			Wrap(ErrInvalidToken)
	}
	return m.consume(ctx, user, newPassword)
}

func (m *ResetManager) holder(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code("RESET_INVALID_TOKEN").Wrapf(ErrInvalidToken, "reset token cannot be empty")
	}

	user, err := m.users.Find(ctx, Criteria{FieldResetToken: token})
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("RESET_INVALID_TOKEN").Wrap(ErrInvalidToken)
	}
	if err != nil {
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}
	return user, nil
}

func (m *ResetManager) consume(ctx context.Context, user *User, newPassword string) error {
	hashed, err := m.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := m.users.Update(ctx, user.ID, Fields{
		FieldHashedPassword: hashed,
		FieldResetToken:     nil,
	}); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", user.ID).
			Wrap(err)
	}

	return nil
}
