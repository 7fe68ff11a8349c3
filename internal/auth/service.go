// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service provides registration and credential checks on top of the
// session manager.
type Service struct {
	users    UserRepository
	sessions *SessionManager
	hasher   PasswordHasher
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new Service.
func NewService(users UserRepository, sessions *SessionManager, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Registration input errors.
var (
	ErrEmptyEmail    = oops.Code("AUTH_EMPTY_EMAIL").Wrapf(ErrValidation, "email cannot be empty")
	ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Wrapf(ErrValidation, "password cannot be empty")
)

// Register creates a user with a freshly hashed password.
// Returns ErrConflict when the email is already registered.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := s.users.Add(ctx, email, hashed)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("email", email).Wrap(err)
	}
	return user, nil
}

// ValidLogin checks the email/password pair and returns the user.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *Service) ValidLogin(ctx context.Context, email, password string) (*User, error) {
	users, err := s.users.Search(ctx, ByEmail(email))
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "search users by email").
			Wrap(err)
	}

	if len(users) == 0 {
		// Keep the response time of unknown emails close to real ones.
		s.hasher.Verify(password, dummyPasswordHash)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrapf(ErrInvalidCredentials, "invalid email or password")
	}

	for _, user := range users {
		if !s.hasher.Verify(password, user.HashedPassword) {
			continue
		}
		s.upgradeHash(ctx, user, password)
		return user, nil
	}

	return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrapf(ErrInvalidCredentials, "invalid email or password")
}

// Login checks credentials and issues a session id.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.ValidLogin(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	sessionID, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			With("user_id", user.ID).
			Wrap(err)
	}
	return user, sessionID, nil
}

// Logout destroys the session identified by sessionID and returns the user
// it belonged to.
func (s *Service) Logout(ctx context.Context, sessionID string) (*User, error) {
	user, err := s.sessions.ResolveUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.DestroySession(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.HashedPassword) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.Update(ctx, user.ID, Fields{FieldHashedPassword: newHash}); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "password rehash not persisted", "user_id", user.ID, "error", err)
		}
		return
	}
	user.HashedPassword = newHash
}
