// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package access

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/auth"
)

// Auth types accepted by NewStrategy.
const (
	TypeBasic           = "basic_auth"
	TypeSession         = "session_auth"
	TypeSessionExpiring = "session_exp_auth"
)

const basicPrefix = "Basic "

// ErrNoPrincipal is returned when credentials are missing or do not
// resolve to a user.
var ErrNoPrincipal = errors.New("no principal")

// Credentials are the raw request inputs a Strategy may inspect.
type Credentials struct {
	Authorization string
	SessionCookie string
}

// Empty reports whether the request carried no credentials at all.
func (c Credentials) Empty() bool {
	return c.Authorization == "" && c.SessionCookie == ""
}

// Strategy resolves request credentials to a user.
type Strategy interface {
	Authenticate(ctx context.Context, creds Credentials) (*auth.User, error)
}

// NewStrategy selects a Strategy by auth type. session_auth and
// session_exp_auth share SessionStrategy; the expiring variant differs
// only in the SessionManager's configured duration.
func NewStrategy(authType string, users auth.UserRepository, hasher auth.PasswordHasher, sessions *auth.SessionManager) (Strategy, error) {
	switch authType {
	case TypeBasic:
		if users == nil || hasher == nil {
			return nil, oops.Code("ACCESS_INVALID_CONFIG").Errorf("basic auth needs a user repository and hasher")
		}
		return NewBasicStrategy(users, hasher), nil
	case TypeSession, TypeSessionExpiring:
		if sessions == nil {
			return nil, oops.Code("ACCESS_INVALID_CONFIG").Errorf("session auth needs a session manager")
		}
		return NewSessionStrategy(sessions), nil
	default:
		return nil, oops.Code("ACCESS_UNKNOWN_TYPE").With("auth_type", authType).Errorf("unknown auth type %q", authType)
	}
}

// AuthorizationHeader returns the Authorization value, or "" when absent.
func AuthorizationHeader(creds Credentials) string {
	return creds.Authorization
}

// ExtractBase64Credentials returns the part after the "Basic " prefix, or
// "" when the header does not use that scheme.
func ExtractBase64Credentials(header string) string {
	encoded, ok := strings.CutPrefix(header, basicPrefix)
	if !ok {
		return ""
	}
	return encoded
}

// DecodeBase64Credentials decodes standard base64. Invalid input yields "".
func DecodeBase64Credentials(encoded string) string {
	if encoded == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// SplitCredentials splits "email:password" at the first colon. The
// password may itself contain colons.
func SplitCredentials(decoded string) (email, password string, ok bool) {
	return strings.Cut(decoded, ":")
}

// BasicStrategy authenticates HTTP Basic credentials against stored users.
type BasicStrategy struct {
	users  auth.UserRepository
	hasher auth.PasswordHasher
}

// NewBasicStrategy creates a BasicStrategy.
func NewBasicStrategy(users auth.UserRepository, hasher auth.PasswordHasher) *BasicStrategy {
	return &BasicStrategy{users: users, hasher: hasher}
}

// Authenticate returns the first user with the given email whose stored
// hash verifies the password.
func (s *BasicStrategy) Authenticate(ctx context.Context, creds Credentials) (*auth.User, error) {
	encoded := ExtractBase64Credentials(AuthorizationHeader(creds))
	if encoded == "" {
		return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "missing basic credentials").Wrap(ErrNoPrincipal)
	}
	decoded := DecodeBase64Credentials(encoded)
	if decoded == "" {
		return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "invalid base64").Wrap(ErrNoPrincipal)
	}
	email, password, ok := SplitCredentials(decoded)
	if !ok || email == "" {
		return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "malformed credentials").Wrap(ErrNoPrincipal)
	}

	candidates, err := s.users.Search(ctx, auth.ByEmail(email))
	if err != nil {
		return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "user lookup failed").Wrap(errors.Join(ErrNoPrincipal, err))
	}
	for _, user := range candidates {
		if s.hasher.Verify(password, user.HashedPassword) {
			return user, nil
		}
	}
	return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "invalid credentials").Wrap(ErrNoPrincipal)
}

// SessionStrategy authenticates a session cookie.
type SessionStrategy struct {
	sessions *auth.SessionManager
}

// NewSessionStrategy creates a SessionStrategy.
func NewSessionStrategy(sessions *auth.SessionManager) *SessionStrategy {
	return &SessionStrategy{sessions: sessions}
}

// Authenticate resolves the session cookie to its user.
func (s *SessionStrategy) Authenticate(ctx context.Context, creds Credentials) (*auth.User, error) {
	if creds.SessionCookie == "" {
		return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "missing session cookie").Wrap(ErrNoPrincipal)
	}
	user, err := s.sessions.ResolveUser(ctx, creds.SessionCookie)
	if err != nil {
		return nil, oops.Code("ACCESS_NO_PRINCIPAL").With("reason", "session not resolved").Wrap(errors.Join(ErrNoPrincipal, err))
	}
	return user, nil
}
