// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package auth

import "errors"

// Sentinel errors. Every error returned by this package wraps exactly one of
// these so callers can branch with errors.Is; the oops code carried on top is
// for logs.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery is returned when a lookup or update names an unknown field.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrConflict is returned when a write would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for missing or malformed caller input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound is returned when a session id does not resolve to a user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned for a session older than the configured duration.
	// It matches ErrSessionNotFound.
	ErrSessionExpired error = &expiredError{}

	// ErrEmptyUserID is returned when a session is requested for the zero user id.
	ErrEmptyUserID = errors.New("user id is empty")

	// ErrUserNotFound is returned when a reset is requested for an unknown email.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken is returned when no user holds the presented reset token.
	ErrInvalidToken = errors.New("invalid reset token")
)

type expiredError struct{}

func (*expiredError) Error() string { return "session expired" }

func (*expiredError) Is(target error) bool { return target == ErrSessionNotFound }
