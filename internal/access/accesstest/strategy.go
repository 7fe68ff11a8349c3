// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package accesstest provides test strategies for access control.
package accesstest

import (
	"context"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/auth"
)

// AllowAll authenticates every request with credentials as User.
type AllowAll struct {
	User *auth.User
}

// Authenticate returns s.User unless the request carried no credentials.
func (s AllowAll) Authenticate(_ context.Context, creds access.Credentials) (*auth.User, error) {
	if creds.Empty() {
		return nil, access.ErrNoPrincipal
	}
	return s.User, nil
}

// DenyAll rejects every request.
type DenyAll struct{}

// Authenticate always fails with access.ErrNoPrincipal.
func (DenyAll) Authenticate(_ context.Context, _ access.Credentials) (*auth.User, error) {
	return nil, access.ErrNoPrincipal
}

var (
	_ access.Strategy = AllowAll{}
	_ access.Strategy = DenyAll{}
)
