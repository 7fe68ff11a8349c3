// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package access

import (
	"context"

	"github.com/holomush/authkeep/internal/auth"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated user.
func WithPrincipal(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, principalKey{}, user)
}

// PrincipalFrom returns the user stored by WithPrincipal, if any.
func PrincipalFrom(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(principalKey{}).(*auth.User)
	return user, ok && user != nil
}
