// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web_test

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/internal/auth/memory"
	"github.com/holomush/authkeep/internal/config"
	"github.com/holomush/authkeep/internal/observability"
	"github.com/holomush/authkeep/internal/web"
)

const cookieName = config.DefaultSessionName

type fixture struct {
	handler  http.Handler
	users    *memory.UserRepository
	sessions *auth.SessionManager
	resets   *auth.ResetManager
	metrics  *observability.Metrics
}

// newFixture wires the handler over in-memory stores. t may be a
// *testing.T or GinkgoT().
func newFixture(t require.TestingT, authType string, duration time.Duration) *fixture {
	users := memory.NewUserRepository()
	hasher := auth.NewArgon2idHasher()

	sessions, err := auth.NewSessionManager(users, memory.NewSessionStore(), auth.WithSessionDuration(duration))
	require.NoError(t, err)
	service, err := auth.NewService(users, sessions, hasher)
	require.NoError(t, err)
	resets, err := auth.NewResetManager(users, hasher)
	require.NoError(t, err)
	strategy, err := access.NewStrategy(authType, users, hasher, sessions)
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	handler, err := web.NewHandler(web.Config{
		CookieName: cookieName,
		Exempt:     config.Default().Auth.Exempt,
		Service:    service,
		Sessions:   sessions,
		Resets:     resets,
		Users:      users,
		Strategy:   strategy,
		Metrics:    metrics,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return &fixture{
		handler:  handler,
		users:    users,
		sessions: sessions,
		resets:   resets,
		metrics:  metrics,
	}
}
