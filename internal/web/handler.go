// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/internal/observability"
)

// Config wires the handler to the auth services.
type Config struct {
	// CookieName names the session cookie.
	CookieName string
	// Exempt lists /api/v1 paths that need no principal.
	Exempt []string

	Service  *auth.Service
	Sessions *auth.SessionManager
	Resets   *auth.ResetManager
	Users    auth.UserRepository
	Strategy access.Strategy

	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// handler serves the HTTP API.
type handler struct {
	cookieName string
	exempt     []string
	service    *auth.Service
	sessions   *auth.SessionManager
	resets     *auth.ResetManager
	users      auth.UserRepository
	strategy   access.Strategy
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewHandler builds the routed, instrumented HTTP handler.
func NewHandler(cfg Config) (http.Handler, error) {
	switch {
	case cfg.CookieName == "":
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("cookie name is required")
	case cfg.Service == nil, cfg.Sessions == nil, cfg.Resets == nil, cfg.Users == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth services are required")
	case cfg.Strategy == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("access strategy is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		cookieName: cfg.CookieName,
		exempt:     cfg.Exempt,
		service:    cfg.Service,
		sessions:   cfg.Sessions,
		resets:     cfg.Resets,
		users:      cfg.Users,
		strategy:   cfg.Strategy,
		metrics:    cfg.Metrics,
		logger:     logger,
	}

	return h.routes(), nil
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("POST /users", h.register)
	mux.HandleFunc("POST /sessions", h.login)
	mux.HandleFunc("DELETE /sessions", h.logout)
	mux.HandleFunc("GET /profile", h.profile)
	mux.HandleFunc("POST /reset_password", h.resetToken)
	mux.HandleFunc("PUT /reset_password", h.updatePassword)

	// /api/v1 routes accept an optional trailing slash.
	api := func(method, path string, fn http.HandlerFunc) {
		protected := h.requirePrincipal(fn)
		mux.Handle(method+" "+path, protected)
		mux.Handle(method+" "+path+"/{$}", protected)
	}
	api(http.MethodGet, "/api/v1/status", h.apiStatus)
	api(http.MethodGet, "/api/v1/unauthorized", h.apiUnauthorized)
	api(http.MethodGet, "/api/v1/forbidden", h.apiForbidden)
	api(http.MethodGet, "/api/v1/users/me", h.apiMe)
	api(http.MethodPost, "/api/v1/auth_session/login", h.apiLogin)
	api(http.MethodDelete, "/api/v1/auth_session/logout", h.apiLogout)
	mux.Handle("/api/v1/", h.requirePrincipal(h.apiNotFound))

	return chain(mux,
		requestID,
		tracing,
		h.instrument,
		h.recoverer,
	)
}

// chain wraps next so the first middleware runs outermost.
func chain(next http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}

func (h *handler) sessionCookie(r *http.Request) string {
	c, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
