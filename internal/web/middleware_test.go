// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/access/accesstest"
	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/internal/logging"
	"github.com/holomush/authkeep/internal/observability"
)

func newTestHandler(strategy access.Strategy, exempt []string, logOut io.Writer) *handler {
	return &handler{
		cookieName: "sid",
		exempt:     exempt,
		strategy:   strategy,
		metrics:    observability.NewMetrics(prometheus.NewRegistry()),
		logger:     slog.New(slog.NewJSONHandler(logOut, nil)),
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := requestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFrom(r.Context())
	}))

	t.Run("assigns a ULID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		_, err := ulid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("keeps an inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc", seen)
	})
}

func TestInstrument_RecordsRoutePattern(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(accesstest.DenyAll{}, nil, &logs)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := h.instrument(mux)

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequestsTotal.WithLabelValues("GET", "GET /items/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")))
	assert.Contains(t, logs.String(), `"path":"/items/7"`)
	assert.Contains(t, logs.String(), `"status":418`)
}

func TestInstrument_DefaultsToOK(t *testing.T) {
	h := newTestHandler(accesstest.DenyAll{}, nil, io.Discard)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(http.ResponseWriter, *http.Request) {})

	h.instrument(mux).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/", "200")))
}

func TestRecoverer(t *testing.T) {
	var logs bytes.Buffer
	h := newTestHandler(accesstest.DenyAll{}, nil, &logs)

	rec := httptest.NewRecorder()
	h.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "handler panicked")
}

func TestRequirePrincipal(t *testing.T) {
	user := &auth.User{ID: 1, Email: "a@b.com"}
	ok := func(w http.ResponseWriter, r *http.Request) {
		principal, found := access.PrincipalFrom(r.Context())
		if found {
			writeJSON(w, http.StatusOK, emailBody{Email: principal.Email})
			return
		}
		writeJSON(w, http.StatusOK, emailBody{})
	}

	tests := []struct {
		name     string
		strategy access.Strategy
		exempt   []string
		path     string
		cookie   string
		auth     string
		want     int
		body     string
	}{
		{"exempt path skips the strategy", accesstest.DenyAll{}, []string{"/open/"}, "/open", "", "", http.StatusOK, `{"email":""}`},
		{"wildcard exempts a prefix", accesstest.DenyAll{}, []string{"/open*"}, "/open/deep", "", "", http.StatusOK, `{"email":""}`},
		{"no credentials", accesstest.AllowAll{User: user}, nil, "/closed", "", "", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"rejected cookie", accesstest.DenyAll{}, nil, "/closed", "x", "", http.StatusForbidden, `{"error":"Forbidden"}`},
		{"rejected header", accesstest.DenyAll{}, nil, "/closed", "", "Basic eA==", http.StatusForbidden, `{"error":"Forbidden"}`},
		{"principal reaches the handler", accesstest.AllowAll{User: user}, nil, "/closed", "x", "", http.StatusOK, `{"email":"a@b.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.strategy, tt.exempt, io.Discard)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sid", Value: tt.cookie})
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.requirePrincipal(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", auth.ErrConflict, http.StatusBadRequest},
		{"validation", auth.ErrValidation, http.StatusBadRequest},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"session", auth.ErrSessionNotFound, http.StatusForbidden},
		{"expired session", auth.ErrSessionExpired, http.StatusForbidden},
		{"token", auth.ErrInvalidToken, http.StatusForbidden},
		{"unknown user", auth.ErrUserNotFound, http.StatusForbidden},
		{"anything else", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			rec := httptest.NewRecorder()
			writeError(context.Background(), rec, slog.New(slog.NewTextHandler(&logs, nil)), tt.err)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Contains(t, logs.String(), "request failed")
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestRequired(t *testing.T) {
	v, ok := required(map[string]string{"a": "1", "b": "2"}, "b", "a")
	require.True(t, ok)
	assert.Equal(t, []string{"2", "1"}, v)

	_, ok = required(map[string]string{"a": ""}, "a")
	assert.False(t, ok)
}
