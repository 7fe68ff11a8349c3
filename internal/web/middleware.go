// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/logging"
	"github.com/holomush/authkeep/internal/observability"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// unmatchedRoute labels requests no pattern matched.
const unmatchedRoute = "unmatched"

var tracer = otel.Tracer("authkeep/web")

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestID reuses an inbound X-Request-Id or assigns a new ULID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument logs and counts every request. It must wrap the mux directly
// so the matched pattern is visible on r once the mux returns.
func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		elapsed := time.Since(start)

		h.metrics.ObserveRequest(r.Method, route, strconv.Itoa(status), elapsed)

		span := trace.SpanFromContext(r.Context())
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		h.logger.InfoContext(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (h *handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(v)
				}
				h.logger.ErrorContext(r.Context(), "handler panicked", "panic", v)
				writeStatus(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requirePrincipal guards an /api/v1 route. A request without credentials
// gets 401, one whose credentials do not resolve gets 403.
func (h *handler) requirePrincipal(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.RequiresAuth(r.URL.Path, h.exempt) {
			next(w, r)
			return
		}

		creds := access.Credentials{
			Authorization: r.Header.Get("Authorization"),
			SessionCookie: h.sessionCookie(r),
		}
		if creds.Empty() {
			writeStatus(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		user, err := h.strategy.Authenticate(r.Context(), creds)
		h.metrics.RecordAuthEvent(observability.EventAuthenticate, err)
		if err != nil {
			h.logger.DebugContext(r.Context(), "request not authenticated", "path", r.URL.Path, "error", err)
			writeStatus(w, http.StatusForbidden, msgForbidden)
			return
		}

		next(w, r.WithContext(access.WithPrincipal(r.Context(), user)))
	})
}
