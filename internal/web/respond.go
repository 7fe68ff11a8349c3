// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/pkg/errutil"
)

// maxBodyBytes caps request bodies read by readFields.
const maxBodyBytes = 1 << 20

// Standard error bodies.
const (
	msgBadRequest   = "Bad Request"
	msgUnauthorized = "Unauthorized"
	msgForbidden    = "Forbidden"
	msgNotFound     = "Not found"
	msgInternal     = "Internal Server Error"
	msgEmailTaken   = "email already registered"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

type userBody struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserBody(u *auth.User) userBody {
	return userBody{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(body)
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps err to a status code. Unexpected errors are logged and
// reported as 500 without detail.
func writeError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrConflict):
		writeJSON(w, http.StatusBadRequest, messageBody{Message: msgEmailTaken})
	case errors.Is(err, auth.ErrValidation):
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeStatus(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUserNotFound):
		writeStatus(w, http.StatusForbidden, msgForbidden)
	default:
		errutil.LogErrorContext(ctx, logger, "request failed", err)
		writeStatus(w, http.StatusInternalServerError, msgInternal)
	}
}

// readFields returns the request's form or JSON body fields. Non-string
// JSON values are ignored.
func readFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to form parsing

	if mediaType == "application/json" {
		var raw map[string]any
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		out[k] = r.PostForm.Get(k)
	}
	return out, nil
}

// required returns the named fields, or ok=false when any is missing or
// empty.
func required(fields map[string]string, names ...string) (values []string, ok bool) {
	values = make([]string, len(names))
	for i, name := range names {
		v := fields[name]
		if v == "" {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}
