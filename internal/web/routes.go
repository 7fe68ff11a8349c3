// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/internal/observability"
)

type emailBody struct {
	Email string `json:"email"`
}

type resetTokenBody struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

func (h *handler) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageBody{Message: "Bienvenue"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	v, ok := required(fields, "email", "password")
	if !ok {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), v[0], v[1])
	h.metrics.RecordAuthEvent(observability.EventRegister, err)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Email: user.Email, Message: "user created"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	v, ok := required(fields, "email", "password")
	if !ok {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	user, sessionID, err := h.service.Login(r.Context(), v[0], v[1])
	h.metrics.RecordAuthEvent(observability.EventLogin, err)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	h.setSessionCookie(w, sessionID)
	writeJSON(w, http.StatusOK, messageBody{Email: user.Email, Message: "logged in"})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.Logout(r.Context(), h.sessionCookie(r))
	h.metrics.RecordAuthEvent(observability.EventLogout, err)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.ResolveUser(r.Context(), h.sessionCookie(r))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emailBody{Email: user.Email})
}

// resetToken answers a missing email with 403, like an unknown one.
func (h *handler) resetToken(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	email := fields["email"]

	token, err := h.resets.IssueToken(r.Context(), email)
	h.metrics.RecordAuthEvent(observability.EventResetIssue, err)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resetTokenBody{Email: email, ResetToken: token})
}

func (h *handler) updatePassword(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	v, ok := required(fields, "email", "reset_token", "new_password")
	if !ok {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	err = h.resets.ConsumeTokenForEmail(r.Context(), v[0], v[1], v[2])
	h.metrics.RecordAuthEvent(observability.EventResetConsume, err)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Email: v[0], Message: "Password updated"})
}

func (h *handler) apiStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *handler) apiUnauthorized(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusUnauthorized, msgUnauthorized)
}

func (h *handler) apiForbidden(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusForbidden, msgForbidden)
}

func (h *handler) apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusNotFound, msgNotFound)
}

// apiMe returns the principal. An exempted path has none and gets 403.
func (h *handler) apiMe(w http.ResponseWriter, r *http.Request) {
	user, ok := access.PrincipalFrom(r.Context())
	if !ok {
		writeStatus(w, http.StatusForbidden, msgForbidden)
		return
	}
	writeJSON(w, http.StatusOK, toUserBody(user))
}

func (h *handler) apiLogin(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	email, password := fields["email"], fields["password"]
	switch {
	case email == "":
		writeStatus(w, http.StatusBadRequest, "email missing")
		return
	case password == "":
		writeStatus(w, http.StatusBadRequest, "password missing")
		return
	}

	candidates, err := h.users.Search(r.Context(), auth.ByEmail(email))
	if err != nil || len(candidates) == 0 {
		h.metrics.RecordAuthEvent(observability.EventLogin, auth.ErrInvalidCredentials)
		writeStatus(w, http.StatusNotFound, "no user found for this email")
		return
	}

	user, sessionID, err := h.service.Login(r.Context(), email, password)
	h.metrics.RecordAuthEvent(observability.EventLogin, err)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeStatus(w, http.StatusUnauthorized, "wrong password")
		return
	}
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	h.setSessionCookie(w, sessionID)
	writeJSON(w, http.StatusOK, toUserBody(user))
}

func (h *handler) apiLogout(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.Logout(r.Context(), h.sessionCookie(r))
	h.metrics.RecordAuthEvent(observability.EventLogout, err)
	if errors.Is(err, auth.ErrSessionNotFound) {
		writeStatus(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, struct{}{})
}
