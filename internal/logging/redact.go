// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package logging

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
)

// PIIFields are the attribute keys redacted by default.
var PIIFields = []string{"name", "email", "phone", "ssn", "password"}

const (
	// Redaction replaces redacted values.
	Redaction = "***"
	// Separator ends a key=value pair inside a message.
	Separator = ";"
)

// FilterDatum replaces the value of every field=value<separator> pair in
// message with redaction. The value match is non-greedy, so it stops at the
// first separator after the field.
func FilterDatum(fields []string, redaction, message, separator string) string {
	for _, field := range fields {
		re := regexp.MustCompile(regexp.QuoteMeta(field) + "=.*?" + regexp.QuoteMeta(separator))
		message = re.ReplaceAllLiteralString(message, field+"="+redaction+separator)
	}
	return message
}

// RedactingHandler hides PII in log records. Attributes whose key is a
// redacted field get the value "***"; the message goes through FilterDatum.
type RedactingHandler struct {
	handler slog.Handler
	fields  []string
}

// NewRedactingHandler wraps handler.
func NewRedactingHandler(handler slog.Handler, fields []string) *RedactingHandler {
	return &RedactingHandler{handler: handler, fields: slices.Clone(fields)}
}

// Enabled returns true if the level is enabled.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record before passing it on.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, FilterDatum(h.fields, Redaction, r.Message, Separator), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a new handler with the given attributes redacted.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted), fields: h.fields}
}

// WithGroup returns a new handler with the given group.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name), fields: h.fields}
}

func (h *RedactingHandler) redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redact(ga)
		}
		return slog.Group(a.Key, redacted...)
	}
	if slices.Contains(h.fields, a.Key) {
		return slog.String(a.Key, Redaction)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, FilterDatum(h.fields, Redaction, a.Value.String(), Separator))
	case slog.KindAny:
		// oops error contexts arrive as plain maps.
		if m, ok := a.Value.Any().(map[string]any); ok {
			return slog.Any(a.Key, h.redactMap(m))
		}
	}
	return a
}

func (h *RedactingHandler) redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if slices.Contains(h.fields, k) {
			out[k] = Redaction
			continue
		}
		switch tv := v.(type) {
		case map[string]any:
			out[k] = h.redactMap(tv)
		case string:
			out[k] = FilterDatum(h.fields, Redaction, tv, Separator)
		default:
			out[k] = v
		}
	}
	return out
}
