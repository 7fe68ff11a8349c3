// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterDatum(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		message string
		want    string
	}{
		{
			name:    "redacts listed fields",
			fields:  []string{"password", "date_of_birth"},
			message: "name=egg;email=eggmin@eggsample.com;password=eggcellent;date_of_birth=12/12/1986;",
			want:    "name=egg;email=eggmin@eggsample.com;password=xxx;date_of_birth=xxx;",
		},
		{
			name:    "value stops at first separator",
			fields:  []string{"email"},
			message: "email=a@b.com;ssn=1;",
			want:    "email=xxx;ssn=1;",
		},
		{
			name:    "pair without separator is left alone",
			fields:  []string{"password"},
			message: "password=trailing",
			want:    "password=trailing",
		},
		{
			name:    "no fields",
			fields:  nil,
			message: "password=p;",
			want:    "password=p;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterDatum(tt.fields, "xxx", tt.message, ";"))
		})
	}
}

func TestFilterDatum_SeparatorIsLiteral(t *testing.T) {
	assert.Equal(t, "ssn=***|name=bob|", FilterDatum([]string{"ssn"}, Redaction, "ssn=123|name=bob|", "|"))
}

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil), PIIFields))

	logger.With("phone", "555-0100").Info("login email=a@b.com;ip=1.2.3.4;",
		"email", "a@b.com",
		"user_id", 7,
		slog.Group("user", "ssn", "123-45-6789", "role", "admin"),
		"detail", "password=hunter2;",
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())

	assert.Equal(t, "login email=***;ip=1.2.3.4;", entry["msg"])
	assert.Equal(t, Redaction, entry["email"])
	assert.Equal(t, Redaction, entry["phone"])
	assert.Equal(t, float64(7), entry["user_id"])
	assert.Equal(t, "password=***;", entry["detail"])

	group, ok := entry["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redaction, group["ssn"])
	assert.Equal(t, "admin", group["role"])
}

func TestSetup_RedactsByDefault(t *testing.T) {
	var buf bytes.Buffer
	Setup("authkeep", "1.0.0", "json", &buf).Info("user created", "email", "a@b.com")
	assert.NotContains(t, buf.String(), "a@b.com")

	buf.Reset()
	Setup("authkeep", "1.0.0", "json", &buf, WithRedactedFields()).Info("user created", "email", "a@b.com")
	assert.Contains(t, buf.String(), "a@b.com")
}
