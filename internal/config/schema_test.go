// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/holomush/authkeep/pkg/errutil"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, SchemaID, schema["$id"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"http", "metrics", "log", "session", "auth", "database", "redis"} {
		assert.Contains(t, props, key)
	}
}

func TestValidateYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"minimal", "database:\n  driver: memory\n", false},
		{"full session block", "session:\n  name: sid\n  duration: 60\n  store: redis\n", false},
		{"exempt list", "auth:\n  exempt: [\"/api/v1/status/\", \"/public/*\"]\n", false},
		{"unknown top-level key", "listen: 80\n", true},
		{"unknown nested key", "http:\n  port: 80\n", true},
		{"enum violation", "log:\n  format: xml\n", true},
		{"wrong type", "session:\n  duration: forever\n", true},
		{"port out of range", "database:\n  port: 70000\n", true},
		{"empty", "  \n", true},
		{"not yaml", "http: [unclosed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateYAML([]byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestYAML_DefaultsValidateAndLoadBack(t *testing.T) {
	data, err := YAML(Default())
	require.NoError(t, err)
	require.NoError(t, ValidateYAML(data))

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, Default(), back)
}
