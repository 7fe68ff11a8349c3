// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkeep/pkg/errutil"
)

func TestDefault_NeedsADatabase(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "field", "database.url")

	cfg.Database.Driver = DriverMemory
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty http addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"empty cookie name", func(c *Config) { c.Session.Name = "" }, "session.name"},
		{"unknown auth type", func(c *Config) { c.Auth.Type = "jwt" }, "auth.type"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"unknown session store", func(c *Config) { c.Session.Store = "file" }, "session.store"},
		{"redis without addr", func(c *Config) {
			c.Session.Store = StoreRedis
			c.Redis.Addr = ""
		}, "redis.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.Driver = DriverMemory
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "field", tt.field)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want string
	}{
		{"url wins", DatabaseConfig{URL: "postgres://x@y/z", Host: "ignored"}, "postgres://x@y/z"},
		{"nothing set", DatabaseConfig{Port: 5432}, ""},
		{
			"parts",
			DatabaseConfig{Host: "db", Port: 5432, User: "root", Password: "p@ss", Name: "holberton", SSLMode: "disable"},
			"postgres://root:p%40ss@db:5432/holberton?sslmode=disable",
		},
		{"user only", DatabaseConfig{Host: "db", Port: 6543, User: "root", Name: "users"}, "postgres://root@db:6543/users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.db.DSN())
		})
	}
}

func TestSessionConfig_Lifetime(t *testing.T) {
	assert.Equal(t, time.Duration(0), SessionConfig{Duration: 0}.Lifetime())
	assert.Equal(t, time.Duration(0), SessionConfig{Duration: -5}.Lifetime())
	assert.Equal(t, 60*time.Second, SessionConfig{Duration: 60}.Lifetime())
}

func TestConfig_SessionStore(t *testing.T) {
	cfg := Default()
	assert.Equal(t, StorePostgres, cfg.SessionStore())

	cfg.Database.Driver = DriverMemory
	assert.Equal(t, StoreMemory, cfg.SessionStore())

	cfg.Session.Store = StoreRedis
	assert.Equal(t, StoreRedis, cfg.SessionStore())
}
