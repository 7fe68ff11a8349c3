// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package config loads and validates authkeep configuration.
//
// Sources, lowest priority first: built-in defaults, a YAML file,
// environment variables, command-line flags.
package config

import (
	"net"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Session stores. StoreDatabase follows database.driver and resolves to
// StorePostgres or StoreMemory.
const (
	StoreDatabase = "database"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
)

// Auth types accepted by auth.type.
const (
	AuthBasic           = "basic_auth"
	AuthSession         = "session_auth"
	AuthSessionExpiring = "session_exp_auth"
)

// DefaultSessionName is the session cookie name when none is configured.
const DefaultSessionName = "_my_session_id"

// Config is the complete authkeep configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics" json:"metrics,omitempty"`
	Log      LogConfig      `koanf:"log" yaml:"log" json:"log,omitempty"`
	Session  SessionConfig  `koanf:"session" yaml:"session" json:"session,omitempty"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth" json:"auth,omitempty"`
	Database DatabaseConfig `koanf:"database" yaml:"database" json:"database,omitempty"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis" json:"redis,omitempty"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr,omitempty" jsonschema:"description=API listen address"`
}

// MetricsConfig configures the metrics and health listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr,omitempty" jsonschema:"description=Metrics and health listen address; empty disables"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" yaml:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// SessionConfig configures session cookies and storage.
type SessionConfig struct {
	Name     string `koanf:"name" yaml:"name" json:"name,omitempty" jsonschema:"description=Session cookie name"`
	Duration int    `koanf:"duration" yaml:"duration" json:"duration,omitempty" jsonschema:"description=Session lifetime in seconds; 0 or less never expires"`
	Store    string `koanf:"store" yaml:"store" json:"store,omitempty" jsonschema:"enum=database,enum=memory,enum=redis"`
}

// Lifetime returns the session duration. Non-positive values mean
// sessions never expire.
func (s SessionConfig) Lifetime() time.Duration {
	if s.Duration <= 0 {
		return 0
	}
	return time.Duration(s.Duration) * time.Second
}

// AuthConfig selects how /api/v1 requests are authenticated.
type AuthConfig struct {
	Type   string   `koanf:"type" yaml:"type" json:"type,omitempty" jsonschema:"enum=basic_auth,enum=session_auth,enum=session_exp_auth"`
	Exempt []string `koanf:"exempt" yaml:"exempt" json:"exempt,omitempty" jsonschema:"description=Paths that need no authentication; an entry with * exempts a prefix"`
}

// DatabaseConfig locates the user database. URL wins over the parts.
type DatabaseConfig struct {
	Driver   string `koanf:"driver" yaml:"driver" json:"driver,omitempty" jsonschema:"enum=postgres,enum=memory"`
	URL      string `koanf:"url" yaml:"url" json:"url,omitempty"`
	Host     string `koanf:"host" yaml:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	User     string `koanf:"user" yaml:"user" json:"user,omitempty"`
	Password string `koanf:"password" yaml:"password" json:"password,omitempty"`
	Name     string `koanf:"name" yaml:"name" json:"name,omitempty"`
	SSLMode  string `koanf:"sslmode" yaml:"sslmode" json:"sslmode,omitempty"`
}

// DSN returns the connection URL, built from the parts when URL is empty.
// It returns "" when neither URL nor host is set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	switch {
	case d.User != "" && d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

// RedisConfig locates the Redis session store.
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr" json:"addr,omitempty"`
	Password string `koanf:"password" yaml:"password" json:"password,omitempty"`
	DB       int    `koanf:"db" yaml:"db" json:"db,omitempty" jsonschema:"minimum=0"`
	Prefix   string `koanf:"prefix" yaml:"prefix" json:"prefix,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: "0.0.0.0:5000"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Session: SessionConfig{Name: DefaultSessionName, Store: StoreDatabase},
		Auth: AuthConfig{
			Type: AuthSession,
			Exempt: []string{
				"/api/v1/status/",
				"/api/v1/unauthorized/",
				"/api/v1/forbidden/",
				"/api/v1/auth_session/login/",
			},
		},
		Database: DatabaseConfig{Driver: DriverPostgres, Port: 5432, SSLMode: "disable"},
		Redis:    RedisConfig{Addr: "127.0.0.1:6379", Prefix: "authkeep"},
	}
}

// SessionStore resolves StoreDatabase to the concrete store name.
func (c *Config) SessionStore() string {
	if c.Session.Store == StoreDatabase || c.Session.Store == "" {
		if c.Database.Driver == DriverMemory {
			return StoreMemory
		}
		return StorePostgres
	}
	return c.Session.Store
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "must not be empty")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "must be json or text")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return invalid("log.level", "must be debug, info, warn or error")
	}
	if c.Session.Name == "" {
		return invalid("session.name", "must not be empty")
	}
	if !slices.Contains([]string{AuthBasic, AuthSession, AuthSessionExpiring}, c.Auth.Type) {
		return invalid("auth.type", "must be basic_auth, session_auth or session_exp_auth")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN() == "" {
			return invalid("database.url", "postgres needs database.url or database.host")
		}
	case DriverMemory:
	default:
		return invalid("database.driver", "must be postgres or memory")
	}

	switch c.Session.Store {
	case StoreDatabase, StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return invalid("redis.addr", "redis session store needs an address")
		}
	default:
		return invalid("session.store", "must be database, memory or redis")
	}

	return nil
}

func invalid(field, msg string) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf("%s %s", field, msg)
}
