// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/internal/xdg"
)

// EnvPrefix prefixes environment variables for every key, e.g.
// AUTHKEEP_HTTP_ADDR sets http.addr.
const EnvPrefix = "AUTHKEEP_"

// legacyEnv maps the unprefixed variables the service has always read.
var legacyEnv = map[string]string{
	"SESSION_NAME":              "session.name",
	"SESSION_DURATION":          "session.duration",
	"AUTH_TYPE":                 "auth.type",
	"DATABASE_URL":              "database.url",
	"PERSONAL_DATA_DB_USERNAME": "database.user",
	"PERSONAL_DATA_DB_PASSWORD": "database.password",
	"PERSONAL_DATA_DB_HOST":     "database.host",
	"PERSONAL_DATA_DB_NAME":     "database.name",
}

// flagKeys maps the flags registered by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"session-store":   "session.store",
	"auth-type":       "auth.type",
	"database-driver": "database.driver",
	"database-url":    "database.url",
}

// Options controls where Load reads from.
type Options struct {
	// File is an explicit config path. It must exist. When empty, the XDG
	// config file is read if present.
	File string
	// Flags holds flags registered with RegisterFlags. Only flags the user
	// set override lower layers.
	Flags *pflag.FlagSet
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("session-store", d.Session.Store, "session store (database, memory, redis)")
	fs.String("auth-type", d.Auth.Type, "API auth type (basic_auth, session_auth, session_exp_auth)")
	fs.String("database-driver", d.Database.Driver, "user database (postgres, memory)")
	fs.String("database-url", "", "PostgreSQL connection URL")
}

// Load builds the configuration from defaults, file, environment and flags,
// then validates it.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsMap(), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	path, explicit := opts.File, opts.File != ""
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(k, path, explicit); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyEnvValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", prefixedEnvValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagValue), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code("CONFIG_FILE_NOT_FOUND").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
	}
	return nil
}

func legacyEnvValue(name, value string) (string, any) {
	key, ok := legacyEnv[name]
	if !ok {
		return "", nil
	}
	return key, envValue(key, value)
}

func prefixedEnvValue(name, value string) (string, any) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, EnvPrefix), "_", "."))
	return key, envValue(key, value)
}

// envValue converts values that are not plain strings. An unparsable
// session duration counts as 0, which never expires.
func envValue(key, value string) any {
	switch key {
	case "session.duration":
		return int(auth.ParseSessionDuration(value) / time.Second)
	case "auth.exempt":
		var paths []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		return paths
	}
	return value
}

func flagValue(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}
