// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package config

import "errors"

// errReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var errReadBytesNotSupported = errors.New("config: map provider does not support ReadBytes")

// mapProvider is a koanf provider over a nested map.
type mapProvider map[string]any

// ReadBytes is not supported; koanf uses Read.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytesNotSupported
}

// Read returns the configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// defaultsMap returns Default() as the nested map koanf merges.
func defaultsMap() mapProvider {
	d := Default()
	return mapProvider{
		"http":    map[string]any{"addr": d.HTTP.Addr},
		"metrics": map[string]any{"addr": d.Metrics.Addr},
		"log": map[string]any{
			"format": d.Log.Format,
			"level":  d.Log.Level,
		},
		"session": map[string]any{
			"name":     d.Session.Name,
			"duration": d.Session.Duration,
			"store":    d.Session.Store,
		},
		"auth": map[string]any{
			"type":   d.Auth.Type,
			"exempt": d.Auth.Exempt,
		},
		"database": map[string]any{
			"driver":  d.Database.Driver,
			"port":    d.Database.Port,
			"sslmode": d.Database.SSLMode,
		},
		"redis": map[string]any{
			"addr":   d.Redis.Addr,
			"prefix": d.Redis.Prefix,
			"db":     d.Redis.DB,
		},
	}
}
