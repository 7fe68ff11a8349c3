// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authkeep/internal/store"
	"github.com/holomush/authkeep/pkg/errutil"
)

type fakeMigrator struct {
	version     uint
	dirty       bool
	pending     []uint
	upErr       error
	forced      *int
	downCalled  bool
	closeCalled bool
}

func (m *fakeMigrator) Up() error {
	if m.upErr != nil {
		return m.upErr
	}
	m.version = 2
	return nil
}

func (m *fakeMigrator) Down() error {
	m.downCalled = true
	m.version = 0
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(v int) error {
	m.forced = &v
	return nil
}

func (m *fakeMigrator) Status() (store.Status, error) {
	return store.Status{Version: m.version, Dirty: m.dirty, Pending: m.pending}, nil
}

func (m *fakeMigrator) Close() error {
	m.closeCalled = true
	return nil
}

func useMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	var gotDSN string
	orig := migratorFactory
	migratorFactory = func(dsn string) (Migrator, error) {
		gotDSN = dsn
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = orig })
	return &gotDSN
}

const testDSN = "postgres://u@h/authkeep"

func TestMigrateUp(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{}
	dsn := useMigrator(t, m)

	out, err := execute(t, "migrate", "up", "--database-url", testDSN)
	require.NoError(t, err)
	assert.Equal(t, testDSN, *dsn)
	assert.Contains(t, out, "Schema version 2")
	assert.True(t, m.closeCalled)
}

func TestMigrateUp_Error(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{upErr: errors.New("boom")}
	useMigrator(t, m)

	_, err := execute(t, "migrate", "up", "--database-url", testDSN)
	require.Error(t, err)
	assert.True(t, m.closeCalled)
}

func TestMigrateDown(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{version: 2}
	useMigrator(t, m)

	out, err := execute(t, "migrate", "down", "--database-url", testDSN)
	require.NoError(t, err)
	assert.True(t, m.downCalled)
	assert.Contains(t, out, "rolled back")
}

func TestMigrateVersion_Dirty(t *testing.T) {
	isolate(t)
	useMigrator(t, &fakeMigrator{version: 1, dirty: true})

	out, err := execute(t, "migrate", "version", "--database-url", testDSN)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version 1 (dirty)")
}

func TestMigrateStatus(t *testing.T) {
	isolate(t)

	t.Run("pending", func(t *testing.T) {
		useMigrator(t, &fakeMigrator{pending: []uint{1, 2}})
		out, err := execute(t, "migrate", "status", "--database-url", testDSN)
		require.NoError(t, err)
		assert.Contains(t, out, "Current version: 0 (clean)")
		assert.Contains(t, out, "000001_create_users")
		assert.Contains(t, out, "000002")
	})

	t.Run("up to date", func(t *testing.T) {
		useMigrator(t, &fakeMigrator{version: 2})
		out, err := execute(t, "migrate", "status", "--database-url", testDSN)
		require.NoError(t, err)
		assert.Contains(t, out, "No pending migrations")
	})
}

func TestMigrateForce(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{dirty: true}
	useMigrator(t, m)

	out, err := execute(t, "migrate", "force", "1", "--database-url", testDSN)
	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 1, *m.forced)
	assert.Contains(t, out, "Forced version 1")

	_, err = execute(t, "migrate", "force", "abc", "--database-url", testDSN)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	isolate(t)
	useMigrator(t, &fakeMigrator{})

	_, err := execute(t, "migrate", "up", "--database-driver", "memory")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "3", want: 3},
		{input: "0", want: 0},
		{input: "  42", want: 42},
		{input: "3abc", want: 3},
		{input: "-1", want: -1},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
		{input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
