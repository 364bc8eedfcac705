// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/pkg/errutil"
)

type fakeMigrator struct {
	pending  []uint
	version  uint
	dirty    bool
	upErr    error
	ups      int
	downs    int
	closed   bool
	closeErr error
}

func (f *fakeMigrator) Up() error                { f.ups++; return f.upErr }
func (f *fakeMigrator) Down() error              { f.downs++; return nil }
func (f *fakeMigrator) Pending() ([]uint, error) { return f.pending, nil }
func (f *fakeMigrator) Close() error             { f.closed = true; return f.closeErr }

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, nil
}

func useMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := newMigrator
	newMigrator = func(url string) (migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { newMigrator = orig })
	return &gotURL
}

func runMigrate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"migrate"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestMigrateUp(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/userauth")
	m := &fakeMigrator{pending: []uint{1}}
	url := useMigrator(t, m)

	out, err := runMigrate(t, "up")
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/userauth", *url)
	assert.Equal(t, 1, m.ups)
	assert.True(t, m.closed)
	assert.Contains(t, out, "Applying 1 migration(s)")
}

func TestMigrateUp_NothingPending(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/userauth")
	m := &fakeMigrator{}
	useMigrator(t, m)

	out, err := runMigrate(t, "up")
	require.NoError(t, err)
	assert.Zero(t, m.ups)
	assert.Contains(t, out, "No pending migrations")
}

func TestMigrateUp_Failure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/userauth")
	m := &fakeMigrator{pending: []uint{1}, upErr: errors.New("boom")}
	useMigrator(t, m)

	_, err := runMigrate(t, "up")
	require.Error(t, err)
	assert.True(t, m.closed)
}

func TestMigrateDown(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/userauth")
	m := &fakeMigrator{}
	useMigrator(t, m)

	out, err := runMigrate(t, "down")
	require.NoError(t, err)
	assert.Equal(t, 1, m.downs)
	assert.Contains(t, out, "rolled back")
}

func TestMigrateVersion(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/userauth")

	useMigrator(t, &fakeMigrator{version: 1})
	out, err := runMigrate(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1\n")

	useMigrator(t, &fakeMigrator{version: 1, dirty: true})
	out, err = runMigrate(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty)")
}

func TestMigrate_CloseErrorSurfaces(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/userauth")
	useMigrator(t, &fakeMigrator{closeErr: errors.New("close failed")})

	_, err := runMigrate(t, "down")
	require.Error(t, err)
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	useMigrator(t, &fakeMigrator{})

	err := withMigrator(func(migrator) error { return nil })
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
}
