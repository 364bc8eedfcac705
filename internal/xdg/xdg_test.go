// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		fn   func() string
		want string
	}{
		{"config from env", map[string]string{"XDG_CONFIG_HOME": "/custom/config"}, ConfigDir, "/custom/config/userauth"},
		{"config default", map[string]string{"XDG_CONFIG_HOME": "", "HOME": "/home/u"}, ConfigDir, "/home/u/.config/userauth"},
		{"data from env", map[string]string{"XDG_DATA_HOME": "/custom/data"}, DataDir, "/custom/data/userauth"},
		{"data default", map[string]string{"XDG_DATA_HOME": "", "HOME": "/home/u"}, DataDir, "/home/u/.local/share/userauth"},
		{"config file", map[string]string{"XDG_CONFIG_HOME": "/c"}, DefaultConfigFile, "/c/userauth/config.yaml"},
		{"credentials file", map[string]string{"XDG_DATA_HOME": "/d"}, DefaultCredentialsFile, "/d/userauth/users.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, tt.fn())
		})
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	require.NoError(t, EnsureDir(path), "existing directory is fine")
}

func TestEnsureDir_Failure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err := EnsureDir(filepath.Join(file, "sub"))
	require.Error(t, err)
}
