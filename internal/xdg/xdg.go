// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves the XDG base directories used by userauth.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "userauth"

// ConfigDir returns $XDG_CONFIG_HOME/userauth, or ~/.config/userauth.
func ConfigDir() string {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/userauth, or ~/.local/share/userauth.
func DataDir() string {
	return dir("XDG_DATA_HOME", ".local", "share")
}

// DefaultConfigFile is the config file read when --config is not given.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultCredentialsFile is where the file backend keeps credentials
// unless configured otherwise.
func DefaultCredentialsFile() string {
	return filepath.Join(DataDir(), "users.json")
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func dir(env string, fallback ...string) string {
	base := os.Getenv(env)
	if base == "" {
		base = filepath.Join(append([]string{os.Getenv("HOME")}, fallback...)...)
	}
	return filepath.Join(base, appName)
}
