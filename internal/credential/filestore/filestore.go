// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package filestore persists credentials in a local JSON or YAML file.
package filestore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/credential"
)

// Backend reads and rewrites one credentials file. Writes go to a sibling
// temporary file which is then renamed over the target.
type Backend struct {
	mu            sync.Mutex
	path          string
	format        credential.Format
	createMissing bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithCreateMissing makes Load create an empty file instead of failing
// when the file does not exist.
func WithCreateMissing(create bool) Option {
	return func(b *Backend) { b.createMissing = create }
}

// WithFormat overrides the format picked from the file extension.
func WithFormat(f credential.Format) Option {
	return func(b *Backend) { b.format = f }
}

// New creates a Backend for path.
func New(path string, opts ...Option) (*Backend, error) {
	if path == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_PATH").Errorf("credentials file path is required")
	}
	b := &Backend{path: path, format: credential.FormatForPath(path)}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Path returns the credentials file path.
func (b *Backend) Path() string { return b.path }

// Load reads and validates the file.
func (b *Backend) Load(ctx context.Context) (credential.Credentials, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		if !b.createMissing {
			return nil, oops.Code(credential.CodeMissing).With("path", b.path).Wrap(err)
		}
		if err := b.write(ctx, credential.Credentials{}); err != nil {
			return nil, err
		}
		return credential.Credentials{}, nil
	}
	if err != nil {
		return nil, oops.Code(credential.CodeLoadFailed).With("path", b.path).Wrap(err)
	}

	creds, err := credential.Decode(b.format, data)
	if err != nil {
		return nil, oops.With("path", b.path).Wrap(err)
	}
	return creds, nil
}

// Save rewrites the file with creds.
func (b *Backend) Save(ctx context.Context, creds credential.Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write(ctx, creds)
}

func (b *Backend) write(ctx context.Context, creds credential.Credentials) error {
	if err := ctx.Err(); err != nil {
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).Wrap(err)
	}

	data, err := credential.Encode(b.format, creds)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).With("operation", "create temp file").Wrap(err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) } //nolint:errcheck // best effort

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		cleanup()
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).With("operation", "write temp file").Wrap(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error takes precedence
		cleanup()
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).With("operation", "sync temp file").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).With("operation", "close temp file").Wrap(err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).With("operation", "chmod temp file").Wrap(err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		cleanup()
		return oops.Code(credential.CodeSaveFailed).With("path", b.path).With("operation", "rename temp file").Wrap(err)
	}
	return nil
}
