// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package credential keeps the username -> password table and persists it
// through a pluggable Backend.
package credential

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/samber/oops"
)

// Error codes returned by the store and its backends.
const (
	CodeLoadFailed    = "CREDENTIAL_LOAD_FAILED"
	CodeSaveFailed    = "CREDENTIAL_SAVE_FAILED"
	CodeInvalidData   = "CREDENTIAL_INVALID_DATA"
	CodeMissing       = "CREDENTIAL_SOURCE_MISSING"
	CodeSchemaMissing = "CREDENTIAL_SCHEMA_MISSING"
	CodeClosed        = "CREDENTIAL_STORE_CLOSED"
	CodeNotLoaded     = "CREDENTIAL_NOT_LOADED"
)

// Credentials maps usernames to passwords.
type Credentials map[string]string

// Backend loads and saves the whole table at once.
type Backend interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// Store is the in-memory credential table. Every Set is written through to
// the backend before it returns.
type Store struct {
	mu      sync.RWMutex
	users   Credentials
	backend Backend
	logger  *slog.Logger
	loaded  bool
	closed  bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty store over backend. Call Load before serving.
func NewStore(backend Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, oops.Code("CREDENTIAL_INVALID_STORE").Errorf("backend is required")
	}
	s := &Store{users: Credentials{}, backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Load replaces the table with the backend's contents. On failure the
// table is left as it was.
func (s *Store) Load(ctx context.Context) error {
	loaded, err := s.backend.Load(ctx)
	if err != nil {
		return oops.Code(CodeLoadFailed).Wrap(err)
	}
	if loaded == nil {
		loaded = Credentials{}
	}

	s.mu.Lock()
	s.users = loaded
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("credentials loaded", "users", len(loaded))
	return nil
}

// Get returns the password stored for username.
func (s *Store) Get(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.users[username]
	return p, ok
}

// Contains reports whether username exists.
func (s *Store) Contains(username string) bool {
	_, ok := s.Get(username)
	return ok
}

// Len returns the number of users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Snapshot returns a copy of the table.
func (s *Store) Snapshot() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.users)
}

// Set upserts username and persists the whole table. If the backend
// rejects the write the previous value is restored.
func (s *Store) Set(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return oops.Code(CodeClosed).Errorf("credential store is closed")
	}
	// Saving a table that was never loaded would overwrite the backend.
	if !s.loaded {
		return oops.Code(CodeNotLoaded).Errorf("credential store has not been loaded")
	}

	prev, existed := s.users[username]
	s.users[username] = password

	if err := s.backend.Save(ctx, maps.Clone(s.users)); err != nil {
		if existed {
			s.users[username] = prev
		} else {
			delete(s.users, username)
		}
		return oops.Code(CodeSaveFailed).With("username", username).Wrap(err)
	}
	return nil
}

// Close flushes the table to the backend and releases it. A store that was
// never loaded is released without a flush. Further writes fail; reads keep
// working.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var saveErr error
	if s.loaded {
		saveErr = s.backend.Save(ctx, maps.Clone(s.users))
	}

	var closeErr error
	if c, ok := s.backend.(io.Closer); ok {
		closeErr = c.Close()
	}

	switch {
	case saveErr != nil:
		return oops.Code(CodeSaveFailed).With("operation", "flush on close").Wrap(saveErr)
	case closeErr != nil:
		return oops.Code("CREDENTIAL_CLOSE_FAILED").Wrap(closeErr)
	}
	if s.loaded {
		s.logger.Info("credentials flushed", "users", len(s.users))
	}
	return nil
}
