// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// CredentialStore is the username -> password table the service authenticates
// against. Set must persist before returning and leave memory unchanged when
// persisting fails.
type CredentialStore interface {
	Get(username string) (string, bool)
	Contains(username string) bool
	Set(ctx context.Context, username, password string) error
}

// Service provides login, logout, registration and password reset.
type Service struct {
	mu          sync.Mutex
	credentials CredentialStore
	sessions    *SessionRegistry
	resets      *ResetRegistry
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSessionRegistry replaces the default session registry.
func WithSessionRegistry(r *SessionRegistry) ServiceOption {
	return func(s *Service) { s.sessions = r }
}

// WithResetRegistry replaces the default reset registry.
func WithResetRegistry(r *ResetRegistry) ServiceOption {
	return func(s *Service) { s.resets = r }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over credentials.
func NewService(credentials CredentialStore, opts ...ServiceOption) (*Service, error) {
	if credentials == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("credential store is required")
	}
	s := &Service{credentials: credentials}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = NewSessionRegistry(nil)
	}
	if s.resets == nil {
		s.resets = NewResetRegistry(nil)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Login checks username and password and opens a session. Unknown users and
// wrong passwords fail with the same CodeInvalidCredentials error.
func (s *Service) Login(_ context.Context, username, password string) (Session, error) {
	if username == "" || password == "" {
		return Session{}, oops.Code(CodeMissingField).Errorf("username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.credentials.Get(username)
	if !ok || !secretsEqual(stored, password) {
		return Session{}, oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
	}

	session, err := s.sessions.Create(username)
	if err != nil {
		return Session{}, oops.Code(CodeLoginFailed).With("username", username).Wrap(err)
	}
	s.logger.Debug("session opened", "username", username)
	return session, nil
}

// Logout ends the session with the given id and returns its username.
func (s *Service) Logout(_ context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", oops.Code(CodeMissingField).Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.sessions.Resolve(sessionID)
	if !ok || !s.sessions.Remove(sessionID) {
		return "", oops.Code(CodeSessionNotFound).Errorf("invalid or expired session id")
	}
	s.logger.Debug("session closed", "username", username)
	return username, nil
}

// Register adds a new user. Existing usernames are never overwritten.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return oops.Code(CodeMissingField).Errorf("username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credentials.Contains(username) {
		return oops.Code(CodeUsernameTaken).With("username", username).Errorf("username already exists")
	}
	if err := s.credentials.Set(ctx, username, password); err != nil {
		return oops.Code(CodeRegisterFailed).With("username", username).Wrap(err)
	}
	s.logger.Info("user registered", "username", username)
	return nil
}

// RequestReset issues a reset code for an existing user, replacing any
// code issued before.
func (s *Service) RequestReset(_ context.Context, username string) (ResetTicket, error) {
	if username == "" {
		return ResetTicket{}, oops.Code(CodeMissingField).Errorf("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.credentials.Contains(username) {
		return ResetTicket{}, oops.Code(CodeUserNotFound).With("username", username).Errorf("username not found")
	}
	ticket, err := s.resets.Issue(username)
	if err != nil {
		return ResetTicket{}, oops.Code(CodeResetFailed).With("username", username).Wrap(err)
	}
	s.logger.Info("reset code issued", "username", username)
	return ticket, nil
}

// ResetPassword replaces the user's password when code matches the pending
// ticket. The ticket is consumed only after the new password is persisted;
// rejected attempts leave it in place.
func (s *Service) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	if username == "" || code == "" || newPassword == "" {
		return oops.Code(CodeMissingField).Errorf("username, reset code and new password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.resets.Peek(username)
	if !ok {
		return oops.Code(CodeResetNotFound).With("username", username).Errorf("no reset code found for this user")
	}
	if !secretsEqual(ticket.Code, code) {
		return oops.Code(CodeResetCodeMismatch).With("username", username).Errorf("invalid reset code")
	}
	if err := s.credentials.Set(ctx, username, newPassword); err != nil {
		return oops.Code(CodeResetFailed).With("username", username).Wrap(err)
	}
	s.resets.Consume(username)
	s.logger.Info("password reset", "username", username)
	return nil
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}

// PendingResets returns the number of outstanding reset tickets.
func (s *Service) PendingResets() int {
	return s.resets.Len()
}
