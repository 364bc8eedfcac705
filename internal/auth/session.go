// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"sync"
	"time"

	"github.com/samber/oops"
)

// MaxSessionIDAttempts bounds the draws Create makes before giving up on
// finding an id that is not already live.
const MaxSessionIDAttempts = 32

// Session is a live login session. Sessions do not expire; they end only
// through logout.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// SessionRegistry maps session ids to sessions.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	codes    CodeGenerator
	now      func() time.Time
}

// NewSessionRegistry creates an empty registry drawing ids from codes.
func NewSessionRegistry(codes CodeGenerator) *SessionRegistry {
	if codes == nil {
		codes = RandomCodes{}
	}
	return &SessionRegistry{
		sessions: make(map[string]Session),
		codes:    codes,
		now:      time.Now,
	}
}

// Create opens a session for username under an id that no live session
// holds.
func (r *SessionRegistry) Create(username string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range MaxSessionIDAttempts {
		id, err := r.codes.Next()
		if err != nil {
			return Session{}, oops.With("operation", "draw session id").Wrap(err)
		}
		if _, taken := r.sessions[id]; taken {
			continue
		}
		s := Session{ID: id, Username: username, CreatedAt: r.now()}
		r.sessions[id] = s
		return s, nil
	}
	return Session{}, oops.Code(CodeSessionIDExhausted).
		With("attempts", MaxSessionIDAttempts).
		With("live_sessions", len(r.sessions)).
		Errorf("no free session id after %d draws", MaxSessionIDAttempts)
}

// Resolve returns the username bound to id.
func (r *SessionRegistry) Resolve(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s.Username, ok
}

// Remove ends the session and reports whether it was live.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
