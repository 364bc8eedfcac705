// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"sync"
	"time"

	"github.com/samber/oops"
)

// ResetTicket is a pending password reset for one user.
type ResetTicket struct {
	Username string
	Code     string
	IssuedAt time.Time
}

// ResetRegistry holds at most one ResetTicket per username.
type ResetRegistry struct {
	mu      sync.Mutex
	tickets map[string]ResetTicket
	codes   CodeGenerator
	now     func() time.Time
}

// NewResetRegistry creates an empty registry drawing codes from codes.
func NewResetRegistry(codes CodeGenerator) *ResetRegistry {
	if codes == nil {
		codes = RandomCodes{}
	}
	return &ResetRegistry{
		tickets: make(map[string]ResetTicket),
		codes:   codes,
		now:     time.Now,
	}
}

// Issue draws a fresh code for username, replacing any earlier ticket.
func (r *ResetRegistry) Issue(username string) (ResetTicket, error) {
	code, err := r.codes.Next()
	if err != nil {
		return ResetTicket{}, oops.With("operation", "draw reset code").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t := ResetTicket{Username: username, Code: code, IssuedAt: r.now()}
	r.tickets[username] = t
	return t, nil
}

// Peek returns the pending ticket for username without consuming it.
func (r *ResetRegistry) Peek(username string) (ResetTicket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[username]
	return t, ok
}

// Consume removes the ticket for username.
func (r *ResetRegistry) Consume(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, username)
}

// Len returns the number of pending tickets.
func (r *ResetRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}
