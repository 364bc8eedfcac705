// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth holds the in-memory authentication state of the service and
// the operations that read and mutate it.
//
// # State
//
// Three stores make up the state:
//   - a CredentialStore (username -> password), persisted by package credential
//   - a SessionRegistry (session id -> username), process lifetime, no expiry
//   - a ResetRegistry (username -> pending reset code), at most one per user
//
// # Services
//
// Service coordinates the stores. Every operation runs under one mutex so a
// read-modify-write across stores is a single critical section. Service
// returns oops errors with the codes declared in errors.go; mapping those
// codes to user-facing text is the caller's job.
//
// Passwords are compared as opaque strings. Hashing is out of scope.
package auth
