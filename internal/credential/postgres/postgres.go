// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres persists credentials in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"slices"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/credential"
)

// poolIface is the subset of *pgxpool.Pool the backend uses.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var credentialColumns = []string{"username", "password"}

// Backend loads the credentials table and replaces its contents on save.
type Backend struct {
	pool poolIface
}

// Connect opens a pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("CREDENTIAL_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return &Backend{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool poolIface) *Backend {
	return &Backend{pool: pool}
}

// Load reads every row of the credentials table.
func (b *Backend) Load(ctx context.Context) (credential.Credentials, error) {
	rows, err := b.pool.Query(ctx, `SELECT username, password FROM credentials`)
	if err != nil {
		return nil, mapError(err, "load credentials")
	}
	defer rows.Close()

	creds := credential.Credentials{}
	for rows.Next() {
		var username, password string
		if err := rows.Scan(&username, &password); err != nil {
			return nil, oops.Code(credential.CodeLoadFailed).With("operation", "scan credential row").Wrap(err)
		}
		creds[username] = password
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "iterate credentials")
	}
	return creds, nil
}

// Save replaces the table contents with creds in one transaction.
func (b *Backend) Save(ctx context.Context, creds credential.Credentials) (err error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return oops.Code(credential.CodeSaveFailed).With("operation", "begin").Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM credentials`); err != nil {
		return mapSaveError(err, "clear credentials")
	}

	usernames := make([]string, 0, len(creds))
	for u := range creds {
		usernames = append(usernames, u)
	}
	slices.Sort(usernames)

	rows := make([][]any, 0, len(usernames))
	for _, u := range usernames {
		rows = append(rows, []any{u, creds[u]})
	}
	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"credentials"}, credentialColumns, pgx.CopyFromRows(rows)); err != nil {
		return mapSaveError(err, "copy credentials")
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code(credential.CodeSaveFailed).With("operation", "commit").Wrap(err)
	}
	return nil
}

// Close releases the pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

func mapError(err error, operation string) error {
	if isUndefinedTable(err) {
		return oops.Code(credential.CodeSchemaMissing).
			With("operation", operation).
			Hint("run `userauth migrate up` first").
			Wrap(err)
	}
	return oops.Code(credential.CodeLoadFailed).With("operation", operation).Wrap(err)
}

func mapSaveError(err error, operation string) error {
	if isUndefinedTable(err) {
		return oops.Code(credential.CodeSchemaMissing).
			With("operation", operation).
			Hint("run `userauth migrate up` first").
			Wrap(err)
	}
	return oops.Code(credential.CodeSaveFailed).With("operation", operation).Wrap(err)
}
