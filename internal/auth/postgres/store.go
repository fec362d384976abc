// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package postgres implements auth.CredentialStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/knpvt5/auth/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

const selectUsers = `
	SELECT id, first_name, last_name, email, password_hash, created_at, updated_at
	FROM users
	ORDER BY created_at, id`

const deleteMissing = `DELETE FROM users WHERE NOT (id = ANY($1))`

const upsertUser = `
	INSERT INTO users (id, first_name, last_name, email, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		email = EXCLUDED.email,
		password_hash = EXCLUDED.password_hash,
		updated_at = EXCLUDED.updated_at`

// Store implements auth.CredentialStore using PostgreSQL.
// The unique index on lower(email) enforces email uniqueness natively.
type Store struct {
	pool poolIface
}

// NewStore creates a new Store.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// LoadAll returns every user row.
func (s *Store) LoadAll(ctx context.Context) ([]auth.User, error) {
	rows, err := s.pool.Query(ctx, selectUsers)
	if err != nil {
		return nil, auth.StoreUnavailable("query users", err)
	}
	defer rows.Close()

	users := []auth.User{}
	for rows.Next() {
		var (
			u  auth.User
			id string
		)
		if err := rows.Scan(&id, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, auth.StoreUnavailable("scan user row", err)
		}
		u.ID, err = ulid.Parse(id)
		if err != nil {
			return nil, oops.Code(auth.CodeStoreUnavailable).
				With("operation", "parse user id").
				With("user_id", id).
				Wrap(err)
		}
		u.CreatedAt = auth.Timestamp(u.CreatedAt)
		u.UpdatedAt = auth.Timestamp(u.UpdatedAt)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, auth.StoreUnavailable("iterate users", err)
	}
	return users, nil
}

// ReplaceAll deletes rows missing from users and upserts the rest in one
// transaction.
func (s *Store) ReplaceAll(ctx context.Context, users []auth.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return auth.StoreUnavailable("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx) //nolint:errcheck // the original error takes precedence
		}
	}()

	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].ID.String()
	}
	if _, err := tx.Exec(ctx, deleteMissing, ids); err != nil {
		return auth.StoreUnavailable("delete removed users", err)
	}

	for i := range users {
		u := &users[i]
		_, err := tx.Exec(ctx, upsertUser,
			u.ID.String(),
			u.FirstName,
			u.LastName,
			auth.NormalizeEmail(u.Email),
			u.PasswordHash,
			u.CreatedAt,
			u.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err, u)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return auth.StoreUnavailable("commit transaction", err)
	}
	committed = true
	return nil
}

func mapWriteError(err error, u *auth.User) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return oops.Code(auth.CodeEmailTaken).
			With("email", auth.NormalizeEmail(u.Email)).
			With("constraint", pgErr.ConstraintName).
			Errorf("email is already registered")
	}
	return oops.Code(auth.CodeStoreUnavailable).
		With("operation", "upsert user").
		With("user_id", u.ID.String()).
		Wrap(err)
}
