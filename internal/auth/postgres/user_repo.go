// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package postgres implements the auth storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/authkeep/internal/auth"
)

// Pool is the subset of *pgxpool.Pool used by the repositories.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, hashed_password, session_id, session_created_at, reset_token, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Add stores a new user.
func (r *UserRepository) Add(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password)
		VALUES ($1, $2)
		RETURNING `+userColumns,
		email, hashedPassword,
	)

	user, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, oops.Code("USER_EMAIL_TAKEN").
			With("email", email).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// Find returns the lowest-id user matching criteria.
func (r *UserRepository) Find(ctx context.Context, criteria auth.Criteria) (*auth.User, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	where, args := whereClause(criteria)
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY id LIMIT 1`, args...)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("criteria", criteria.Keys()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("criteria", criteria.Keys()).
			Wrap(err)
	}
	return user, nil
}

// Search returns all users matching criteria ordered by id.
func (r *UserRepository) Search(ctx context.Context, criteria auth.Criteria) ([]*auth.User, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	where, args := whereClause(criteria)
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, oops.Code("USER_SEARCH_FAILED").
			With("operation", "search users").
			With("criteria", criteria.Keys()).
			Wrap(err)
	}
	defer rows.Close()

	users := []*auth.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_SEARCH_FAILED").
				With("operation", "scan user row").
				Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_SEARCH_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return users, nil
}

// Update applies fields to the user in a single statement.
func (r *UserRepository) Update(ctx context.Context, id int64, fields auth.Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}

	keys := fields.Keys()
	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for i, name := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, fields.Value(name))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	result, err := r.pool.Exec(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+fmt.Sprintf(` WHERE id = $%d`, len(args)),
		args...,
	)
	if isUniqueViolation(err) {
		return oops.Code("USER_UNIQUE_VIOLATION").
			With("id", id).
			With("fields", keys).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// whereClause builds an AND of equality tests. Column names come from the
// validated criteria keys.
func whereClause(criteria auth.Criteria) (string, []any) {
	keys := criteria.Keys()
	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, name := range keys {
		conds = append(conds, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, criteria.Value(name))
	}
	return strings.Join(conds, " AND "), args
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.SessionID,
		&u.SessionCreatedAt,
		&u.ResetToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
