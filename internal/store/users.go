package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/contentdeck/apiserver/types"
	"github.com/jmoiron/sqlx"
)

const userColumns = "id, username, email, password, name, bio, created_at"

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByUsername matches username case-insensitively.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, normalize(username))
}

// GetByLogin matches either the username or the email.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	return r.getOne(ctx, query, normalize(login))
}

// Exists reports whether any user already holds username or email.
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, normalize(username), normalize(email)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a user. A duplicate username or email returns ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (username, email, password, name, bio)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	var created types.User
	err := r.db.QueryRowxContext(
		ctx,
		query,
		normalize(user.Username),
		normalize(user.Email),
		user.PasswordHash,
		user.Name,
		user.Bio,
	).StructScan(&created)
	if err != nil {
		return types.User{}, writeError(err)
	}
	return created, nil
}

// UpdateProfile replaces the mutable profile fields of user id.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, name, bio string) (types.User, error) {
	const query = `
		UPDATE users
		SET name = $1,
			bio = $2
		WHERE id = $3
		RETURNING ` + userColumns
	var user types.User
	err := r.db.QueryRowxContext(ctx, query, name, bio, id).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, writeError(err)
	}
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (types.User, error) {
	var user types.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
