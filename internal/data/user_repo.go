package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jjstretton/pasta/internal/core"
	"github.com/jjstretton/pasta/internal/domain/model"
	apperrors "github.com/jjstretton/pasta/internal/errors"
)

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = model.ErrUserNotFound

// UserRepo resolves PASTA accounts.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `id, username, group_account, created_at`

// GetByID returns the user with the given id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername returns the user with the given username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// Ensure returns the named user, creating it when missing.
func (r *UserRepo) Ensure(ctx context.Context, username string, group bool) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.ValidationField("username", "username is required")
	}
	// The no-op update makes RETURNING yield the existing row on conflict.
	return r.getOne(ctx, `
		INSERT INTO users (username, group_account) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING `+userColumns,
		username, group,
	)
}

func (r *UserRepo) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Username, &u.GroupAccount, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

var _ core.UserRepository = (*UserRepo)(nil)
