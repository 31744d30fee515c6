package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const usernameQuery = `SELECT username FROM users WHERE id = $1`

// Repository looks up usernames by user id.
type Repository struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// NewRepository wraps the pgx pool as database/sql for the single lookup
// query this service runs.
func NewRepository(pool *pgxpool.Pool, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		DB:     stdlib.OpenDBFromPool(pool),
		Logger: logger,
	}
}

// Username resolves a user id to its display name. A missing row yields
// (nil, nil); a connection or query failure is returned to the caller, which
// treats it as non-fatal and proceeds without a username.
func (r *Repository) Username(ctx context.Context, userID string) (*string, error) {
	var username string
	err := r.DB.QueryRowContext(ctx, usernameQuery, userID).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		r.Logger.Warn("users.lookup.no_match", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		r.Logger.Error("users.lookup.query_failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	r.Logger.Info("users.lookup.ok", "user_id", userID, "username", username)
	return &username, nil
}
