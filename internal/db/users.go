package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves a user by Spotify ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, display_name, email, profile_image_url, timeframe_months,
		       created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`
	var user User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.ProfileImageURL,
		&user.TimeframeMonths,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// Upsert creates or updates a user from their Spotify profile and records
// the login. Existing cleanup preferences survive a fresh login.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, display_name, email, profile_image_url, timeframe_months,
		                   created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			profile_image_url = EXCLUDED.profile_image_url,
			updated_at = NOW(),
			last_login_at = NOW()
		RETURNING timeframe_months, created_at, updated_at, last_login_at
	`
	if user.TimeframeMonths == 0 {
		user.TimeframeMonths = 6
	}
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.DisplayName,
		user.Email,
		user.ProfileImageURL,
		user.TimeframeMonths,
	).Scan(&user.TimeframeMonths, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// UpdateTimeframe stores the user's preferred cleanup window.
func (r *UserRepository) UpdateTimeframe(ctx context.Context, id string, months int) error {
	query := `
		UPDATE users
		SET timeframe_months = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, months)
	if err != nil {
		return fmt.Errorf("updating timeframe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
