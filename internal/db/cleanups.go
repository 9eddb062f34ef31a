package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CleanupRepository handles cleanup-session database operations.
type CleanupRepository struct {
	pool *pgxpool.Pool
}

// Start inserts a new cleanup session in the started state and assigns its ID.
func (r *CleanupRepository) Start(ctx context.Context, userID string, timeframeMonths int) (*CleanupSession, error) {
	session := &CleanupSession{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          "started",
		TimeframeMonths: timeframeMonths,
	}

	query := `
		INSERT INTO cleanup_sessions (id, user_id, status, timeframe_months, started_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING started_at
	`
	err := r.pool.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.Status,
		session.TimeframeMonths,
	).Scan(&session.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting cleanup session: %w", err)
	}
	return session, nil
}

// Complete records the final aggregates of a finished run.
func (r *CleanupRepository) Complete(ctx context.Context, session *CleanupSession) error {
	query := `
		UPDATE cleanup_sessions
		SET status = $2, total_liked = $3, scanned = $4, removed = $5, kept = $6,
		    failed_removals = $7, signal_count = $8, completed_at = $9
		WHERE id = $1
	`
	now := time.Now()
	result, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Status,
		session.TotalLiked,
		session.Scanned,
		session.Removed,
		session.Kept,
		session.FailedRemovals,
		session.SignalCount,
		now,
	)
	if err != nil {
		return fmt.Errorf("completing cleanup session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	session.CompletedAt = &now
	return nil
}

// Fail marks a run as failed with its error message.
func (r *CleanupRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE cleanup_sessions
		SET status = 'failed', error_message = $2, completed_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, message)
	if err != nil {
		return fmt.Errorf("failing cleanup session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns a user's most recent cleanup sessions, newest first.
func (r *CleanupRepository) ListForUser(ctx context.Context, userID string, limit int) ([]CleanupSession, error) {
	query := `
		SELECT id, user_id, status, timeframe_months, total_liked, scanned, removed,
		       kept, failed_removals, signal_count, error_message, started_at, completed_at
		FROM cleanup_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cleanup sessions: %w", err)
	}
	defer rows.Close()

	var sessions []CleanupSession
	for rows.Next() {
		var session CleanupSession
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Status,
			&session.TimeframeMonths,
			&session.TotalLiked,
			&session.Scanned,
			&session.Removed,
			&session.Kept,
			&session.FailedRemovals,
			&session.SignalCount,
			&session.ErrorMessage,
			&session.StartedAt,
			&session.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning cleanup session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// StatsForUser aggregates a user's completed runs for the dashboard.
func (r *CleanupRepository) StatsForUser(ctx context.Context, userID string) (*UserStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(removed), 0)
		FROM cleanup_sessions
		WHERE user_id = $1 AND status IN ('completed', 'completed_with_failures')
	`
	var stats UserStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(&stats.CompletedRuns, &stats.TotalRemoved)
	if err != nil {
		return nil, fmt.Errorf("querying cleanup stats: %w", err)
	}
	return &stats, nil
}
