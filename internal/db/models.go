package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Spotify user profile with cleanup preferences.
type User struct {
	ID              string
	DisplayName     string
	Email           string
	ProfileImageURL *string // nullable
	TimeframeMonths int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     *time.Time // nullable
}

// Session represents an authenticated web session with its OAuth token pair.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// CleanupSession records the aggregate outcome of one cleanup run. Only
// counts and timestamps are stored; individual track identifiers or titles
// never reach the database.
type CleanupSession struct {
	ID              uuid.UUID
	UserID          string
	Status          string // started, completed, completed_with_failures, failed, canceled
	TimeframeMonths int
	TotalLiked      int
	Scanned         int
	Removed         int
	Kept            int
	FailedRemovals  int
	SignalCount     int
	ErrorMessage    *string // nullable
	StartedAt       time.Time
	CompletedAt     *time.Time // nullable until the run finishes
}

// UserStats aggregates a user's completed cleanup history for the dashboard.
type UserStats struct {
	CompletedRuns int
	TotalRemoved  int
}
