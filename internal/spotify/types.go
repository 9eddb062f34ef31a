package spotify

import (
	"strings"
	"time"
)

// Track contains the metadata the cleaner needs for one saved track.
// Immutable once fetched.
type Track struct {
	ID         string
	Name       string
	Artist     string // Comma-separated artist names
	Album      string
	DurationMs int
	AddedAt    time.Time // When the user saved the track; zero if unparseable
}

// Wire types for the Spotify Web API.
// Based on https://developer.spotify.com/documentation/web-api/reference/

type artistObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type albumObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type trackObject struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Artists    []artistObject `json:"artists"`
	Album      albumObject    `json:"album"`
	DurationMS int            `json:"duration_ms"`
}

type savedTrackObject struct {
	AddedAt string      `json:"added_at"`
	Track   trackObject `json:"track"`
}

type savedTracksPage struct {
	Items  []savedTrackObject `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
	Total  int                `json:"total"`
	Next   *string            `json:"next"`
}

type playHistoryObject struct {
	Track    trackObject `json:"track"`
	PlayedAt string      `json:"played_at"`
}

type recentlyPlayedPage struct {
	Items []playHistoryObject `json:"items"`
}

type topTracksPage struct {
	Items []trackObject `json:"items"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// convertSaved flattens a saved-track item into a Track.
func convertSaved(item savedTrackObject) Track {
	names := make([]string, len(item.Track.Artists))
	for i, a := range item.Track.Artists {
		names[i] = a.Name
	}

	// Zero value on parse failure; the selector treats it as old.
	addedAt, _ := time.Parse(time.RFC3339, item.AddedAt)

	return Track{
		ID:         item.Track.ID,
		Name:       item.Track.Name,
		Artist:     strings.Join(names, ", "),
		Album:      item.Track.Album.Name,
		DurationMs: item.Track.DurationMS,
		AddedAt:    addedAt,
	}
}
