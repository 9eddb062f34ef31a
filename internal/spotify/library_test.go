package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

// savedPage builds a saved-tracks page body for the given track ids.
func savedPage(total int, ids ...string) []byte {
	page := map[string]any{"total": total}
	items := make([]map[string]any, len(ids))
	for i, id := range ids {
		items[i] = map[string]any{
			"added_at": "2024-01-15T10:30:00Z",
			"track": map[string]any{
				"id":          id,
				"name":        "Track " + id,
				"artists":     []map[string]any{{"name": "Artist A"}, {"name": "Artist B"}},
				"album":       map[string]any{"id": "alb", "name": "Album"},
				"duration_ms": 180000,
			},
		}
	}
	page["items"] = items
	body, _ := json.Marshal(page)
	return body
}

func TestFetchAllLikedPagination(t *testing.T) {
	// Three pages of size 2, last page partial.
	pages := map[string][]string{
		"0": {"t1", "t2"},
		"2": {"t3", "t4"},
		"4": {"t5"},
	}
	var requested []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/tracks" {
			t.Errorf("path = %q, want /me/tracks", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit = %q, want 2", got)
		}
		offset := r.URL.Query().Get("offset")
		requested = append(requested, offset)
		ids, ok := pages[offset]
		if !ok {
			t.Errorf("unexpected offset %q", offset)
		}
		_, _ = w.Write(savedPage(5, ids...))
	}), WithPageSize(2))

	tracks, err := client.FetchAllLiked(context.Background())
	if err != nil {
		t.Fatalf("FetchAllLiked() error = %v", err)
	}

	want := []string{"t1", "t2", "t3", "t4", "t5"}
	if len(tracks) != len(want) {
		t.Fatalf("got %d tracks, want %d", len(tracks), len(want))
	}
	for i, id := range want {
		if tracks[i].ID != id {
			t.Errorf("tracks[%d].ID = %q, want %q", i, tracks[i].ID, id)
		}
	}
	if tracks[0].Artist != "Artist A, Artist B" {
		t.Errorf("Artist = %q, want joined names", tracks[0].Artist)
	}
	if tracks[0].Album != "Album" {
		t.Errorf("Album = %q", tracks[0].Album)
	}
	if want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC); !tracks[0].AddedAt.Equal(want) {
		t.Errorf("AddedAt = %v, want %v", tracks[0].AddedAt, want)
	}

	wantOffsets := []string{"0", "2", "4"}
	if len(requested) != len(wantOffsets) {
		t.Fatalf("requested offsets %v, want %v", requested, wantOffsets)
	}
	for i, o := range wantOffsets {
		if requested[i] != o {
			t.Errorf("request %d offset = %q, want %q", i, requested[i], o)
		}
	}
}

func TestFetchAllLikedEmptyLibrary(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(savedPage(0))
	}))

	tracks, err := client.FetchAllLiked(context.Background())
	if err != nil {
		t.Fatalf("FetchAllLiked() error = %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("got %d tracks, want 0", len(tracks))
	}
}

func TestFetchAllLikedRateLimitRetryAfter(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(savedPage(1, "t1"))
	}), WithPageSize(2))

	start := time.Now()
	tracks, err := client.FetchAllLiked(context.Background())
	if err != nil {
		t.Fatalf("FetchAllLiked() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("returned after %v, want >= 1s Retry-After wait", elapsed)
	}
	if calls != 2 {
		t.Errorf("API calls = %d, want 2 (same page retried once)", calls)
	}
	if len(tracks) != 1 || tracks[0].ID != "t1" {
		t.Errorf("tracks = %v, want exactly one t1", tracks)
	}
}

func TestFetchAllLikedRateLimitExhausted(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}), WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}))

	_, err := client.FetchAllLiked(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("FetchAllLiked() error = %v, want ErrRateLimited", err)
	}
	if calls != 3 {
		t.Errorf("API calls = %d, want 3 (attempt cap)", calls)
	}
}

func TestFetchAllLikedTransientThenSuccess(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(savedPage(1, "t1"))
	}), WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}))

	tracks, err := client.FetchAllLiked(context.Background())
	if err != nil {
		t.Fatalf("FetchAllLiked() error = %v", err)
	}
	if len(tracks) != 1 {
		t.Errorf("got %d tracks, want 1", len(tracks))
	}
}

func TestConvertSavedInvalidTimestamp(t *testing.T) {
	track := convertSaved(savedTrackObject{
		AddedAt: "not-a-timestamp",
		Track: trackObject{
			ID:      "t1",
			Name:    "Old Song",
			Artists: []artistObject{{Name: "Someone"}},
		},
	})
	if !track.AddedAt.IsZero() {
		t.Errorf("AddedAt = %v, want zero value", track.AddedAt)
	}
}
