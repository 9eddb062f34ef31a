package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// TopTimeRange selects the aggregation window for the top-tracks signal.
type TopTimeRange string

// Provider-defined time ranges.
const (
	TopRangeShort  TopTimeRange = "short_term"  // ~4 weeks
	TopRangeMedium TopTimeRange = "medium_term" // ~6 months
	TopRangeLong   TopTimeRange = "long_term"   // several years
)

// signalLimit is the provider maximum for both signal endpoints.
const signalLimit = 50

// Signals holds the track identifiers seen in each recent-listening source.
//
// Absence from both sets is a heuristic proxy for "not played recently": the
// provider exposes no per-track last-played timestamp, only these two bounded
// windows (the ~50 most recent plays and the top 50 per time range). The
// imprecision is inherent to the API and deliberately not compensated for.
type Signals struct {
	RecentlyPlayed map[string]struct{}
	TopTracks      map[string]struct{}
}

// Contains reports whether id appears in either signal set.
func (s Signals) Contains(id string) bool {
	if _, ok := s.RecentlyPlayed[id]; ok {
		return true
	}
	_, ok := s.TopTracks[id]
	return ok
}

// Size returns the number of distinct identifiers across both sets.
func (s Signals) Size() int {
	n := len(s.RecentlyPlayed)
	for id := range s.TopTracks {
		if _, ok := s.RecentlyPlayed[id]; !ok {
			n++
		}
	}
	return n
}

// FetchRecentSignals retrieves the recently-played tracks and the top tracks
// for each given time range. The two endpoints are independent read-only
// calls on the same account.
func (c *Client) FetchRecentSignals(ctx context.Context, ranges []TopTimeRange) (Signals, error) {
	signals := Signals{
		RecentlyPlayed: make(map[string]struct{}),
		TopTracks:      make(map[string]struct{}),
	}

	recent, err := c.fetchRecentlyPlayed(ctx)
	if err != nil {
		return Signals{}, err
	}
	for _, id := range recent {
		signals.RecentlyPlayed[id] = struct{}{}
	}

	for _, r := range ranges {
		top, err := c.fetchTopTracks(ctx, r)
		if err != nil {
			return Signals{}, err
		}
		for _, id := range top {
			signals.TopTracks[id] = struct{}{}
		}
	}

	c.logger.Debug("fetched listening signals",
		"recently_played", len(signals.RecentlyPlayed),
		"top_tracks", len(signals.TopTracks))

	return signals, nil
}

func (c *Client) fetchRecentlyPlayed(ctx context.Context) ([]string, error) {
	query := url.Values{"limit": {fmt.Sprint(signalLimit)}}

	body, err := c.doRequest(ctx, http.MethodGet, "/me/player/recently-played", query)
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	var page recentlyPlayedPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing recently played: %w", err)
	}

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track.ID != "" {
			ids = append(ids, item.Track.ID)
		}
	}
	return ids, nil
}

func (c *Client) fetchTopTracks(ctx context.Context, timeRange TopTimeRange) ([]string, error) {
	query := url.Values{
		"limit":      {fmt.Sprint(signalLimit)},
		"time_range": {string(timeRange)},
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/me/top/tracks", query)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks (%s): %w", timeRange, err)
	}

	var page topTracksPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parsing top tracks: %w", err)
	}

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		if item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}
