package cleaner

import (
	"time"

	"github.com/pverell/spotify-liked-cleaner/internal/spotify"
)

// Reason explains why a track was selected for removal.
type Reason string

// Selection reasons. Every candidate carries all that apply.
const (
	ReasonNotRecentlyPlayed Reason = "not_recently_played"
	ReasonNotTopTrack       Reason = "not_top_track"
	ReasonOutsideTimeframe  Reason = "outside_timeframe"
)

// Candidate is a saved track selected for removal, with its reasons.
// Candidates are transient: they live for one cleanup run and are never
// persisted as track data.
type Candidate struct {
	Track   spotify.Track
	Reasons []Reason
}

// Select computes the removal candidates from a library snapshot.
//
// A liked track is a candidate when its id appears in neither signal set and
// it was saved before the cutoff. Tracks with an unknown save date (zero
// AddedAt) count as saved before the cutoff. Pure function: the same snapshot
// always yields the same candidates in library order, and no input is
// mutated.
func Select(liked []spotify.Track, signals spotify.Signals, cutoff time.Time) []Candidate {
	var candidates []Candidate

	for _, track := range liked {
		if track.ID == "" {
			continue
		}
		if _, ok := signals.RecentlyPlayed[track.ID]; ok {
			continue
		}
		if _, ok := signals.TopTracks[track.ID]; ok {
			continue
		}
		if !track.AddedAt.IsZero() && !track.AddedAt.Before(cutoff) {
			continue
		}

		candidates = append(candidates, Candidate{
			Track: track,
			Reasons: []Reason{
				ReasonNotRecentlyPlayed,
				ReasonNotTopTrack,
				ReasonOutsideTimeframe,
			},
		})
	}

	return candidates
}
