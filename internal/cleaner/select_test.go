package cleaner

import (
	"reflect"
	"testing"
	"time"

	"github.com/pverell/spotify-liked-cleaner/internal/spotify"
)

var testCutoff = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func track(id string, addedAt time.Time) spotify.Track {
	return spotify.Track{ID: id, Name: "Track " + id, Artist: "Artist", AddedAt: addedAt}
}

func makeSignals(recent, top []string) spotify.Signals {
	s := spotify.Signals{
		RecentlyPlayed: make(map[string]struct{}),
		TopTracks:      make(map[string]struct{}),
	}
	for _, id := range recent {
		s.RecentlyPlayed[id] = struct{}{}
	}
	for _, id := range top {
		s.TopTracks[id] = struct{}{}
	}
	return s
}

func candidateIDs(candidates []Candidate) []string {
	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.Track.ID)
	}
	return ids
}

func TestSelect(t *testing.T) {
	old := testCutoff.AddDate(0, -2, 0)
	recent := testCutoff.AddDate(0, 2, 0)

	tests := []struct {
		name    string
		liked   []spotify.Track
		signals spotify.Signals
		want    []string
	}{
		{
			name:    "old unsignaled tracks are candidates",
			liked:   []spotify.Track{track("a", old), track("b", old)},
			signals: makeSignals(nil, nil),
			want:    []string{"a", "b"},
		},
		{
			name:    "recently played excluded",
			liked:   []spotify.Track{track("a", old), track("b", old)},
			signals: makeSignals([]string{"a"}, nil),
			want:    []string{"b"},
		},
		{
			name:    "top tracks excluded",
			liked:   []spotify.Track{track("a", old), track("b", old)},
			signals: makeSignals(nil, []string{"b"}),
			want:    []string{"a"},
		},
		{
			name:    "recently added excluded even without signals",
			liked:   []spotify.Track{track("a", recent), track("b", old)},
			signals: makeSignals(nil, nil),
			want:    []string{"b"},
		},
		{
			name:    "unknown add date counts as old",
			liked:   []spotify.Track{track("a", time.Time{})},
			signals: makeSignals(nil, nil),
			want:    []string{"a"},
		},
		{
			name:    "missing id skipped",
			liked:   []spotify.Track{track("", old), track("b", old)},
			signals: makeSignals(nil, nil),
			want:    []string{"b"},
		},
		{
			name:    "empty library",
			liked:   nil,
			signals: makeSignals([]string{"x"}, []string{"y"}),
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidateIDs(Select(tt.liked, tt.signals, testCutoff))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select() ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectNoCandidateInSignals(t *testing.T) {
	old := testCutoff.AddDate(0, -3, 0)
	liked := []spotify.Track{
		track("a", old), track("b", old), track("c", old), track("d", old),
	}
	signals := makeSignals([]string{"a", "c"}, []string{"c", "d"})

	for _, c := range Select(liked, signals, testCutoff) {
		if signals.Contains(c.Track.ID) {
			t.Errorf("candidate %q present in signal sets", c.Track.ID)
		}
	}
}

func TestSelectIdempotent(t *testing.T) {
	old := testCutoff.AddDate(0, -3, 0)
	liked := []spotify.Track{track("a", old), track("b", old), track("c", old)}
	signals := makeSignals([]string{"b"}, nil)

	first := Select(liked, signals, testCutoff)
	second := Select(liked, signals, testCutoff)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Select() on same snapshot differs:\n%v\n%v", first, second)
	}
}

func TestSelectDoesNotMutateInputs(t *testing.T) {
	old := testCutoff.AddDate(0, -3, 0)
	liked := []spotify.Track{track("a", old), track("b", old)}
	signals := makeSignals([]string{"a"}, []string{"x"})

	likedCopy := make([]spotify.Track, len(liked))
	copy(likedCopy, liked)
	recentCopy := map[string]struct{}{"a": {}}
	topCopy := map[string]struct{}{"x": {}}

	Select(liked, signals, testCutoff)

	if !reflect.DeepEqual(liked, likedCopy) {
		t.Error("Select() mutated the liked slice")
	}
	if !reflect.DeepEqual(signals.RecentlyPlayed, recentCopy) || !reflect.DeepEqual(signals.TopTracks, topCopy) {
		t.Error("Select() mutated the signal sets")
	}
}

func TestSelectReasons(t *testing.T) {
	old := testCutoff.AddDate(0, -3, 0)
	candidates := Select([]spotify.Track{track("a", old)}, makeSignals(nil, nil), testCutoff)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	want := []Reason{ReasonNotRecentlyPlayed, ReasonNotTopTrack, ReasonOutsideTimeframe}
	if !reflect.DeepEqual(candidates[0].Reasons, want) {
		t.Errorf("Reasons = %v, want %v", candidates[0].Reasons, want)
	}
}
