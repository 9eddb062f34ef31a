// Package cleaner computes and executes liked-song cleanup runs: it selects
// saved tracks absent from recent listening signals and removes the confirmed
// candidates from the user's library.
package cleaner

import (
	"errors"
	"fmt"
	"time"

	"github.com/pverell/spotify-liked-cleaner/internal/spotify"
)

// ErrInvalidTimeframe is returned for month values outside the supported set.
var ErrInvalidTimeframe = errors.New("timeframe must be 3, 6, 9, or 12 months")

// Timeframe is the user-selected lookback window in months. It controls the
// library-age cutoff and which top-track ranges the signal fetch requests.
type Timeframe int

// Supported lookback windows.
const (
	Timeframe3Months  Timeframe = 3
	Timeframe6Months  Timeframe = 6
	Timeframe9Months  Timeframe = 9
	Timeframe12Months Timeframe = 12
)

// ParseTimeframe validates a month count from user input.
func ParseTimeframe(months int) (Timeframe, error) {
	switch tf := Timeframe(months); tf {
	case Timeframe3Months, Timeframe6Months, Timeframe9Months, Timeframe12Months:
		return tf, nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTimeframe, months)
	}
}

// Months returns the window length in months.
func (t Timeframe) Months() int {
	return int(t)
}

// Cutoff returns the add-date cutoff for this window: tracks saved before it
// are eligible for removal.
func (t Timeframe) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, -int(t), 0)
}

// TopRanges maps the window to the provider's top-track time ranges. The
// medium_term range spans roughly six months, so longer windows add
// long_term to avoid flagging tracks the user still plays occasionally.
func (t Timeframe) TopRanges() []spotify.TopTimeRange {
	if t > Timeframe6Months {
		return []spotify.TopTimeRange{spotify.TopRangeShort, spotify.TopRangeMedium, spotify.TopRangeLong}
	}
	return []spotify.TopTimeRange{spotify.TopRangeShort, spotify.TopRangeMedium}
}

func (t Timeframe) String() string {
	return fmt.Sprintf("%d months", int(t))
}
