// core/tiers/schedule.go

// Tier schedule for time-weighted interest. A deposit moves through six
// ordered bands as it ages; each band carries its own rate. Band boundaries
// are fixed at construction, only the rates are operator-mutable, and a rate
// change applies retroactively to all future accrual computations.

package tiers

import (
	"fmt"
	"math"
)

const (
	// TierCount is the fixed number of interest bands per position
	TierCount = 6

	// RatePrecision is the fixed-point denominator for rates: a rate of 500
	// means 5.00% annualized
	RatePrecision = 10_000

	// YearSeconds annualizes rates over a 360-day year, so a 180-day band
	// spans exactly half an annualized return
	YearSeconds = int64(360 * 24 * 60 * 60)

	// Unbounded marks the open end of the last band
	Unbounded = int64(math.MaxInt64)
)

// Band is one interest band: [Start, End) in seconds of position age, with
// End exclusive. A position exactly at End is already in the next band.
type Band struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
	Rate  int64 `json:"rate"`
}

// Schedule is an ordered, fixed-size table of bands. Boundaries never change
// after construction; rates change via UpdateRates only. The schedule itself
// carries no lock: the owning vault serializes all access.
type Schedule struct {
	bands [TierCount]Band
}

// NewSchedule builds a schedule and checks the band invariants: the first
// band starts at zero, bands are contiguous, and the last band is unbounded.
// EndSeconds of 0 (or Unbounded) on the final band means no upper boundary.
func NewSchedule(bands [TierCount]Band) (*Schedule, error) {
	if bands[0].Start != 0 {
		return nil, fmt.Errorf("first band must start at 0, got %d", bands[0].Start)
	}

	for i := 0; i < TierCount; i++ {
		if bands[i].Rate < 0 {
			return nil, fmt.Errorf("band %d rate cannot be negative: %d", i, bands[i].Rate)
		}

		if i == TierCount-1 {
			if bands[i].End == 0 {
				bands[i].End = Unbounded
			}
			if bands[i].End != Unbounded {
				return nil, fmt.Errorf("last band must be unbounded, got end %d", bands[i].End)
			}
			continue
		}

		if bands[i].End <= bands[i].Start {
			return nil, fmt.Errorf("band %d end %d must exceed start %d", i, bands[i].End, bands[i].Start)
		}
		if bands[i+1].Start != bands[i].End {
			return nil, fmt.Errorf("band %d starts at %d, band %d ends at %d: bands must be contiguous",
				i+1, bands[i+1].Start, i, bands[i].End)
		}
	}

	return &Schedule{bands: bands}, nil
}

// UpdateRates replaces every band rate in one operation. Boundaries are
// untouched. Rejects negative rates without applying any of them.
func (s *Schedule) UpdateRates(rates [TierCount]int64) error {
	for i, rate := range rates {
		if rate < 0 {
			return fmt.Errorf("tier %d rate cannot be negative: %d", i, rate)
		}
	}

	for i := range s.bands {
		s.bands[i].Rate = rates[i]
	}
	return nil
}

// Band returns the band at the given index
func (s *Schedule) Band(index int) (Band, error) {
	if index < 0 || index >= TierCount {
		return Band{}, fmt.Errorf("tier index out of range: %d", index)
	}
	return s.bands[index], nil
}

// Bands returns a copy of the full band table
func (s *Schedule) Bands() [TierCount]Band {
	return s.bands
}

// Rates returns the current rate of every band
func (s *Schedule) Rates() [TierCount]int64 {
	var rates [TierCount]int64
	for i, band := range s.bands {
		rates[i] = band.Rate
	}
	return rates
}

// TierFor returns the index of the band containing the given position age.
// Ages at or beyond every boundary fall into the last band.
func (s *Schedule) TierFor(age int64) int {
	for i := 0; i < TierCount-1; i++ {
		if age < s.bands[i].End {
			return i
		}
	}
	return TierCount - 1
}
