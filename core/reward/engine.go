// core/reward/engine.go

// Pure tier-compounding reward accrual. The engine owns no mutable state:
// every path that pays or displays reward (claim, withdrawal settlement,
// admin transfer queries, emergency drain) calls into this package with a
// position, the schedule and an as-of instant.
//
// Intermediate products (principal x rate x seconds) are computed on big.Int
// so they cannot overflow int64 for any realistic principal; the final
// amount is truncated integer division, matching fixed-point contract math.

package reward

import (
	"math/big"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
)

// Accrue computes the total unclaimed reward of a position as of the given
// instant. Reward-exempt accounts accrue nothing. Each band contributes
//
//	runningPrincipal * rate * overlap / (YearSeconds * RatePrecision)
//
// where overlap is the positive part of [max(checkpointAge, start),
// min(age, end)), and the contribution compounds into runningPrincipal for
// the bands that follow. runningPrincipal is local: the stored principal is
// only ever changed by an explicit claim or withdrawal.
func Accrue(pos *position.Position, schedule *tiers.Schedule, asOf int64, exempt bool) int64 {
	if exempt {
		return 0
	}

	age := asOf - pos.OpenedAt
	if age <= 0 {
		return 0
	}
	checkpointAge := pos.Checkpoint - pos.OpenedAt

	denominator := new(big.Int).Mul(
		big.NewInt(tiers.YearSeconds),
		big.NewInt(tiers.RatePrecision),
	)

	running := big.NewInt(pos.Principal)
	total := new(big.Int)

	for _, band := range schedule.Bands() {
		if age < band.Start {
			// Later bands are further out and contribute nothing
			break
		}

		from := checkpointAge
		if band.Start > from {
			from = band.Start
		}
		to := age
		if band.End < to {
			to = band.End
		}
		if to <= from {
			continue
		}

		part := new(big.Int).Mul(running, big.NewInt(band.Rate))
		part.Mul(part, big.NewInt(to-from))
		part.Div(part, denominator)

		total.Add(total, part)
		running.Add(running, part)
	}

	return total.Int64()
}

// CurrentTier returns the display tier of a position: the smallest-indexed
// band whose [start, end) contains the position's age, with end exclusive.
func CurrentTier(pos *position.Position, schedule *tiers.Schedule, asOf int64) int {
	age := asOf - pos.OpenedAt
	if age < 0 {
		age = 0
	}
	return schedule.TierFor(age)
}
