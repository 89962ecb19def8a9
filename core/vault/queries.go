// core/vault/queries.go

package vault

import (
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/reward"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

// Positions returns copies of every open position of an account
func (v *Vault) Positions(addr string) ([]position.Position, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return nil, err
	}

	open := v.ledger.Positions(owner)
	out := make([]position.Position, len(open))
	for i, pos := range open {
		out[i] = *pos
	}
	return out, nil
}

// Position returns a copy of one position by id
func (v *Vault) Position(positionID uint64) (position.Position, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	pos, err := v.ledger.Get(positionID)
	if err != nil {
		return position.Position{}, err
	}
	return *pos, nil
}

// UnclaimedReward computes the unclaimed reward of one position as of now,
// frozen at the request time while a withdrawal is pending
func (v *Vault) UnclaimedReward(positionID uint64) (int64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	pos, err := v.ledger.Get(positionID)
	if err != nil {
		return 0, err
	}

	asOf := v.effectiveAsOf(pos.Owner, positionID, v.now())
	return reward.Accrue(pos, v.schedule, asOf, v.exempt(pos.Owner)), nil
}

// AccountReward sums the unclaimed reward over every open position of an
// account, plus any reward banked by under-funded withdrawal executions
func (v *Vault) AccountReward(addr string) (int64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return 0, err
	}

	acc, exists := v.ledger.Account(owner)
	if !exists {
		return 0, nil
	}

	now := v.now()
	total := acc.OwedRewards
	for _, pos := range acc.Positions {
		asOf := v.effectiveAsOf(owner, pos.ID, now)
		total += reward.Accrue(pos, v.schedule, asOf, acc.RewardExempt)
	}
	return total, nil
}

// CurrentTier returns the display tier of a position, using the frozen
// instant while a withdrawal is pending
func (v *Vault) CurrentTier(positionID uint64) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	pos, err := v.ledger.Get(positionID)
	if err != nil {
		return 0, err
	}

	asOf := v.effectiveAsOf(pos.Owner, positionID, v.now())
	return reward.CurrentTier(pos, v.schedule, asOf), nil
}

// TierConfig returns one band of the schedule by index
func (v *Vault) TierConfig(index int) (tiers.Band, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.schedule.Band(index)
}

// TierSchedule returns the full band table
func (v *Vault) TierSchedule() [tiers.TierCount]tiers.Band {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.schedule.Bands()
}

// TreasuryBalance returns the reward pool balance
func (v *Vault) TreasuryBalance() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.treasury.Balance()
}

// TotalStaked returns the sum of every open position's principal
func (v *Vault) TotalStaked() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalStaked
}

// WithdrawalRequests returns an account's request history; activeOnly
// narrows it to the live pending ones
func (v *Vault) WithdrawalRequests(addr string, activeOnly bool) ([]withdrawal.Request, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return nil, err
	}

	b, exists := v.books[owner]
	if !exists {
		return nil, nil
	}

	var reqs []*withdrawal.Request
	if activeOnly {
		reqs = b.Active()
	} else {
		reqs = b.History()
	}

	out := make([]withdrawal.Request, len(reqs))
	for i, req := range reqs {
		out[i] = *req
	}
	return out, nil
}

// PendingWithdrawals returns an account's live request count
func (v *Vault) PendingWithdrawals(addr string) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return 0, err
	}

	b, exists := v.books[owner]
	if !exists {
		return 0, nil
	}
	return b.PendingCount(), nil
}

// IsRewardExempt reports whether an account is founder-class
func (v *Vault) IsRewardExempt(addr string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return false, err
	}
	return v.exempt(owner), nil
}

// EmergencyActive reports whether the one-way latch has been set
func (v *Vault) EmergencyActive() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.emergency
}

// Status summarizes the vault for operational endpoints
func (v *Vault) Status() map[string]interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()

	openPositions := 0
	for _, acc := range v.ledger.Accounts() {
		openPositions += len(acc.Positions)
	}

	return map[string]interface{}{
		"total_staked":     v.totalStaked,
		"treasury_balance": v.treasury.Balance(),
		"accounts":         len(v.ledger.Accounts()),
		"open_positions":   openPositions,
		"next_position_id": v.ledger.NextID(),
		"emergency":        v.emergency,
	}
}
