// core/vault/admin.go

// Administrative operations: cross-account position transfer, treasury
// funding and draining, rate updates, the one-way emergency latch and the
// per-account emergency unwind. Every one of them passes through the
// injected authorization predicate; the vault never decides roles itself.

package vault

import (
	"fmt"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/account"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/reward"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
)

// DrainReceipt reports what an emergency drain actually moved
type DrainReceipt struct {
	Account        string `json:"account"`
	Positions      int    `json:"positions"`
	Principal      int64  `json:"principal"`
	Reward         int64  `json:"reward"`
	RewardDeferred int64  `json:"reward_deferred"`
}

// AdminTransfer moves a position between accounts, preserving its id,
// opened-at and accrual checkpoint. Unclaimed reward travels with the
// position and becomes claimable by the new owner; nothing is settled.
// Positions with a live pending withdrawal cannot be transferred.
func (v *Vault) AdminTransfer(caller, from string, positionID uint64, to string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	caller, err := v.normalize(caller)
	if err != nil {
		return err
	}
	if !v.authorize(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	fromAddr, err := v.normalize(from)
	if err != nil {
		return err
	}
	toAddr, err := v.normalize(to)
	if err != nil {
		return err
	}

	if account.IsZero(fromAddr) || account.IsZero(toAddr) {
		return fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	if fromAddr == toAddr {
		return fmt.Errorf("%w: %s", ErrSelfTransfer, toAddr)
	}

	if _, err := v.ledger.Owned(fromAddr, positionID); err != nil {
		return err
	}
	if _, pending := v.book(fromAddr).Pending(positionID); pending {
		return fmt.Errorf("%w: %d", ErrPendingWithdrawal, positionID)
	}

	return v.ledger.Transfer(fromAddr, positionID, toAddr)
}

// DepositTreasury funds the reward pool
func (v *Vault) DepositTreasury(caller string, amount int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	caller, err := v.normalize(caller)
	if err != nil {
		return err
	}
	if !v.authorize(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	if err := v.treasury.Fund(amount); err != nil {
		return err
	}

	if err := v.custodian.PullIn(caller, amount); err != nil {
		_ = v.treasury.Drain(amount)
		return fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	return nil
}

// WithdrawTreasury drains the reward pool back to the caller
func (v *Vault) WithdrawTreasury(caller string, amount int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	caller, err := v.normalize(caller)
	if err != nil {
		return err
	}
	if !v.authorize(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	if err := v.treasury.Drain(amount); err != nil {
		return err
	}

	if err := v.custodian.PushOut(caller, amount); err != nil {
		v.treasury.Refund(amount)
		return fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	return nil
}

// UpdateTierRates replaces every band rate. The change applies retroactively
// to all future accrual computations; rates are never stamped per position.
func (v *Vault) UpdateTierRates(caller string, rates [tiers.TierCount]int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	caller, err := v.normalize(caller)
	if err != nil {
		return err
	}
	if !v.authorize(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	return v.schedule.UpdateRates(rates)
}

// SetEmergency sets the one-way emergency latch. Once set, staking and new
// withdrawal requests are rejected and per-account drains become available.
// Setting it again is a no-op; there is no way back.
func (v *Vault) SetEmergency(caller string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	caller, err := v.normalize(caller)
	if err != nil {
		return err
	}
	if !v.authorize(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	v.emergency = true
	return nil
}

// EmergencyDrain unwinds every open position of one account: full principal
// is always paid, accrued reward is paid only while the treasury covers the
// cumulative total for this call, and all position and pending-withdrawal
// bookkeeping is cleared in one pass. Callable by the account itself or an
// authorized admin, only while the latch is set.
func (v *Vault) EmergencyDrain(caller, addr string) (*DrainReceipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.emergency {
		return nil, ErrNotEmergency
	}

	caller, err := v.normalize(caller)
	if err != nil {
		return nil, err
	}
	owner, err := v.normalize(addr)
	if err != nil {
		return nil, err
	}

	if !v.authorize(caller) && caller != owner {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	acc, exists := v.ledger.Account(owner)
	if !exists || len(acc.Positions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPositions, owner)
	}

	now := v.now()
	book := v.book(owner)
	isExempt := acc.RewardExempt

	receipt := &DrainReceipt{Account: owner, Positions: len(acc.Positions)}

	// Best-effort reward pass: each position's reward (frozen at its
	// request time where a withdrawal is pending) is paid only while the
	// treasury keeps covering the running total
	treasuryPaid := int64(0)
	for _, pos := range acc.Positions {
		asOf := v.effectiveAsOf(owner, pos.ID, now)
		amount := reward.Accrue(pos, v.schedule, asOf, isExempt)
		if amount > 0 && v.treasury.Pay(amount) {
			receipt.Reward += amount
			treasuryPaid += amount
		}
	}

	prevOwed := acc.OwedRewards
	if prevOwed > 0 && v.treasury.Pay(prevOwed) {
		receipt.Reward += prevOwed
		treasuryPaid += prevOwed
		acc.OwedRewards = 0
	}

	cleared := v.ledger.Clear(owner)
	for _, pos := range cleared {
		receipt.Principal += pos.Principal
	}
	v.totalStaked -= receipt.Principal
	cancelled := book.CancelAll()

	if err := v.custodian.PushOut(owner, receipt.Principal); err != nil {
		v.ledger.Reattach(owner, cleared)
		v.totalStaked += receipt.Principal
		v.treasury.Refund(treasuryPaid)
		acc.OwedRewards = prevOwed
		for _, req := range cancelled {
			book.Reopen(req.PositionID)
		}
		return nil, fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	if receipt.Reward > 0 {
		if err := v.custodian.PushOut(owner, receipt.Reward); err != nil {
			// Principal already left custody; the reward falls back to
			// the banked path and stays claimable
			v.treasury.Refund(receipt.Reward)
			acc.OwedRewards += receipt.Reward
			receipt.RewardDeferred = receipt.Reward
			receipt.Reward = 0
		}
	}

	return receipt, nil
}
