// core/vault/withdrawals.go

// The withdrawal-notice workflow layered on the ledger. A request freezes
// accrual at its timestamp; cancellation resumes the accrual clock without
// crediting the frozen interval (both the opened-at origin and the
// checkpoint advance by the frozen duration, so the excluded seconds never
// earn and never count toward tier age); execution settles the frozen-point
// reward through the treasury guard and then pays principal
// unconditionally.

package vault

import (
	"fmt"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/reward"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

// WithdrawalReceipt reports what an executed withdrawal actually moved
type WithdrawalReceipt struct {
	PositionID     uint64 `json:"position_id"`
	Principal      int64  `json:"principal"`
	Reward         int64  `json:"reward"`
	RewardDeferred int64  `json:"reward_deferred"`
	PositionClosed bool   `json:"position_closed"`
}

// RequestWithdraw opens a notice-period claim against a position. The
// requested amount must not exceed the principal and must not leave a
// non-zero remainder under the deposit floor. At most one pending request
// may target a position, and an account may hold at most the configured
// number of pending requests.
func (v *Vault) RequestWithdraw(addr string, positionID uint64, amount int64) (*withdrawal.Request, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.emergency {
		return nil, fmt.Errorf("%w: withdrawals move through emergency drain", ErrEmergencyActive)
	}

	owner, err := v.normalize(addr)
	if err != nil {
		return nil, err
	}

	pos, err := v.ledger.Owned(owner, positionID)
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > pos.Principal {
		return nil, fmt.Errorf("%w: requested %d exceeds principal %d", ErrInvalidAmount, amount, pos.Principal)
	}
	if remainder := pos.Principal - amount; remainder != 0 && remainder < v.ledger.MinDeposit() {
		return nil, fmt.Errorf("%w: remainder %d below floor %d",
			ErrSubFloorRemainder, remainder, v.ledger.MinDeposit())
	}

	now := v.now()
	req := &withdrawal.Request{
		PositionID:  positionID,
		Amount:      amount,
		RequestedAt: now,
		AvailableAt: now + v.noticePeriod,
	}

	if err := v.book(owner).Open(req, v.pendingCap); err != nil {
		return nil, err
	}

	return req, nil
}

// CancelWithdraw cancels a pending request and resumes the position's
// accrual clock at the point it was frozen
func (v *Vault) CancelWithdraw(addr string, positionID uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return err
	}

	pos, err := v.ledger.Owned(owner, positionID)
	if err != nil {
		return err
	}

	req, err := v.book(owner).Cancel(positionID)
	if err != nil {
		return err
	}

	if frozen := v.now() - req.RequestedAt; frozen > 0 {
		pos.OpenedAt += frozen
		pos.Checkpoint += frozen
	}

	return nil
}

// ExecuteWithdraw settles a pending request once its notice period has
// elapsed. The reward accrued up to the freeze point is paid only if the
// treasury covers it; otherwise it is banked on the account, claimable
// unchanged once the pool is replenished. Principal is paid in full either
// way, and the position is removed when it reaches zero.
func (v *Vault) ExecuteWithdraw(addr string, positionID uint64) (*WithdrawalReceipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return nil, err
	}

	pos, err := v.ledger.Owned(owner, positionID)
	if err != nil {
		return nil, err
	}

	now := v.now()
	book := v.book(owner)
	req, err := book.Execute(positionID, now)
	if err != nil {
		return nil, err
	}

	acc, _ := v.ledger.Account(owner)
	frozenReward := reward.Accrue(pos, v.schedule, req.RequestedAt, acc.RewardExempt)

	prevOpenedAt := pos.OpenedAt
	prevCheckpoint := pos.Checkpoint
	prevOwed := acc.OwedRewards

	receipt := &WithdrawalReceipt{
		PositionID: positionID,
		Principal:  req.Amount,
	}

	treasuryPaid := int64(0)
	if frozenReward > 0 {
		if v.treasury.Pay(frozenReward) {
			receipt.Reward = frozenReward
			treasuryPaid = frozenReward
		} else {
			acc.OwedRewards += frozenReward
			receipt.RewardDeferred = frozenReward
		}
	}

	// The reward up to the freeze point is settled either way, so the
	// checkpoint advances to it; the frozen notice interval is then
	// excluded from the accrual clock entirely.
	pos.Checkpoint = req.RequestedAt
	if frozen := now - req.RequestedAt; frozen > 0 {
		pos.OpenedAt += frozen
		pos.Checkpoint += frozen
	}

	pos.Principal -= req.Amount
	v.totalStaked -= req.Amount

	closed := pos.Principal == 0
	if closed {
		if err := v.ledger.Remove(owner, positionID); err != nil {
			return nil, err
		}
		receipt.PositionClosed = true
	}

	// Principal first: its payout is never blocked by reward handling
	if err := v.custodian.PushOut(owner, req.Amount); err != nil {
		if closed {
			v.ledger.Reattach(owner, []*position.Position{pos})
		}
		pos.Principal += req.Amount
		v.totalStaked += req.Amount
		pos.OpenedAt = prevOpenedAt
		pos.Checkpoint = prevCheckpoint
		acc.OwedRewards = prevOwed
		v.treasury.Refund(treasuryPaid)
		book.Reopen(positionID)
		return nil, fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	if receipt.Reward > 0 {
		if err := v.custodian.PushOut(owner, receipt.Reward); err != nil {
			// Principal already left custody; the reward falls back to
			// the banked path instead of failing the execution
			v.treasury.Refund(receipt.Reward)
			acc.OwedRewards += receipt.Reward
			receipt.RewardDeferred = receipt.Reward
			receipt.Reward = 0
		}
	}

	return receipt, nil
}
