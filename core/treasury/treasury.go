// core/treasury/treasury.go

// Reward-payout pool, held apart from staked principal. Every reward payment
// in the vault goes through Pay, which enforces the single solvency rule: a
// reward of size R is executed only when the balance covers R. Principal is
// never gated by this pool.

package treasury

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount marks zero or negative fund/drain amounts
	ErrInvalidAmount = errors.New("treasury amount must be positive")

	// ErrInsufficientTreasury marks a payout the pool cannot cover
	ErrInsufficientTreasury = errors.New("treasury cannot cover payout")
)

// Treasury is the pooled reward balance
type Treasury struct {
	balance int64
}

// New creates an empty treasury
func New() *Treasury {
	return &Treasury{}
}

// Balance returns the current pool balance
func (t *Treasury) Balance() int64 {
	return t.balance
}

// Fund adds to the pool
func (t *Treasury) Fund(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	t.balance += amount
	return nil
}

// Drain removes from the pool, up to the current balance
func (t *Treasury) Drain(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > t.balance {
		return fmt.Errorf("%w: balance %d, drain %d", ErrInsufficientTreasury, t.balance, amount)
	}
	t.balance -= amount
	return nil
}

// CanCover reports whether the pool covers a reward of the given size
func (t *Treasury) CanCover(amount int64) bool {
	return amount <= t.balance
}

// Pay deducts a reward payment if the pool covers it and reports whether it
// did. Paying zero is a covered no-op.
func (t *Treasury) Pay(amount int64) bool {
	if amount < 0 {
		return false
	}
	if amount > t.balance {
		return false
	}
	t.balance -= amount
	return true
}

// Refund returns a deducted payment to the pool, for unwinding a custodial
// payout failure
func (t *Treasury) Refund(amount int64) {
	if amount > 0 {
		t.balance += amount
	}
}

// SetBalance restores the pool when loading persisted state
func (t *Treasury) SetBalance(balance int64) {
	t.balance = balance
}
