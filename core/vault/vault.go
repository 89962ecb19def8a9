// core/vault/vault.go

// The staking vault aggregate. Every public operation reads and writes the
// position ledger and, where money moves, consults the treasury guard before
// paying; the reward engine is invoked by all of them but owns no state.
//
// The vault has no internal concurrency: a single mutex serializes every
// public operation, so each executes as an atomic unit relative to all
// others. Operations finish all of their own state mutations before calling
// the custodian, and when the (atomic, all-or-nothing) custodian call fails
// they restore the exact prior state, so a rejection never leaves a partial
// mutation behind.

package vault

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/whaleden-mjtd/maitme-contracts-staking/config"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/account"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/reward"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/treasury"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

var (
	// ErrEmergencyActive marks stake/request attempts after the latch
	ErrEmergencyActive = errors.New("emergency latch is set")

	// ErrNotEmergency marks a drain attempt before the latch
	ErrNotEmergency = errors.New("emergency latch is not set")

	// ErrUnauthorized marks admin operations by non-admin callers
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrInvalidAmount marks zero, negative or over-principal amounts
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSubFloorRemainder marks a partial withdrawal that would leave a
	// non-zero remainder under the deposit floor
	ErrSubFloorRemainder = errors.New("remainder below minimum deposit")

	// ErrPendingWithdrawal marks claim/transfer on a frozen position
	ErrPendingWithdrawal = errors.New("position has a pending withdrawal")

	// ErrInvalidAddress marks malformed or zero addresses
	ErrInvalidAddress = errors.New("invalid address")

	// ErrSelfTransfer marks a transfer whose endpoints are the same account
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrNoPositions marks an emergency drain of an empty account
	ErrNoPositions = errors.New("account has no open positions")

	// ErrCustodian wraps failures reported by the token custodian
	ErrCustodian = errors.New("custodian transfer failed")
)

// Custodian is the token-custody layer the vault consumes. Both calls move
// the underlying asset atomically: they either fully succeed or fully fail,
// and they never re-enter the vault.
type Custodian interface {
	// PullIn moves the asset from an account into pool custody
	PullIn(from string, amount int64) error

	// PushOut moves the asset out of pool custody to an account
	PushOut(to string, amount int64) error
}

// NopCustodian is a custodian whose transfers always succeed, for
// deployments where custody is settled entirely outside the vault process
type NopCustodian struct{}

func (NopCustodian) PullIn(string, int64) error  { return nil }
func (NopCustodian) PushOut(string, int64) error { return nil }

// Authorizer is the capability check admin operations must pass. Role and
// permission management live outside the vault; this predicate is all the
// vault sees of them.
type Authorizer func(address string) bool

// Vault is the accounting core: position ledger, tier schedule, treasury,
// per-account withdrawal books and the emergency latch.
type Vault struct {
	mu sync.RWMutex

	ledger   *position.Ledger
	schedule *tiers.Schedule
	treasury *treasury.Treasury
	books    map[string]*withdrawal.Book

	custodian Custodian
	authorize Authorizer
	now       func() int64

	noticePeriod int64
	pendingCap   int

	emergency   bool
	totalStaked int64
}

// Option configures a vault at construction
type Option func(*Vault)

// WithClock replaces the wall clock, for deterministic tests
func WithClock(now func() int64) Option {
	return func(v *Vault) { v.now = now }
}

// WithAuthorizer installs the admin capability check. Without one, every
// admin operation is rejected.
func WithAuthorizer(auth Authorizer) Option {
	return func(v *Vault) { v.authorize = auth }
}

// NewVault builds a vault from its configuration, tier schedule and
// custodian. Reward-exempt accounts are fixed here and never mutated
// afterward.
func NewVault(cfg config.VaultConfig, schedule *tiers.Schedule, custodian Custodian, opts ...Option) (*Vault, error) {
	if custodian == nil {
		return nil, fmt.Errorf("custodian cannot be nil")
	}
	if cfg.MinDeposit <= 0 {
		return nil, fmt.Errorf("min deposit must be positive: %d", cfg.MinDeposit)
	}
	if cfg.MaxPositionsPerAccount <= 0 {
		return nil, fmt.Errorf("max positions per account must be positive: %d", cfg.MaxPositionsPerAccount)
	}
	if cfg.NoticePeriodSeconds < 0 {
		return nil, fmt.Errorf("notice period cannot be negative: %d", cfg.NoticePeriodSeconds)
	}
	if cfg.MaxPendingWithdrawals <= 0 {
		return nil, fmt.Errorf("max pending withdrawals must be positive: %d", cfg.MaxPendingWithdrawals)
	}

	v := &Vault{
		ledger:       position.NewLedger(cfg.MinDeposit, cfg.MaxPositionsPerAccount),
		schedule:     schedule,
		treasury:     treasury.New(),
		books:        make(map[string]*withdrawal.Book),
		custodian:    custodian,
		authorize:    func(string) bool { return false },
		now:          func() int64 { return time.Now().Unix() },
		noticePeriod: cfg.NoticePeriodSeconds,
		pendingCap:   cfg.MaxPendingWithdrawals,
	}

	for _, addr := range cfg.RewardExempt {
		normalized, err := account.Normalize(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: reward-exempt %s: %v", ErrInvalidAddress, addr, err)
		}
		v.ledger.MarkRewardExempt(normalized)
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// book returns the withdrawal book for an address, creating it on first use
func (v *Vault) book(address string) *withdrawal.Book {
	b, exists := v.books[address]
	if !exists {
		b = withdrawal.NewBook()
		v.books[address] = b
	}
	return b
}

// normalize validates and lowercases an address
func (v *Vault) normalize(address string) (string, error) {
	normalized, err := account.Normalize(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return normalized, nil
}

// exempt reports whether an account is founder-class
func (v *Vault) exempt(address string) bool {
	acc, exists := v.ledger.Account(address)
	return exists && acc.RewardExempt
}

// effectiveAsOf clamps an accrual instant to the freeze point of a pending
// withdrawal request, so elapsed time after the freeze contributes nothing
func (v *Vault) effectiveAsOf(owner string, positionID uint64, asOf int64) int64 {
	if b, exists := v.books[owner]; exists {
		if req, pending := b.Pending(positionID); pending && req.RequestedAt < asOf {
			return req.RequestedAt
		}
	}
	return asOf
}

// Stake locks a deposit into a fresh position and returns its id
func (v *Vault) Stake(addr string, amount int64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.emergency {
		return 0, fmt.Errorf("%w: staking is closed", ErrEmergencyActive)
	}

	owner, err := v.normalize(addr)
	if err != nil {
		return 0, err
	}

	pos, err := v.ledger.Open(owner, amount, v.now())
	if err != nil {
		return 0, err
	}
	v.totalStaked += amount

	if err := v.custodian.PullIn(owner, amount); err != nil {
		v.totalStaked -= amount
		_ = v.ledger.Discard(owner, pos.ID)
		return 0, fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	return pos.ID, nil
}

// Claim pays out the unclaimed reward of one position and advances its
// accrual checkpoint. A position with a pending withdrawal request cannot be
// claimed; only executing the withdrawal settles it.
func (v *Vault) Claim(addr string, positionID uint64) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return 0, err
	}

	pos, err := v.ledger.Owned(owner, positionID)
	if err != nil {
		return 0, err
	}

	if _, pending := v.book(owner).Pending(positionID); pending {
		return 0, fmt.Errorf("%w: %d", ErrPendingWithdrawal, positionID)
	}

	now := v.now()
	amount := reward.Accrue(pos, v.schedule, now, v.exempt(owner))
	if amount == 0 {
		return 0, nil
	}

	if !v.treasury.Pay(amount) {
		return 0, fmt.Errorf("%w: reward %d, balance %d",
			treasury.ErrInsufficientTreasury, amount, v.treasury.Balance())
	}

	prevCheckpoint := pos.Checkpoint
	pos.Checkpoint = now

	if err := v.custodian.PushOut(owner, amount); err != nil {
		pos.Checkpoint = prevCheckpoint
		v.treasury.Refund(amount)
		return 0, fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	return amount, nil
}

// ClaimAll settles every claimable position of an account in one payment,
// together with any reward banked by earlier under-funded withdrawal
// executions. Positions frozen by a pending withdrawal are skipped. The
// whole payment is rejected if the treasury cannot cover its total.
func (v *Vault) ClaimAll(addr string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	owner, err := v.normalize(addr)
	if err != nil {
		return 0, err
	}

	acc, exists := v.ledger.Account(owner)
	if !exists {
		return 0, nil
	}

	now := v.now()
	book := v.book(owner)
	isExempt := acc.RewardExempt

	var claimable []*position.Position
	total := acc.OwedRewards
	for _, pos := range acc.Positions {
		if _, pending := book.Pending(pos.ID); pending {
			continue
		}
		amount := reward.Accrue(pos, v.schedule, now, isExempt)
		if amount > 0 {
			claimable = append(claimable, pos)
			total += amount
		}
	}

	if total == 0 {
		return 0, nil
	}

	if !v.treasury.Pay(total) {
		return 0, fmt.Errorf("%w: reward %d, balance %d",
			treasury.ErrInsufficientTreasury, total, v.treasury.Balance())
	}

	prevOwed := acc.OwedRewards
	prevCheckpoints := make([]int64, len(claimable))
	for i, pos := range claimable {
		prevCheckpoints[i] = pos.Checkpoint
		pos.Checkpoint = now
	}
	acc.OwedRewards = 0

	if err := v.custodian.PushOut(owner, total); err != nil {
		for i, pos := range claimable {
			pos.Checkpoint = prevCheckpoints[i]
		}
		acc.OwedRewards = prevOwed
		v.treasury.Refund(total)
		return 0, fmt.Errorf("%w: %v", ErrCustodian, err)
	}

	return total, nil
}
