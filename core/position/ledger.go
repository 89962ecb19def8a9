// core/position/ledger.go

// Position ledger for the staking vault. Each account owns a growable array
// of positions plus a parallel id->slot index; removal swaps the last element
// into the vacated slot and pops, so insert, remove and lookup are all O(1)
// and no id is ever reused. A global id->owner index resolves positions
// without scanning accounts.

package position

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPosition marks lookups of ids that are not open
	ErrUnknownPosition = errors.New("unknown position")

	// ErrBelowMinimum marks deposits under the configured floor
	ErrBelowMinimum = errors.New("deposit below minimum")

	// ErrTooManyPositions marks an account at its open-position cap
	ErrTooManyPositions = errors.New("position limit reached")

	// ErrNotOwner marks operations on a position by a non-owner
	ErrNotOwner = errors.New("position not owned by account")
)

// Position is one deposit lot with its own principal and accrual clock.
//
// OpenedAt is the origin of the position's accrual clock. It equals the
// wall-clock open time until a withdrawal notice interval is excluded from
// accrual, at which point both OpenedAt and Checkpoint advance by the frozen
// duration so the excluded seconds never earn and never count toward tier
// age. Checkpoint is the instant from which unclaimed reward is computed.
type Position struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner"`
	Principal  int64  `json:"principal"`
	OpenedAt   int64  `json:"opened_at"`
	Checkpoint int64  `json:"checkpoint"`
}

// Account holds one participant's open positions and ledger-scoped flags
type Account struct {
	Address      string
	Positions    []*Position
	RewardExempt bool

	// OwedRewards banks reward that was settled at withdrawal execution but
	// could not be paid because the treasury was short; it stays claimable
	// unchanged until the treasury is replenished.
	OwedRewards int64

	slots map[uint64]int // position id -> index into Positions
}

// Ledger owns every account's position collection. The next-id counter and
// the indexes are fields of this aggregate, not package globals. The ledger
// carries no lock of its own: the vault serializes every operation.
type Ledger struct {
	accounts     map[string]*Account
	owners       map[uint64]string // position id -> owner address
	nextID       uint64
	minDeposit   int64
	maxPositions int
}

// NewLedger creates an empty ledger with the given deposit floor and
// per-account open-position cap
func NewLedger(minDeposit int64, maxPositions int) *Ledger {
	return &Ledger{
		accounts:     make(map[string]*Account),
		owners:       make(map[uint64]string),
		nextID:       1,
		minDeposit:   minDeposit,
		maxPositions: maxPositions,
	}
}

// account returns the record for an address, creating it on first use
func (l *Ledger) account(address string) *Account {
	if acc, exists := l.accounts[address]; exists {
		return acc
	}

	acc := &Account{
		Address: address,
		slots:   make(map[uint64]int),
	}
	l.accounts[address] = acc
	return acc
}

// MarkRewardExempt flags an account as founder-class (zero accrual). Called
// only during vault initialization, never afterward.
func (l *Ledger) MarkRewardExempt(address string) {
	l.account(address).RewardExempt = true
}

// Open creates a new position with principal=amount and both timestamps set
// to now, and returns it. Rejects amounts under the floor and accounts at
// the open-position cap without any state change.
func (l *Ledger) Open(owner string, amount, now int64) (*Position, error) {
	if amount < l.minDeposit {
		return nil, fmt.Errorf("%w: %d < %d", ErrBelowMinimum, amount, l.minDeposit)
	}

	acc := l.account(owner)
	if len(acc.Positions) >= l.maxPositions {
		return nil, fmt.Errorf("%w: account %s already holds %d positions",
			ErrTooManyPositions, owner, len(acc.Positions))
	}

	pos := &Position{
		ID:         l.nextID,
		Owner:      owner,
		Principal:  amount,
		OpenedAt:   now,
		Checkpoint: now,
	}
	l.nextID++

	l.attach(acc, pos)
	return pos, nil
}

// attach appends a position to an account and updates both indexes
func (l *Ledger) attach(acc *Account, pos *Position) {
	pos.Owner = acc.Address
	acc.slots[pos.ID] = len(acc.Positions)
	acc.Positions = append(acc.Positions, pos)
	l.owners[pos.ID] = acc.Address
}

// detach performs the compacting removal: the last element moves into the
// vacated slot (unless the removed slot was already last) and the moved
// entry's index is fixed up.
func (l *Ledger) detach(acc *Account, pos *Position) {
	slot := acc.slots[pos.ID]
	last := len(acc.Positions) - 1

	if slot != last {
		moved := acc.Positions[last]
		acc.Positions[slot] = moved
		acc.slots[moved.ID] = slot
	}

	acc.Positions[last] = nil
	acc.Positions = acc.Positions[:last]
	delete(acc.slots, pos.ID)
	delete(l.owners, pos.ID)
}

// Remove destroys a position whose principal has been driven to zero
func (l *Ledger) Remove(owner string, id uint64) error {
	pos, err := l.Owned(owner, id)
	if err != nil {
		return err
	}

	if pos.Principal != 0 {
		return fmt.Errorf("cannot remove position %d with principal %d", id, pos.Principal)
	}

	l.detach(l.accounts[owner], pos)
	return nil
}

// Discard force-removes a position regardless of principal. Used only to
// unwind a freshly opened position when the custodial pull-in fails.
func (l *Ledger) Discard(owner string, id uint64) error {
	pos, err := l.Owned(owner, id)
	if err != nil {
		return err
	}
	l.detach(l.accounts[owner], pos)
	return nil
}

// Transfer moves a position between accounts as two ledger operations,
// preserving id, opened-at and checkpoint. Policy checks (zero address,
// self-transfer, pending requests) belong to the caller.
func (l *Ledger) Transfer(from string, id uint64, to string) error {
	pos, err := l.Owned(from, id)
	if err != nil {
		return err
	}

	toAcc := l.account(to)
	if len(toAcc.Positions) >= l.maxPositions {
		return fmt.Errorf("%w: account %s already holds %d positions",
			ErrTooManyPositions, to, len(toAcc.Positions))
	}

	l.detach(l.accounts[from], pos)
	l.attach(toAcc, pos)
	return nil
}

// Clear removes every open position of an account in one pass and returns
// them in their pre-clear order, for the emergency unwind path.
func (l *Ledger) Clear(owner string) []*Position {
	acc, exists := l.accounts[owner]
	if !exists || len(acc.Positions) == 0 {
		return nil
	}

	cleared := make([]*Position, len(acc.Positions))
	copy(cleared, acc.Positions)

	for _, pos := range cleared {
		delete(l.owners, pos.ID)
	}
	acc.Positions = acc.Positions[:0]
	acc.slots = make(map[uint64]int)

	return cleared
}

// Reattach restores previously cleared positions, for unwinding an
// emergency drain whose custodial payout failed
func (l *Ledger) Reattach(owner string, positions []*Position) {
	acc := l.account(owner)
	for _, pos := range positions {
		l.attach(acc, pos)
	}
}

// Get retrieves a position by id via the index, never by scanning
func (l *Ledger) Get(id uint64) (*Position, error) {
	owner, exists := l.owners[id]
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}

	acc := l.accounts[owner]
	return acc.Positions[acc.slots[id]], nil
}

// Owned retrieves a position by id and verifies its owner
func (l *Ledger) Owned(owner string, id uint64) (*Position, error) {
	pos, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if pos.Owner != owner {
		return nil, fmt.Errorf("%w: position %d belongs to %s", ErrNotOwner, id, pos.Owner)
	}
	return pos, nil
}

// Exists reports whether a position id is open
func (l *Ledger) Exists(id uint64) bool {
	_, exists := l.owners[id]
	return exists
}

// Account returns the record for an address if it has ever been touched
func (l *Ledger) Account(address string) (*Account, bool) {
	acc, exists := l.accounts[address]
	return acc, exists
}

// Positions returns a copy of an account's open position list
func (l *Ledger) Positions(address string) []*Position {
	acc, exists := l.accounts[address]
	if !exists {
		return nil
	}

	out := make([]*Position, len(acc.Positions))
	copy(out, acc.Positions)
	return out
}

// TotalPrincipal sums the principal of every open position
func (l *Ledger) TotalPrincipal() int64 {
	total := int64(0)
	for _, acc := range l.accounts {
		for _, pos := range acc.Positions {
			total += pos.Principal
		}
	}
	return total
}

// NextID returns the next position id to be allocated
func (l *Ledger) NextID() uint64 {
	return l.nextID
}

// SetNextID restores the id counter when loading persisted state. The
// counter only moves forward.
func (l *Ledger) SetNextID(next uint64) {
	if next > l.nextID {
		l.nextID = next
	}
}

// MinDeposit returns the configured deposit floor
func (l *Ledger) MinDeposit() int64 {
	return l.minDeposit
}

// Accounts returns every touched account address (for persistence and stats)
func (l *Ledger) Accounts() []*Account {
	out := make([]*Account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, acc)
	}
	return out
}
