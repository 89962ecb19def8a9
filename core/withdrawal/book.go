// core/withdrawal/book.go

// Withdrawal request bookkeeping. Requests move Pending -> Executed or
// Pending -> Cancelled and are never deleted: the per-account history is
// append-only for audit, while a separate O(1) active index and the pending
// counter track only the live ones, keeping per-account operations bounded
// by the pending cap rather than by history length.

package withdrawal

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatePending marks a second request on a position that
	// already has a pending one
	ErrDuplicatePending = errors.New("position already has a pending withdrawal")

	// ErrPendingCapReached marks an account at its pending-request cap
	ErrPendingCapReached = errors.New("pending withdrawal limit reached")

	// ErrNotPending marks cancel/execute on a position with no pending
	// request
	ErrNotPending = errors.New("no pending withdrawal for position")

	// ErrNoticePeriod marks execution before the notice period has elapsed
	ErrNoticePeriod = errors.New("notice period has not elapsed")
)

// Status is the terminal-state machine of a request
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Request is a notice-period claim against exactly one position
type Request struct {
	PositionID  uint64 `json:"position_id"`
	Amount      int64  `json:"amount"`
	RequestedAt int64  `json:"requested_at"`
	AvailableAt int64  `json:"available_at"`
	Status      Status `json:"status"`
}

// Book holds one account's withdrawal requests
type Book struct {
	history []*Request
	active  map[uint64]int // position id -> index into history, pending only
}

// NewBook creates an empty request book
func NewBook() *Book {
	return &Book{
		active: make(map[uint64]int),
	}
}

// Open records a new pending request. Rejects a duplicate pending request on
// the same position and an account already at the pending cap, leaving the
// book untouched.
func (b *Book) Open(req *Request, pendingCap int) error {
	if _, exists := b.active[req.PositionID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicatePending, req.PositionID)
	}
	if len(b.active) >= pendingCap {
		return fmt.Errorf("%w: %d pending", ErrPendingCapReached, len(b.active))
	}

	req.Status = StatusPending
	b.active[req.PositionID] = len(b.history)
	b.history = append(b.history, req)
	return nil
}

// Pending returns the live request targeting a position, if any
func (b *Book) Pending(positionID uint64) (*Request, bool) {
	idx, exists := b.active[positionID]
	if !exists {
		return nil, false
	}
	return b.history[idx], true
}

// Cancel transitions a pending request to Cancelled
func (b *Book) Cancel(positionID uint64) (*Request, error) {
	idx, exists := b.active[positionID]
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrNotPending, positionID)
	}

	req := b.history[idx]
	req.Status = StatusCancelled
	delete(b.active, positionID)
	return req, nil
}

// Execute transitions a pending request to Executed once its notice period
// has elapsed. Rejections leave the request pending.
func (b *Book) Execute(positionID uint64, now int64) (*Request, error) {
	idx, exists := b.active[positionID]
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrNotPending, positionID)
	}

	req := b.history[idx]
	if now < req.AvailableAt {
		return nil, fmt.Errorf("%w: executable at %d, now %d", ErrNoticePeriod, req.AvailableAt, now)
	}

	req.Status = StatusExecuted
	delete(b.active, positionID)
	return req, nil
}

// Reopen restores an executed request to pending, for unwinding a custodial
// payout failure after the state transition already happened
func (b *Book) Reopen(positionID uint64) {
	for idx := len(b.history) - 1; idx >= 0; idx-- {
		if b.history[idx].PositionID == positionID {
			b.history[idx].Status = StatusPending
			b.active[positionID] = idx
			return
		}
	}
}

// CancelAll cancels every pending request in one pass and returns them, for
// the emergency unwind path
func (b *Book) CancelAll() []*Request {
	if len(b.active) == 0 {
		return nil
	}

	cancelled := make([]*Request, 0, len(b.active))
	for _, idx := range b.active {
		req := b.history[idx]
		req.Status = StatusCancelled
		cancelled = append(cancelled, req)
	}
	b.active = make(map[uint64]int)
	return cancelled
}

// PendingCount returns the number of live requests, the per-account counter
// the cap is enforced against
func (b *Book) PendingCount() int {
	return len(b.active)
}

// Active returns the live requests only
func (b *Book) Active() []*Request {
	out := make([]*Request, 0, len(b.active))
	for _, idx := range b.active {
		out = append(out, b.history[idx])
	}
	return out
}

// History returns the full append-only request history
func (b *Book) History() []*Request {
	out := make([]*Request, len(b.history))
	copy(out, b.history)
	return out
}

// Restore rebuilds a book from persisted history, reconstructing the active
// index from the pending entries
func Restore(history []*Request) *Book {
	b := NewBook()
	for idx, req := range history {
		b.history = append(b.history, req)
		if req.Status == StatusPending {
			b.active[req.PositionID] = idx
		}
	}
	return b
}
