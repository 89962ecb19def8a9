package position

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	alice = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestOpen(t *testing.T) {
	l := NewLedger(1000, 10)

	pos, err := l.Open(alice, 5000, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pos.ID)
	require.Equal(t, int64(5000), pos.Principal)
	require.Equal(t, int64(100), pos.OpenedAt)
	require.Equal(t, int64(100), pos.Checkpoint)

	got, err := l.Get(pos.ID)
	require.NoError(t, err)
	require.Same(t, pos, got)
	require.True(t, l.Exists(pos.ID))
}

func TestOpenRejectsBelowFloor(t *testing.T) {
	l := NewLedger(1000, 10)

	_, err := l.Open(alice, 999, 100)
	require.ErrorIs(t, err, ErrBelowMinimum)
	require.Len(t, l.Positions(alice), 0)
}

func TestOpenRejectsAtCap(t *testing.T) {
	l := NewLedger(1000, 3)

	for i := 0; i < 3; i++ {
		_, err := l.Open(alice, 1000, 100)
		require.NoError(t, err)
	}

	_, err := l.Open(alice, 1000, 100)
	require.ErrorIs(t, err, ErrTooManyPositions)

	// Another account is unaffected by alice's cap
	_, err = l.Open(bob, 1000, 100)
	require.NoError(t, err)
}

func TestIDsAreUniqueAndMonotonic(t *testing.T) {
	l := NewLedger(1000, 100)

	seen := make(map[uint64]bool)
	for i := 0; i < 20; i++ {
		pos, err := l.Open(alice, 1000, 100)
		require.NoError(t, err)
		require.False(t, seen[pos.ID], "Position ids must be distinct")
		require.Less(t, pos.ID, l.NextID(), "Every live id is below the next-id counter")
		seen[pos.ID] = true
	}
}

func TestSwapRemoval(t *testing.T) {
	l := NewLedger(1000, 10)

	ids := make([]uint64, 0, 5)
	amounts := map[uint64]int64{}
	for i := int64(1); i <= 5; i++ {
		pos, err := l.Open(alice, 1000*i, 100)
		require.NoError(t, err)
		ids = append(ids, pos.ID)
		amounts[pos.ID] = pos.Principal
	}

	// Drive the middle position to zero and remove it
	mid, err := l.Get(ids[2])
	require.NoError(t, err)
	mid.Principal = 0
	require.NoError(t, l.Remove(alice, ids[2]))
	require.False(t, l.Exists(ids[2]))

	// Every other position remains reachable by its original id with its
	// original amount
	for _, id := range ids {
		if id == ids[2] {
			continue
		}
		pos, err := l.Get(id)
		require.NoError(t, err)
		require.Equal(t, amounts[id], pos.Principal)
		require.Equal(t, id, pos.ID)
	}
	require.Len(t, l.Positions(alice), 4)

	// Removing the last slot works too
	lastID := ids[4]
	last, err := l.Get(lastID)
	require.NoError(t, err)
	last.Principal = 0
	require.NoError(t, l.Remove(alice, lastID))
	require.False(t, l.Exists(lastID))
	require.Len(t, l.Positions(alice), 3)
}

func TestRemoveRejectsNonZeroPrincipal(t *testing.T) {
	l := NewLedger(1000, 10)

	pos, err := l.Open(alice, 5000, 100)
	require.NoError(t, err)

	err = l.Remove(alice, pos.ID)
	require.Error(t, err)
	require.True(t, l.Exists(pos.ID))
}

func TestOwned(t *testing.T) {
	l := NewLedger(1000, 10)

	pos, err := l.Open(alice, 5000, 100)
	require.NoError(t, err)

	_, err = l.Owned(bob, pos.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = l.Owned(alice, 999)
	require.ErrorIs(t, err, ErrUnknownPosition)
}

func TestTransferPreservesPosition(t *testing.T) {
	l := NewLedger(1000, 10)

	pos, err := l.Open(alice, 5000, 100)
	require.NoError(t, err)
	pos.Checkpoint = 500 // simulate an advanced accrual checkpoint

	require.NoError(t, l.Transfer(alice, pos.ID, bob))

	moved, err := l.Owned(bob, pos.ID)
	require.NoError(t, err)
	require.Equal(t, pos.ID, moved.ID)
	require.Equal(t, int64(100), moved.OpenedAt)
	require.Equal(t, int64(500), moved.Checkpoint)
	require.Equal(t, int64(5000), moved.Principal)
	require.Len(t, l.Positions(alice), 0)
	require.Len(t, l.Positions(bob), 1)
}

func TestTransferRespectsReceiverCap(t *testing.T) {
	l := NewLedger(1000, 1)

	posA, err := l.Open(alice, 5000, 100)
	require.NoError(t, err)
	_, err = l.Open(bob, 5000, 100)
	require.NoError(t, err)

	err = l.Transfer(alice, posA.ID, bob)
	require.ErrorIs(t, err, ErrTooManyPositions)

	// Sender still owns it after the rejection
	_, err = l.Owned(alice, posA.ID)
	require.NoError(t, err)
}

func TestClearAndReattach(t *testing.T) {
	l := NewLedger(1000, 10)

	var ids []uint64
	for i := 0; i < 3; i++ {
		pos, err := l.Open(alice, 2000, 100)
		require.NoError(t, err)
		ids = append(ids, pos.ID)
	}

	cleared := l.Clear(alice)
	require.Len(t, cleared, 3)
	require.Len(t, l.Positions(alice), 0)
	for _, id := range ids {
		require.False(t, l.Exists(id))
	}
	require.Nil(t, l.Clear(alice), "Clearing an empty account returns nil")

	l.Reattach(alice, cleared)
	require.Len(t, l.Positions(alice), 3)
	for _, id := range ids {
		pos, err := l.Owned(alice, id)
		require.NoError(t, err)
		require.Equal(t, int64(2000), pos.Principal)
	}
}

func TestTotalPrincipal(t *testing.T) {
	l := NewLedger(1000, 10)

	_, err := l.Open(alice, 2000, 100)
	require.NoError(t, err)
	_, err = l.Open(bob, 3000, 100)
	require.NoError(t, err)

	require.Equal(t, int64(5000), l.TotalPrincipal())
}

func TestDiscard(t *testing.T) {
	l := NewLedger(1000, 10)

	pos, err := l.Open(alice, 5000, 100)
	require.NoError(t, err)

	require.NoError(t, l.Discard(alice, pos.ID))
	require.False(t, l.Exists(pos.ID))

	err = l.Discard(alice, pos.ID)
	require.True(t, errors.Is(err, ErrUnknownPosition))
}
