package treasury

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFundAndDrain(t *testing.T) {
	tr := New()
	require.Equal(t, int64(0), tr.Balance())

	require.NoError(t, tr.Fund(5000))
	require.Equal(t, int64(5000), tr.Balance())

	require.NoError(t, tr.Drain(2000))
	require.Equal(t, int64(3000), tr.Balance())
}

func TestFundRejectsNonPositive(t *testing.T) {
	tr := New()
	require.ErrorIs(t, tr.Fund(0), ErrInvalidAmount)
	require.ErrorIs(t, tr.Fund(-100), ErrInvalidAmount)
	require.Equal(t, int64(0), tr.Balance())
}

func TestDrainRejectsOverBalance(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Fund(1000))

	require.ErrorIs(t, tr.Drain(1001), ErrInsufficientTreasury)
	require.ErrorIs(t, tr.Drain(0), ErrInvalidAmount)
	require.Equal(t, int64(1000), tr.Balance())
}

func TestPay(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Fund(1000))

	require.True(t, tr.CanCover(1000))
	require.False(t, tr.CanCover(1001))

	require.True(t, tr.Pay(600))
	require.Equal(t, int64(400), tr.Balance())

	// A payout the pool cannot cover is skipped entirely
	require.False(t, tr.Pay(500))
	require.Equal(t, int64(400), tr.Balance())

	// Zero is a covered no-op, negative never pays
	require.True(t, tr.Pay(0))
	require.False(t, tr.Pay(-1))
	require.Equal(t, int64(400), tr.Balance())
}

func TestRefund(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Fund(1000))
	require.True(t, tr.Pay(700))

	tr.Refund(700)
	require.Equal(t, int64(1000), tr.Balance())

	tr.Refund(0)
	tr.Refund(-5)
	require.Equal(t, int64(1000), tr.Balance())
}
