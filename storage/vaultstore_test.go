package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/vault"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

func openTestStorage(t *testing.T) *BadgerStorage {
	t.Helper()

	bs, err := NewBadgerStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestBadgerBasicOps(t *testing.T) {
	bs := openTestStorage(t)

	_, err := bs.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, bs.Set([]byte("k"), []byte("v")))
	val, err := bs.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), val)

	exists, err := bs.Has([]byte("k"))
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, bs.Delete([]byte("k")))
	exists, err = bs.Has([]byte("k"))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestSnapshotRoundTrip(t *testing.T) {
	bs := openTestStorage(t)
	vs := NewVaultStore(bs)

	_, err := vs.LoadSnapshot()
	require.ErrorIs(t, err, ErrKeyNotFound)

	snap := &vault.Snapshot{
		NextID:          5,
		TotalStaked:     1_500_000,
		TreasuryBalance: 42_000,
		Emergency:       false,
		Rates:           [tiers.TierCount]int64{500, 700, 900, 1100, 1300, 1500},
		Accounts: []vault.AccountSnapshot{
			{
				Address:     "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				OwedRewards: 123,
				Positions: []position.Position{
					{ID: 1, Owner: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Principal: 1_000_000, OpenedAt: 1000, Checkpoint: 2000},
					{ID: 3, Owner: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Principal: 250_000, OpenedAt: 1500, Checkpoint: 1500},
				},
				Requests: []withdrawal.Request{
					{PositionID: 1, Amount: 1_000_000, RequestedAt: 3000, AvailableAt: 3600, Status: withdrawal.StatusPending},
				},
			},
			{
				Address:      "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				RewardExempt: true,
				Positions: []position.Position{
					{ID: 4, Owner: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Principal: 250_000, OpenedAt: 1700, Checkpoint: 1700},
				},
			},
		},
	}

	require.NoError(t, vs.SaveSnapshot(snap))

	loaded, err := vs.LoadSnapshot()
	require.NoError(t, err)
	require.Equal(t, snap.NextID, loaded.NextID)
	require.Equal(t, snap.TotalStaked, loaded.TotalStaked)
	require.Equal(t, snap.TreasuryBalance, loaded.TreasuryBalance)
	require.Equal(t, snap.Rates, loaded.Rates)
	require.Len(t, loaded.Accounts, 2)

	// iteration order over the account prefix is keyed by address
	require.Equal(t, snap.Accounts[0], loaded.Accounts[0])
	require.Equal(t, snap.Accounts[1], loaded.Accounts[1])
}

func TestSnapshotOverwrite(t *testing.T) {
	bs := openTestStorage(t)
	vs := NewVaultStore(bs)

	first := &vault.Snapshot{
		NextID:          2,
		TreasuryBalance: 100,
		Rates:           [tiers.TierCount]int64{500, 700, 900, 1100, 1300, 1500},
		Accounts: []vault.AccountSnapshot{
			{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		},
	}
	require.NoError(t, vs.SaveSnapshot(first))

	first.NextID = 7
	first.TreasuryBalance = 900
	first.Accounts[0].OwedRewards = 55
	require.NoError(t, vs.SaveSnapshot(first))

	loaded, err := vs.LoadSnapshot()
	require.NoError(t, err)
	require.Equal(t, uint64(7), loaded.NextID)
	require.Equal(t, int64(900), loaded.TreasuryBalance)
	require.Equal(t, int64(55), loaded.Accounts[0].OwedRewards)
}
