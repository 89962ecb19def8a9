// storage/vaultstore.go

package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/vault"
)

// vaultMeta is the vault-wide metadata record
type vaultMeta struct {
	NextID          uint64
	TotalStaked     int64
	TreasuryBalance int64
	Emergency       bool
	Rates           [tiers.TierCount]int64
}

// VaultStore persists vault snapshots on a Storage backend
type VaultStore struct {
	storage Storage
}

// NewVaultStore creates a snapshot persistence handler
func NewVaultStore(storage Storage) *VaultStore {
	return &VaultStore{storage: storage}
}

// SaveSnapshot writes a full snapshot in one atomic batch: every account
// record plus the metadata record. Accounts are never deleted from the
// vault, so a plain overwrite never leaves stale records behind.
func (vs *VaultStore) SaveSnapshot(s *vault.Snapshot) error {
	ops := make([]BatchOperation, 0, len(s.Accounts)+1)

	for i := range s.Accounts {
		acc := &s.Accounts[i]
		data, err := cbor.Marshal(acc)
		if err != nil {
			return fmt.Errorf("failed to marshal account %s: %v", acc.Address, err)
		}
		ops = append(ops, BatchOperation{
			Type:  BatchSet,
			Key:   AccountKey(acc.Address),
			Value: data,
		})
	}

	meta := vaultMeta{
		NextID:          s.NextID,
		TotalStaked:     s.TotalStaked,
		TreasuryBalance: s.TreasuryBalance,
		Emergency:       s.Emergency,
		Rates:           s.Rates,
	}
	data, err := cbor.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to marshal vault metadata: %v", err)
	}
	ops = append(ops, BatchOperation{Type: BatchSet, Key: MetaKey(), Value: data})

	return vs.storage.Batch(ops)
}

// LoadSnapshot reads the persisted snapshot back. Returns ErrKeyNotFound
// when no snapshot has ever been saved.
func (vs *VaultStore) LoadSnapshot() (*vault.Snapshot, error) {
	data, err := vs.storage.Get(MetaKey())
	if err != nil {
		return nil, err
	}

	var meta vaultMeta
	if err := cbor.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vault metadata: %v", err)
	}

	s := &vault.Snapshot{
		NextID:          meta.NextID,
		TotalStaked:     meta.TotalStaked,
		TreasuryBalance: meta.TreasuryBalance,
		Emergency:       meta.Emergency,
		Rates:           meta.Rates,
	}

	iter := vs.storage.Iterator([]byte(AccountPrefix))
	defer iter.Close()

	for iter.Next() {
		var acc vault.AccountSnapshot
		if err := cbor.Unmarshal(iter.Value(), &acc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account %s: %v", iter.Key(), err)
		}
		s.Accounts = append(s.Accounts, acc)
	}

	return s, nil
}

// SaveAccount updates a single account record in place, for incremental
// persistence between full snapshots
func (vs *VaultStore) SaveAccount(acc *vault.AccountSnapshot) error {
	data, err := cbor.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %v", acc.Address, err)
	}
	return vs.storage.Set(AccountKey(acc.Address), data)
}
