// core/vault/snapshot.go

package vault

import (
	"fmt"

	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

// AccountSnapshot is the persisted form of one account: its open positions
// and full withdrawal history plus the ledger-scoped flags.
type AccountSnapshot struct {
	Address      string               `json:"address"`
	RewardExempt bool                 `json:"reward_exempt"`
	OwedRewards  int64                `json:"owed_rewards"`
	Positions    []position.Position  `json:"positions"`
	Requests     []withdrawal.Request `json:"requests,omitempty"`
}

// Snapshot is a consistent point-in-time capture of the whole vault,
// sufficient to rebuild it after a restart.
type Snapshot struct {
	NextID          uint64                 `json:"next_id"`
	TotalStaked     int64                  `json:"total_staked"`
	TreasuryBalance int64                  `json:"treasury_balance"`
	Emergency       bool                   `json:"emergency"`
	Rates           [tiers.TierCount]int64 `json:"rates"`
	Accounts        []AccountSnapshot      `json:"accounts"`
}

// Snapshot captures the vault's full state under the read lock
func (v *Vault) Snapshot() *Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := &Snapshot{
		NextID:          v.ledger.NextID(),
		TotalStaked:     v.totalStaked,
		TreasuryBalance: v.treasury.Balance(),
		Emergency:       v.emergency,
		Rates:           v.schedule.Rates(),
	}

	for _, acc := range v.ledger.Accounts() {
		as := AccountSnapshot{
			Address:      acc.Address,
			RewardExempt: acc.RewardExempt,
			OwedRewards:  acc.OwedRewards,
		}
		for _, pos := range acc.Positions {
			as.Positions = append(as.Positions, *pos)
		}
		if b, exists := v.books[acc.Address]; exists {
			for _, req := range b.History() {
				as.Requests = append(as.Requests, *req)
			}
		}
		s.Accounts = append(s.Accounts, as)
	}

	return s
}

// Restore loads a snapshot into a freshly constructed vault. State the
// constructor already put in place (exemptions from configuration, the
// initial rate table) is overwritten by the persisted values.
func (v *Vault) Restore(s *Snapshot) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.schedule.UpdateRates(s.Rates); err != nil {
		return fmt.Errorf("restoring tier rates: %v", err)
	}

	for _, as := range s.Accounts {
		if as.RewardExempt {
			v.ledger.MarkRewardExempt(as.Address)
		}

		positions := make([]*position.Position, len(as.Positions))
		for i := range as.Positions {
			pos := as.Positions[i]
			positions[i] = &pos
		}
		v.ledger.Reattach(as.Address, positions)

		if acc, exists := v.ledger.Account(as.Address); exists {
			acc.OwedRewards = as.OwedRewards
		}

		if len(as.Requests) > 0 {
			history := make([]*withdrawal.Request, len(as.Requests))
			for i := range as.Requests {
				req := as.Requests[i]
				history[i] = &req
			}
			v.books[as.Address] = withdrawal.Restore(history)
		}
	}

	v.ledger.SetNextID(s.NextID)
	v.treasury.SetBalance(s.TreasuryBalance)
	v.totalStaked = s.TotalStaked
	v.emergency = s.Emergency

	return nil
}
