package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type poolKey struct {
	chainID uint64
	target  common.Address
}

// MemoryStore is the in-memory Store used by tests and the stdio driver.
type MemoryStore struct {
	mu sync.RWMutex

	commitments map[common.Hash]CommitmentRow
	specs       map[common.Hash]SpecRow
	incentives  map[common.Hash]IncentiveRow
	pools       map[poolKey]PoolRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		commitments: make(map[common.Hash]CommitmentRow),
		specs:       make(map[common.Hash]SpecRow),
		incentives:  make(map[common.Hash]IncentiveRow),
		pools:       make(map[poolKey]PoolRow),
	}
}

func (m *MemoryStore) UpsertCommitment(_ context.Context, row CommitmentRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.commitments[row.CommitmentID]; ok {
		// Preserve the revealed flag across replays.
		row.Revealed = row.Revealed || existing.Revealed
	}
	m.commitments[row.CommitmentID] = row
	return nil
}

func (m *MemoryStore) MarkCommitmentRevealed(_ context.Context, commitmentID common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.commitments[commitmentID]
	if !ok {
		return fmt.Errorf("%w: commitment %s", ErrNotFound, commitmentID.Hex())
	}
	row.Revealed = true
	m.commitments[commitmentID] = row
	return nil
}

func (m *MemoryStore) UpsertSpec(_ context.Context, row SpecRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.specs[row.SpecID]; ok && existing.Status != "submitted" {
		// A replayed reveal never regresses a proposed or finalized row.
		return nil
	}
	m.specs[row.SpecID] = row
	return nil
}

func (m *MemoryStore) MarkSpecProposed(_ context.Context, specID, questionID common.Hash, bond uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.specs[specID]
	if !ok {
		return fmt.Errorf("%w: spec %s", ErrNotFound, specID.Hex())
	}
	if row.Status == "finalized" {
		return nil
	}
	row.Status = "proposed"
	row.QuestionID = questionID
	row.Bond = bond
	row.UpdatedAt = at
	m.specs[specID] = row
	return nil
}

func (m *MemoryStore) MarkSpecSettled(_ context.Context, specID common.Hash, accepted bool, payout, fee uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.specs[specID]
	if !ok {
		return fmt.Errorf("%w: spec %s", ErrNotFound, specID.Hex())
	}
	row.Status = "finalized"
	row.Accepted = accepted
	row.Payout = payout
	row.Fee = fee
	row.UpdatedAt = at
	m.specs[specID] = row
	return nil
}

func (m *MemoryStore) UpsertIncentive(_ context.Context, row IncentiveRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.incentives[row.IncentiveID]; ok {
		row.ClawedBack = row.ClawedBack || existing.ClawedBack
	}
	m.incentives[row.IncentiveID] = row
	return nil
}

func (m *MemoryStore) MarkIncentiveClawedBack(_ context.Context, incentiveID common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.incentives[incentiveID]
	if !ok {
		return fmt.Errorf("%w: incentive %s", ErrNotFound, incentiveID.Hex())
	}
	row.ClawedBack = true
	m.incentives[incentiveID] = row
	return nil
}

func (m *MemoryStore) UpsertPool(_ context.Context, row PoolRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := poolKey{chainID: row.ChainID, target: row.Target}
	if existing, ok := m.pools[key]; ok && existing.UpdatedAt.After(row.UpdatedAt) {
		// Stale replay; the newer snapshot wins.
		return nil
	}
	m.pools[key] = row
	return nil
}

func (m *MemoryStore) Commitment(_ context.Context, commitmentID common.Hash) (CommitmentRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.commitments[commitmentID]
	if !ok {
		return CommitmentRow{}, fmt.Errorf("%w: commitment %s", ErrNotFound, commitmentID.Hex())
	}
	return row, nil
}

func (m *MemoryStore) Spec(_ context.Context, specID common.Hash) (SpecRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.specs[specID]
	if !ok {
		return SpecRow{}, fmt.Errorf("%w: spec %s", ErrNotFound, specID.Hex())
	}
	return row, nil
}

func (m *MemoryStore) Incentive(_ context.Context, incentiveID common.Hash) (IncentiveRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.incentives[incentiveID]
	if !ok {
		return IncentiveRow{}, fmt.Errorf("%w: incentive %s", ErrNotFound, incentiveID.Hex())
	}
	return row, nil
}

func (m *MemoryStore) Pool(_ context.Context, chainID uint64, target common.Address) (PoolRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.pools[poolKey{chainID: chainID, target: target}]
	if !ok {
		return PoolRow{}, fmt.Errorf("%w: pool %d/%s", ErrNotFound, chainID, target.Hex())
	}
	return row, nil
}
