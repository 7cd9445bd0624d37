package state

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/commitment"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/spec"
)

// MemoryStore is an in-memory Store. ExecTx runs fn against a deep copy of the
// state and swaps it in only on success, so a failed transaction leaves no
// trace.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	commitments map[common.Hash]commitment.Commitment

	specs     map[common.Hash]spec.Spec
	specOrder map[incentive.PoolKey][]common.Hash

	incentives     map[common.Hash]incentive.Incentive
	incentiveOrder map[incentive.PoolKey][]common.Hash
	creatorOrder   map[common.Address][]common.Hash

	pools map[incentive.PoolKey]incentive.Pool
}

func newMemState() *memState {
	return &memState{
		commitments:    make(map[common.Hash]commitment.Commitment),
		specs:          make(map[common.Hash]spec.Spec),
		specOrder:      make(map[incentive.PoolKey][]common.Hash),
		incentives:     make(map[common.Hash]incentive.Incentive),
		incentiveOrder: make(map[incentive.PoolKey][]common.Hash),
		creatorOrder:   make(map[common.Address][]common.Hash),
		pools:          make(map[incentive.PoolKey]incentive.Pool),
	}
}

func (s *memState) clone() *memState {
	out := newMemState()
	for k, v := range s.commitments {
		out.commitments[k] = v
	}
	for k, v := range s.specs {
		out.specs[k] = v
	}
	for k, v := range s.specOrder {
		out.specOrder[k] = append([]common.Hash(nil), v...)
	}
	for k, v := range s.incentives {
		out.incentives[k] = v
	}
	for k, v := range s.incentiveOrder {
		out.incentiveOrder[k] = append([]common.Hash(nil), v...)
	}
	for k, v := range s.creatorOrder {
		out.creatorOrder[k] = append([]common.Hash(nil), v...)
	}
	for k, v := range s.pools {
		out.pools[k] = v
	}
	return out
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

func (s *MemoryStore) ExecTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *MemoryStore) GetCommitment(_ context.Context, id common.Hash) (commitment.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getCommitment(id)
}

func (s *MemoryStore) GetSpec(_ context.Context, id common.Hash) (spec.Spec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getSpec(id)
}

func (s *MemoryStore) GetIncentive(_ context.Context, id common.Hash) (incentive.Incentive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getIncentive(id)
}

func (s *MemoryStore) Pool(_ context.Context, key incentive.PoolKey) (incentive.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.pools[key], nil
}

func (s *MemoryStore) SpecsFor(_ context.Context, key incentive.PoolKey) ([]spec.Spec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.specsFor(key), nil
}

func (s *MemoryStore) SpecsPage(_ context.Context, key incentive.PoolKey, offset, limit int) ([]spec.Spec, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.st.specsFor(key)
	total := len(all)
	if offset < 0 || limit < 0 {
		return nil, 0, ErrInvalidInput
	}
	if offset >= total {
		return []spec.Spec{}, total, nil
	}
	end := offset + limit
	if limit == 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) CountSpecs(_ context.Context, key incentive.PoolKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.specOrder[key]), nil
}

func (s *MemoryStore) IncentivesFor(_ context.Context, key incentive.PoolKey) ([]incentive.Incentive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.incentivesFor(key), nil
}

func (s *MemoryStore) IncentivesBy(_ context.Context, creator common.Address) ([]incentive.Incentive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.st.creatorOrder[creator]
	out := make([]incentive.Incentive, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.st.incentives[id])
	}
	return out, nil
}

func (s *MemoryStore) CreatorIncentiveCount(_ context.Context, creator common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.st.creatorOrder[creator])), nil
}

type memTx struct {
	st *memState
}

func (s *memState) getCommitment(id common.Hash) (commitment.Commitment, error) {
	c, ok := s.commitments[id]
	if !ok {
		return commitment.Commitment{}, ErrNotFound
	}
	return c, nil
}

func (s *memState) getSpec(id common.Hash) (spec.Spec, error) {
	sp, ok := s.specs[id]
	if !ok {
		return spec.Spec{}, ErrNotFound
	}
	return sp, nil
}

func (s *memState) getIncentive(id common.Hash) (incentive.Incentive, error) {
	in, ok := s.incentives[id]
	if !ok {
		return incentive.Incentive{}, ErrNotFound
	}
	return in, nil
}

func (s *memState) specsFor(key incentive.PoolKey) []spec.Spec {
	ids := s.specOrder[key]
	out := make([]spec.Spec, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.specs[id])
	}
	return out
}

func (s *memState) incentivesFor(key incentive.PoolKey) []incentive.Incentive {
	ids := s.incentiveOrder[key]
	out := make([]incentive.Incentive, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.incentives[id])
	}
	return out
}

func (t *memTx) GetCommitment(_ context.Context, id common.Hash) (commitment.Commitment, error) {
	return t.st.getCommitment(id)
}

func (t *memTx) InsertCommitment(_ context.Context, c commitment.Commitment) error {
	if _, ok := t.st.commitments[c.ID]; ok {
		return ErrAlreadyExists
	}
	t.st.commitments[c.ID] = c
	return nil
}

func (t *memTx) UpdateCommitment(_ context.Context, c commitment.Commitment) error {
	if _, ok := t.st.commitments[c.ID]; !ok {
		return ErrNotFound
	}
	t.st.commitments[c.ID] = c
	return nil
}

func (t *memTx) GetSpec(_ context.Context, id common.Hash) (spec.Spec, error) {
	return t.st.getSpec(id)
}

func (t *memTx) InsertSpec(_ context.Context, sp spec.Spec) error {
	if _, ok := t.st.specs[sp.ID]; ok {
		return ErrAlreadyExists
	}
	key := incentive.PoolKey{ChainID: sp.ChainID, Target: sp.Target}
	t.st.specs[sp.ID] = sp
	t.st.specOrder[key] = append(t.st.specOrder[key], sp.ID)
	return nil
}

func (t *memTx) UpdateSpec(_ context.Context, sp spec.Spec) error {
	if _, ok := t.st.specs[sp.ID]; !ok {
		return ErrNotFound
	}
	t.st.specs[sp.ID] = sp
	return nil
}

func (t *memTx) GetIncentive(_ context.Context, id common.Hash) (incentive.Incentive, error) {
	return t.st.getIncentive(id)
}

func (t *memTx) InsertIncentive(_ context.Context, in incentive.Incentive) error {
	if _, ok := t.st.incentives[in.ID]; ok {
		return ErrAlreadyExists
	}
	key := incentive.PoolKey{ChainID: in.ChainID, Target: in.Target}
	t.st.incentives[in.ID] = in
	t.st.incentiveOrder[key] = append(t.st.incentiveOrder[key], in.ID)
	t.st.creatorOrder[in.Creator] = append(t.st.creatorOrder[in.Creator], in.ID)
	return nil
}

func (t *memTx) UpdateIncentive(_ context.Context, in incentive.Incentive) error {
	if _, ok := t.st.incentives[in.ID]; !ok {
		return ErrNotFound
	}
	t.st.incentives[in.ID] = in
	return nil
}

func (t *memTx) Pool(_ context.Context, key incentive.PoolKey) (incentive.Pool, error) {
	return t.st.pools[key], nil
}

func (t *memTx) SetPool(_ context.Context, key incentive.PoolKey, p incentive.Pool) error {
	t.st.pools[key] = p
	return nil
}

func (t *memTx) IncentivesFor(_ context.Context, key incentive.PoolKey) ([]incentive.Incentive, error) {
	return t.st.incentivesFor(key), nil
}

func (t *memTx) CreatorIncentiveCount(_ context.Context, creator common.Address) (uint64, error) {
	return uint64(len(t.st.creatorOrder[creator])), nil
}
