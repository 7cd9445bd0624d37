package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/commitment"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/spec"
	"github.com/chainspec/registry/internal/state"
)

// Read surface. Queries never take the engine lock and stay available while
// paused.

func (e *Engine) GetCommitment(ctx context.Context, id common.Hash) (commitment.Commitment, error) {
	c, err := e.store.GetCommitment(ctx, id)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return commitment.Commitment{}, fmt.Errorf("%w: %s", ErrCommitmentNotFound, id.Hex())
		}
		return commitment.Commitment{}, err
	}
	return c, nil
}

func (e *Engine) GetSpec(ctx context.Context, id common.Hash) (spec.Spec, error) {
	s, err := e.store.GetSpec(ctx, id)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return spec.Spec{}, fmt.Errorf("%w: %s", ErrSpecNotFound, id.Hex())
		}
		return spec.Spec{}, err
	}
	return s, nil
}

func (e *Engine) GetIncentive(ctx context.Context, id common.Hash) (incentive.Incentive, error) {
	inc, err := e.store.GetIncentive(ctx, id)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return incentive.Incentive{}, fmt.Errorf("%w: %s", ErrIncentiveNotFound, id.Hex())
		}
		return incentive.Incentive{}, err
	}
	return inc, nil
}

// ContentHashOf returns the content hash a spec binds.
func (e *Engine) ContentHashOf(ctx context.Context, specID common.Hash) (common.Hash, error) {
	s, err := e.GetSpec(ctx, specID)
	if err != nil {
		return common.Hash{}, err
	}
	return s.ContentHash, nil
}

func (e *Engine) SpecsFor(ctx context.Context, key incentive.PoolKey) ([]spec.Spec, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return e.store.SpecsFor(ctx, key)
}

// SpecsPage returns the [offset, offset+limit) page plus the total count.
// Out-of-range pages yield an empty slice with the true total, no error.
func (e *Engine) SpecsPage(ctx context.Context, key incentive.PoolKey, offset, limit int) ([]spec.Spec, int, error) {
	if err := key.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	specs, total, err := e.store.SpecsPage(ctx, key, offset, limit)
	if err != nil {
		if errors.Is(err, state.ErrInvalidInput) {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, 0, err
	}
	return specs, total, nil
}

func (e *Engine) CountSpecs(ctx context.Context, key incentive.PoolKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return e.store.CountSpecs(ctx, key)
}

func (e *Engine) Pool(ctx context.Context, key incentive.PoolKey) (incentive.Pool, error) {
	if err := key.Validate(); err != nil {
		return incentive.Pool{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return e.store.Pool(ctx, key)
}

func (e *Engine) IncentivesFor(ctx context.Context, key incentive.PoolKey) ([]incentive.Incentive, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return e.store.IncentivesFor(ctx, key)
}

func (e *Engine) IncentivesBy(ctx context.Context, creator common.Address) ([]incentive.Incentive, error) {
	if creator == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero creator", ErrInvalidInput)
	}
	return e.store.IncentivesBy(ctx, creator)
}

// Params is the externally visible configuration snapshot.
type Params struct {
	Treasury      common.Address `json:"treasury"`
	OracleAccount common.Address `json:"oracleAccount"`
	Arbitrator    common.Address `json:"arbitrator"`

	MinBond    uint64 `json:"minBond"`
	FeePercent uint64 `json:"feePercent"`
	Paused     bool   `json:"paused"`

	CommitRevealTimeoutSeconds  int64 `json:"commitRevealTimeoutSeconds"`
	IncentiveMaxDurationSeconds int64 `json:"incentiveMaxDurationSeconds"`
	ClawbackDelaySeconds        int64 `json:"clawbackDelaySeconds"`
	OracleTimeoutSeconds        int64 `json:"oracleTimeoutSeconds"`
}

func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Params{
		Treasury:                    e.cfg.Treasury,
		OracleAccount:               e.cfg.OracleAccount,
		Arbitrator:                  e.cfg.Arbitrator,
		MinBond:                     e.minBond,
		FeePercent:                  e.cfg.FeePercent,
		Paused:                      e.paused,
		CommitRevealTimeoutSeconds:  int64(e.cfg.CommitRevealTimeout.Seconds()),
		IncentiveMaxDurationSeconds: int64(e.cfg.IncentiveMaxDuration.Seconds()),
		ClawbackDelaySeconds:        int64(e.cfg.ClawbackDelay.Seconds()),
		OracleTimeoutSeconds:        int64(e.cfg.OracleTimeout.Seconds()),
	}
}

func (e *Engine) MinBond() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minBond
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}
