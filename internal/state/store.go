package state

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/commitment"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/spec"
)

var (
	ErrNotFound      = errors.New("state: not found")
	ErrAlreadyExists = errors.New("state: already exists")
	ErrInvalidInput  = errors.New("state: invalid input")
)

// Reader is the read-only query surface over registry state.
type Reader interface {
	GetCommitment(ctx context.Context, id common.Hash) (commitment.Commitment, error)
	GetSpec(ctx context.Context, id common.Hash) (spec.Spec, error)
	GetIncentive(ctx context.Context, id common.Hash) (incentive.Incentive, error)

	// Pool returns the aggregate pool for key; a key with no contributions
	// yields a zero pool, not ErrNotFound.
	Pool(ctx context.Context, key incentive.PoolKey) (incentive.Pool, error)

	// SpecsFor lists all specs for key in creation order.
	SpecsFor(ctx context.Context, key incentive.PoolKey) ([]spec.Spec, error)

	// SpecsPage returns the [offset, offset+limit) slice of SpecsFor plus the
	// total count. Out-of-range pages return an empty slice without error.
	SpecsPage(ctx context.Context, key incentive.PoolKey, offset, limit int) ([]spec.Spec, int, error)

	CountSpecs(ctx context.Context, key incentive.PoolKey) (int, error)

	// IncentivesFor lists all incentives for key in creation order,
	// including claimed and inactive ones.
	IncentivesFor(ctx context.Context, key incentive.PoolKey) ([]incentive.Incentive, error)

	IncentivesBy(ctx context.Context, creator common.Address) ([]incentive.Incentive, error)

	// CreatorIncentiveCount returns the number of incentives ever created by
	// creator. Used as the sequence input of incentive id derivation.
	CreatorIncentiveCount(ctx context.Context, creator common.Address) (uint64, error)
}

// Tx is the mutation surface available inside ExecTx. All Insert* calls fail
// with ErrAlreadyExists on id collision; Update* calls fail with ErrNotFound.
type Tx interface {
	GetCommitment(ctx context.Context, id common.Hash) (commitment.Commitment, error)
	InsertCommitment(ctx context.Context, c commitment.Commitment) error
	UpdateCommitment(ctx context.Context, c commitment.Commitment) error

	GetSpec(ctx context.Context, id common.Hash) (spec.Spec, error)
	InsertSpec(ctx context.Context, s spec.Spec) error
	UpdateSpec(ctx context.Context, s spec.Spec) error

	GetIncentive(ctx context.Context, id common.Hash) (incentive.Incentive, error)
	InsertIncentive(ctx context.Context, i incentive.Incentive) error
	UpdateIncentive(ctx context.Context, i incentive.Incentive) error

	Pool(ctx context.Context, key incentive.PoolKey) (incentive.Pool, error)
	SetPool(ctx context.Context, key incentive.PoolKey, p incentive.Pool) error

	IncentivesFor(ctx context.Context, key incentive.PoolKey) ([]incentive.Incentive, error)
	CreatorIncentiveCount(ctx context.Context, creator common.Address) (uint64, error)
}

// Store persists registry state. ExecTx applies fn atomically: either every
// mutation staged through the Tx becomes visible, or none does. Settlement,
// reveal, and clawback mutate several record kinds in one transaction, which
// is why the store is unified rather than per-domain.
type Store interface {
	Reader
	ExecTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
