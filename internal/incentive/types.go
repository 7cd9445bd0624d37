package incentive

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxAmount caps a single contribution and the pool total. The cap keeps pool
// sums and fee math inside uint64 and fits the postgres BIGINT columns the
// store uses.
const MaxAmount uint64 = 1 << 62

const MaxDescriptionLen = 512

var (
	ErrInvalidInput   = errors.New("incentive: invalid input")
	ErrAmountTooLarge = errors.New("incentive: amount too large")
)

// Incentive is a single contributor's deposit into the shared pool for a
// (chain, target) key. Contributions are tracked individually so clawback can
// return exactly the creator's own amount, but payout drains the whole pool.
type Incentive struct {
	ID common.Hash

	Creator common.Address
	Amount  uint64

	CreatedAt time.Time
	Deadline  time.Time

	Target  common.Address
	ChainID uint64

	// Claimed and Active flip exactly once, either via settlement-triggered
	// pool claim or creator-triggered clawback. The two are mutually
	// exclusive terminal transitions.
	Claimed bool
	Active  bool

	Description string
}

func (i Incentive) Validate() error {
	if i.ID == (common.Hash{}) {
		return fmt.Errorf("%w: missing id", ErrInvalidInput)
	}
	if i.Creator == (common.Address{}) {
		return fmt.Errorf("%w: missing creator", ErrInvalidInput)
	}
	if i.Target == (common.Address{}) {
		return fmt.Errorf("%w: missing target", ErrInvalidInput)
	}
	if i.ChainID == 0 {
		return fmt.Errorf("%w: chain id must be non-zero", ErrInvalidInput)
	}
	if i.Amount == 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidInput)
	}
	if i.Amount > MaxAmount {
		return ErrAmountTooLarge
	}
	if i.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidInput)
	}
	if !i.Deadline.After(i.CreatedAt) {
		return fmt.Errorf("%w: deadline must be after creation", ErrInvalidInput)
	}
	if len(i.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description too long", ErrInvalidInput)
	}
	return nil
}

// PoolKey identifies the shared incentive pool for a (chain, target) pair.
type PoolKey struct {
	ChainID uint64
	Target  common.Address
}

func (k PoolKey) Validate() error {
	if k.ChainID == 0 {
		return fmt.Errorf("%w: chain id must be non-zero", ErrInvalidInput)
	}
	if k.Target == (common.Address{}) {
		return fmt.Errorf("%w: missing target", ErrInvalidInput)
	}
	return nil
}

// Pool is the aggregate view over all contributions for one key.
//
// Invariant: Total equals the sum of all active, unclaimed incentive amounts
// for the key.
type Pool struct {
	Total        uint64
	Contributors uint64
}
