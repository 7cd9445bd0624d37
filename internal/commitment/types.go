package commitment

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidInput = errors.New("commitment: invalid input")
)

// Commitment is a blinded, time-boxed promise to later reveal metadata for a
// (chain, target) pair. No value is attached at commit time; bonding happens
// only at reveal so observers cannot infer bond size from the commit
// transaction.
type Commitment struct {
	ID common.Hash

	Committer common.Address
	Target    common.Address
	ChainID   uint64

	CommittedAt    time.Time
	RevealDeadline time.Time

	Revealed bool
	// Bond is zero until reveal, then records the value attached to the reveal.
	Bond uint64

	// IncentiveID optionally links the commitment to a specific incentive.
	// Zero when unset.
	IncentiveID common.Hash
}

func (c Commitment) Validate() error {
	if c.ID == (common.Hash{}) {
		return fmt.Errorf("%w: missing id", ErrInvalidInput)
	}
	if c.Committer == (common.Address{}) {
		return fmt.Errorf("%w: missing committer", ErrInvalidInput)
	}
	if c.Target == (common.Address{}) {
		return fmt.Errorf("%w: missing target", ErrInvalidInput)
	}
	if c.ChainID == 0 {
		return fmt.Errorf("%w: chain id must be non-zero", ErrInvalidInput)
	}
	if c.CommittedAt.IsZero() {
		return fmt.Errorf("%w: missing commit time", ErrInvalidInput)
	}
	if !c.RevealDeadline.After(c.CommittedAt) {
		return fmt.Errorf("%w: reveal deadline must be after commit time", ErrInvalidInput)
	}
	return nil
}

// Expired reports whether the reveal window has closed at now.
func (c Commitment) Expired(now time.Time) bool {
	return now.After(c.RevealDeadline)
}
