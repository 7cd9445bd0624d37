package spec

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidInput      = errors.New("spec: invalid input")
	ErrInvalidTransition = errors.New("spec: invalid transition")
)

// Status is the lifecycle state of a revealed spec. The commit phase is
// tracked in the commitment store; a Spec record exists only from reveal
// onwards. Transitions are forward-only.
type Status uint8

const (
	StatusUnknown Status = iota
	// StatusSubmitted: revealed with a bond below the configured minimum.
	StatusSubmitted
	// StatusProposed: oracle question asked, bond at stake.
	StatusProposed
	// StatusFinalized: terminal, oracle answer applied.
	StatusFinalized
	// StatusCancelled is a reserved terminal state for future invalidation
	// paths. Not reachable in the core flow.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusProposed:
		return "proposed"
	case StatusFinalized:
		return "finalized"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is a legal forward
// transition.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusProposed || next == StatusCancelled
	case StatusProposed:
		return next == StatusFinalized || next == StatusCancelled
	default:
		return false
	}
}

// Spec is a revealed, content-addressed metadata submission moving through
// validation.
type Spec struct {
	ID common.Hash

	CreatedAt  time.Time
	ProposedAt time.Time // zero until proposed

	Status Status

	// Bond is the accumulated stake; monotonically non-decreasing until
	// settlement.
	Bond uint64

	Creator     common.Address
	Target      common.Address
	ContentHash common.Hash

	// QuestionID is the oracle question handle, zero until proposed.
	QuestionID common.Hash

	// IncentiveID optionally links the spec to a specific incentive. Zero
	// when unset.
	IncentiveID common.Hash

	ChainID uint64
}

func (s Spec) Validate() error {
	if s.ID == (common.Hash{}) {
		return fmt.Errorf("%w: missing id", ErrInvalidInput)
	}
	if s.Creator == (common.Address{}) {
		return fmt.Errorf("%w: missing creator", ErrInvalidInput)
	}
	if s.Target == (common.Address{}) {
		return fmt.Errorf("%w: missing target", ErrInvalidInput)
	}
	if s.ChainID == 0 {
		return fmt.Errorf("%w: chain id must be non-zero", ErrInvalidInput)
	}
	if s.ContentHash == (common.Hash{}) {
		return fmt.Errorf("%w: missing content hash", ErrInvalidInput)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidInput)
	}
	if s.Status == StatusUnknown {
		return fmt.Errorf("%w: missing status", ErrInvalidInput)
	}
	if s.Status >= StatusProposed && s.Status != StatusCancelled && s.QuestionID == (common.Hash{}) {
		return fmt.Errorf("%w: proposed spec requires a question id", ErrInvalidInput)
	}
	return nil
}

// Transition returns a copy of s moved to next, or ErrInvalidTransition if the
// state machine forbids the move.
func (s Spec) Transition(next Status) (Spec, error) {
	if !s.Status.CanTransition(next) {
		return Spec{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	return s, nil
}
