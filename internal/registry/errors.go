package registry

import "errors"

// Every failure mode surfaces a distinct sentinel so callers can branch on the
// kind (retry with more value, start over, give up) instead of parsing text.
var (
	// not-found
	ErrCommitmentNotFound = errors.New("registry: commitment not found")
	ErrSpecNotFound       = errors.New("registry: spec not found")
	ErrIncentiveNotFound  = errors.New("registry: incentive not found")

	// unauthorized
	ErrNotAdmin   = errors.New("registry: caller is not an admin")
	ErrNotCreator = errors.New("registry: caller is not the creator")

	// invalid-input
	ErrInvalidInput = errors.New("registry: invalid input")

	// timing-violation
	ErrCommitmentExpired   = errors.New("registry: commitment expired")
	ErrClawbackTooEarly    = errors.New("registry: clawback before waiting period")
	ErrDurationOutOfBounds = errors.New("registry: duration out of bounds")

	// state-conflict
	ErrAlreadyCommitted   = errors.New("registry: commitment already exists")
	ErrAlreadyRevealed    = errors.New("registry: commitment already revealed")
	ErrSpecExists         = errors.New("registry: spec already exists")
	ErrAlreadyProposed    = errors.New("registry: spec already proposed")
	ErrNotProposed        = errors.New("registry: spec not proposed")
	ErrAlreadyClaimed     = errors.New("registry: incentive already claimed")
	ErrOracleNotFinalized = errors.New("registry: oracle question not finalized")
	ErrPoolDrained        = errors.New("registry: pool no longer holds the incentive amount")

	// insufficient-value
	ErrInsufficientBond  = errors.New("registry: bond below configured minimum")
	ErrInsufficientValue = errors.New("registry: supplied value below amount")

	// reveal binding
	ErrInvalidReveal = errors.New("registry: invalid reveal")

	// transfer-failure
	ErrTransferFailed = errors.New("registry: transfer failed")

	// guard
	ErrPaused        = errors.New("registry: paused")
	ErrReentrantCall = errors.New("registry: reentrant call")
)
