// Package ledger abstracts the native value ledger the registry moves funds
// on. The registry engine holds custody of bonded and pooled value; Transfer
// pays out of that custody to recipients. Implementations decide what a
// transfer actually is (an in-memory balance move in tests, a native transfer
// on a real ledger).
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidInput      = errors.New("ledger: invalid input")
	ErrTransferFailed    = errors.New("ledger: transfer failed")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
)

// Payment is one leg of a transfer out of custody.
type Payment struct {
	To     common.Address
	Amount uint64
}

// Ledger moves value out of the registry's custody.
//
// Transfer applies the whole batch or none of it: on error no value moved, so
// a settlement's payout and fee legs can never land separately. Callers treat
// any error as a transfer-failure and abort the surrounding transaction.
type Ledger interface {
	Transfer(ctx context.Context, payments []Payment) error
}
