package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/ledger"
	"github.com/chainspec/registry/internal/oracle"
	"github.com/chainspec/registry/internal/spec"
	"github.com/chainspec/registry/internal/state"
)

// SettleResult reports the outcome of one settlement.
type SettleResult struct {
	Spec     spec.Spec
	Accepted bool

	// Payout and Fee are zero on rejection. On acceptance they sum to the
	// pool balance drained.
	Payout uint64
	Fee    uint64
}

// HandleResult settles a proposed spec against the oracle's finalized answer.
// Callable by anyone. On acceptance the entire (chain, target) pool is drained
// in one shot: the creator receives the pool minus the platform fee and the
// treasury receives the fee. On rejection only the status flips; no funds
// move.
//
// The status transition is staged before any transfer and committed with it,
// so a second call fails fast with ErrNotProposed and a failed transfer leaves
// the spec proposed with the pool intact.
func (e *Engine) HandleResult(ctx context.Context, specID common.Hash) (SettleResult, error) {
	if specID == (common.Hash{}) {
		return SettleResult{}, fmt.Errorf("%w: zero spec id", ErrInvalidInput)
	}

	unlock, err := e.enter()
	if err != nil {
		return SettleResult{}, err
	}
	defer unlock()

	now := e.now()
	var out SettleResult
	err = e.store.ExecTx(ctx, func(ctx context.Context, tx state.Tx) error {
		out = SettleResult{}

		s, err := tx.GetSpec(ctx, specID)
		if err != nil {
			if errors.Is(err, state.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrSpecNotFound, specID.Hex())
			}
			return err
		}
		if s.Status != spec.StatusProposed {
			return fmt.Errorf("%w: spec is %s", ErrNotProposed, s.Status)
		}

		done, err := e.oracle.IsFinalized(ctx, s.QuestionID)
		if err != nil {
			return fmt.Errorf("oracle finalization: %w", err)
		}
		if !done {
			return fmt.Errorf("%w: question %s", ErrOracleNotFinalized, s.QuestionID.Hex())
		}
		result, err := e.oracle.ResultFor(ctx, s.QuestionID)
		if err != nil {
			return fmt.Errorf("oracle result: %w", err)
		}
		accepted := result == oracle.AcceptedResult

		s, err = s.Transition(spec.StatusFinalized)
		if err != nil {
			return err
		}
		if err := tx.UpdateSpec(ctx, s); err != nil {
			return err
		}
		out.Spec = s
		out.Accepted = accepted
		if !accepted {
			return nil
		}

		key := incentive.PoolKey{ChainID: s.ChainID, Target: s.Target}
		p, err := tx.Pool(ctx, key)
		if err != nil {
			return err
		}
		total := p.Total

		// Every still-active contribution is consumed by this payout.
		incs, err := tx.IncentivesFor(ctx, key)
		if err != nil {
			return err
		}
		for _, inc := range incs {
			if inc.Claimed || !inc.Active {
				continue
			}
			inc.Claimed = true
			inc.Active = false
			if err := tx.UpdateIncentive(ctx, inc); err != nil {
				return err
			}
		}
		if err := tx.SetPool(ctx, key, incentive.Pool{}); err != nil {
			return err
		}

		// Both legs go out in one batch: the creator can never end up paid
		// while the fee leg fails and the transaction rolls back.
		payout, fee := feeSplit(total, e.cfg.FeePercent)
		err = e.transfer(ctx,
			ledger.Payment{To: s.Creator, Amount: payout},
			ledger.Payment{To: e.cfg.Treasury, Amount: fee},
		)
		if err != nil {
			return err
		}

		out.Payout = payout
		out.Fee = fee
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}

	e.emit(ctx, []events.Event{&events.SettledV1{
		Version:    events.Version1,
		SpecID:     out.Spec.ID,
		QuestionID: out.Spec.QuestionID,
		Creator:    out.Spec.Creator,
		Target:     out.Spec.Target,
		ChainID:    out.Spec.ChainID,
		Accepted:   out.Accepted,
		Payout:     out.Payout,
		Fee:        out.Fee,
		SettledAt:  now,
	}})
	return out, nil
}
