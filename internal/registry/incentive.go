package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/idempotency"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/ledger"
	"github.com/chainspec/registry/internal/state"
)

// CreateIncentive deposits amount into the shared pool for (chainID, target).
// value is the total attached to the call; it must cover amount and any excess
// is refunded to the caller in the same transaction. A refund failure aborts
// the whole operation.
func (e *Engine) CreateIncentive(ctx context.Context, caller, target common.Address, chainID uint64, amount uint64, duration time.Duration, description string, value uint64) (incentive.Incentive, error) {
	if caller == (common.Address{}) {
		return incentive.Incentive{}, fmt.Errorf("%w: zero caller", ErrInvalidInput)
	}
	key := incentive.PoolKey{ChainID: chainID, Target: target}
	if err := key.Validate(); err != nil {
		return incentive.Incentive{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if amount == 0 {
		return incentive.Incentive{}, fmt.Errorf("%w: zero amount", ErrInvalidInput)
	}
	if amount > incentive.MaxAmount {
		return incentive.Incentive{}, fmt.Errorf("%w: amount %d", incentive.ErrAmountTooLarge, amount)
	}
	if len(description) > incentive.MaxDescriptionLen {
		return incentive.Incentive{}, fmt.Errorf("%w: description too long", ErrInvalidInput)
	}
	if duration < MinIncentiveDuration || duration > e.cfg.IncentiveMaxDuration {
		return incentive.Incentive{}, fmt.Errorf("%w: duration %s", ErrDurationOutOfBounds, duration)
	}
	if value < amount {
		return incentive.Incentive{}, fmt.Errorf("%w: supplied %d, amount %d", ErrInsufficientValue, value, amount)
	}

	unlock, err := e.enter()
	if err != nil {
		return incentive.Incentive{}, err
	}
	defer unlock()

	now := e.now()
	var (
		out  incentive.Incentive
		pool incentive.Pool
	)
	err = e.store.ExecTx(ctx, func(ctx context.Context, tx state.Tx) error {
		seq, err := tx.CreatorIncentiveCount(ctx, caller)
		if err != nil {
			return err
		}

		inc := incentive.Incentive{
			ID:          idempotency.IncentiveIDV1(caller, target, chainID, now.Unix(), seq),
			Creator:     caller,
			Amount:      amount,
			CreatedAt:   now,
			Deadline:    now.Add(duration),
			Target:      target,
			ChainID:     chainID,
			Active:      true,
			Description: description,
		}
		if err := tx.InsertIncentive(ctx, inc); err != nil {
			if errors.Is(err, state.ErrAlreadyExists) {
				return fmt.Errorf("%w: incentive %s", ErrInvalidInput, inc.ID.Hex())
			}
			return err
		}

		p, err := tx.Pool(ctx, key)
		if err != nil {
			return err
		}
		if p.Total+amount > incentive.MaxAmount {
			return fmt.Errorf("%w: pool total would reach %d", incentive.ErrAmountTooLarge, p.Total+amount)
		}
		p.Total += amount
		p.Contributors++
		if err := tx.SetPool(ctx, key, p); err != nil {
			return err
		}

		// Refund last, after all state is staged.
		if excess := value - amount; excess > 0 {
			if err := e.transfer(ctx, ledger.Payment{To: caller, Amount: excess}); err != nil {
				return err
			}
		}

		out = inc
		pool = p
		return nil
	})
	if err != nil {
		return incentive.Incentive{}, err
	}

	e.emit(ctx, []events.Event{&events.IncentiveCreatedV1{
		Version:          events.Version1,
		IncentiveID:      out.ID,
		Creator:          out.Creator,
		Target:           out.Target,
		ChainID:          out.ChainID,
		Amount:           out.Amount,
		CreatedAt:        out.CreatedAt,
		Deadline:         out.Deadline,
		PoolTotal:        pool.Total,
		PoolContributors: pool.Contributors,
	}})
	return out, nil
}

// ClawbackIncentive returns an unclaimed incentive's full original amount to
// its creator, fee-free, once the waiting period has elapsed. Contributions
// share one pool per key, so an incentive can be stranded: if an unrelated
// settlement already drained the pool below this amount, clawback fails with
// ErrPoolDrained instead of underflowing another contributor's funds.
func (e *Engine) ClawbackIncentive(ctx context.Context, caller common.Address, incentiveID common.Hash) (incentive.Incentive, error) {
	if incentiveID == (common.Hash{}) {
		return incentive.Incentive{}, fmt.Errorf("%w: zero incentive id", ErrInvalidInput)
	}

	unlock, err := e.enter()
	if err != nil {
		return incentive.Incentive{}, err
	}
	defer unlock()

	now := e.now()
	var (
		out  incentive.Incentive
		pool incentive.Pool
	)
	err = e.store.ExecTx(ctx, func(ctx context.Context, tx state.Tx) error {
		inc, err := tx.GetIncentive(ctx, incentiveID)
		if err != nil {
			if errors.Is(err, state.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrIncentiveNotFound, incentiveID.Hex())
			}
			return err
		}
		if caller != inc.Creator {
			return fmt.Errorf("%w: incentive %s", ErrNotCreator, incentiveID.Hex())
		}
		if inc.Claimed || !inc.Active {
			return fmt.Errorf("%w: incentive %s", ErrAlreadyClaimed, incentiveID.Hex())
		}
		if eligible := inc.CreatedAt.Add(e.cfg.ClawbackDelay); now.Before(eligible) {
			return fmt.Errorf("%w: eligible at %s", ErrClawbackTooEarly, eligible.Format("2006-01-02T15:04:05Z"))
		}

		key := incentive.PoolKey{ChainID: inc.ChainID, Target: inc.Target}
		p, err := tx.Pool(ctx, key)
		if err != nil {
			return err
		}
		if p.Total < inc.Amount {
			return fmt.Errorf("%w: pool holds %d, incentive %d", ErrPoolDrained, p.Total, inc.Amount)
		}
		p.Total -= inc.Amount
		if p.Contributors > 0 {
			p.Contributors--
		}
		if err := tx.SetPool(ctx, key, p); err != nil {
			return err
		}

		inc.Claimed = true
		inc.Active = false
		if err := tx.UpdateIncentive(ctx, inc); err != nil {
			return err
		}

		if err := e.transfer(ctx, ledger.Payment{To: inc.Creator, Amount: inc.Amount}); err != nil {
			return err
		}

		out = inc
		pool = p
		return nil
	})
	if err != nil {
		return incentive.Incentive{}, err
	}

	e.emit(ctx, []events.Event{&events.ClawbackV1{
		Version:          events.Version1,
		IncentiveID:      out.ID,
		Creator:          out.Creator,
		Target:           out.Target,
		ChainID:          out.ChainID,
		Amount:           out.Amount,
		ClawedBackAt:     now,
		PoolTotal:        pool.Total,
		PoolContributors: pool.Contributors,
	}})
	return out, nil
}
