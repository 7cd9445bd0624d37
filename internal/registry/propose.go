package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/ledger"
	"github.com/chainspec/registry/internal/oracle"
	"github.com/chainspec/registry/internal/spec"
	"github.com/chainspec/registry/internal/state"
)

// Propose advances a submitted spec to proposed, adding additionalBond on top
// of its accumulated bond. Any caller may top up; the call fails whole if the
// new total still falls short of the minimum, so a failed attempt leaves no
// bond behind. On success the spec's full bond is forwarded as the oracle
// question's stake.
func (e *Engine) Propose(ctx context.Context, caller common.Address, specID common.Hash, additionalBond uint64) (spec.Spec, error) {
	if specID == (common.Hash{}) {
		return spec.Spec{}, fmt.Errorf("%w: zero spec id", ErrInvalidInput)
	}
	if additionalBond > incentive.MaxAmount {
		return spec.Spec{}, fmt.Errorf("%w: bond %d", incentive.ErrAmountTooLarge, additionalBond)
	}
	_ = caller // any identity may top up a submitted spec

	unlock, err := e.enter()
	if err != nil {
		return spec.Spec{}, err
	}
	defer unlock()

	now := e.now()
	var (
		out    spec.Spec
		staged []events.Event
	)
	err = e.store.ExecTx(ctx, func(ctx context.Context, tx state.Tx) error {
		staged = staged[:0]

		s, err := tx.GetSpec(ctx, specID)
		if err != nil {
			if errors.Is(err, state.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrSpecNotFound, specID.Hex())
			}
			return err
		}
		switch s.Status {
		case spec.StatusSubmitted:
		case spec.StatusProposed:
			return fmt.Errorf("%w: %s", ErrAlreadyProposed, specID.Hex())
		default:
			return fmt.Errorf("%w: spec is %s", ErrAlreadyProposed, s.Status)
		}

		total := s.Bond + additionalBond
		if total > incentive.MaxAmount {
			return fmt.Errorf("%w: accumulated bond %d", incentive.ErrAmountTooLarge, total)
		}
		if total < e.minBond {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBond, total, e.minBond)
		}
		s.Bond = total

		s, err = e.proposeInTx(ctx, tx, s, now)
		if err != nil {
			return err
		}
		staged = append(staged, &events.ProposedV1{
			Version:    events.Version1,
			SpecID:     s.ID,
			QuestionID: s.QuestionID,
			Bond:       s.Bond,
			ChainID:    s.ChainID,
			ProposedAt: now,
		})
		out = s
		return nil
	})
	if err != nil {
		return spec.Spec{}, err
	}

	e.emit(ctx, staged)
	return out, nil
}

// proposeInTx asks the oracle, stages the submitted->proposed transition, and
// forwards the spec's bond to the oracle account. The transfer runs last so a
// failed leg aborts the transaction with the spec still submitted. A question
// asked before such an abort is orphaned on the oracle side; a retry asks a
// fresh one.
func (e *Engine) proposeInTx(ctx context.Context, tx state.Tx, s spec.Spec, now time.Time) (spec.Spec, error) {
	q := oracle.Question{
		TemplateID:   e.cfg.QuestionTemplateID,
		Text:         oracle.RenderQuestion(s.ContentHash, s.Target, s.ChainID),
		Arbitrator:   e.cfg.Arbitrator,
		Timeout:      e.cfg.OracleTimeout,
		OpeningDelay: e.cfg.OracleOpeningDelay,
		MinBond:      s.Bond,
	}
	questionID, err := e.oracle.AskQuestion(ctx, q)
	if err != nil {
		return spec.Spec{}, fmt.Errorf("ask oracle: %w", err)
	}
	if questionID == (common.Hash{}) {
		return spec.Spec{}, fmt.Errorf("ask oracle: %w: zero question id", ErrInvalidInput)
	}

	s, err = s.Transition(spec.StatusProposed)
	if err != nil {
		return spec.Spec{}, err
	}
	s.ProposedAt = now
	s.QuestionID = questionID
	if err := tx.UpdateSpec(ctx, s); err != nil {
		return spec.Spec{}, err
	}

	if err := e.transfer(ctx, ledger.Payment{To: e.cfg.OracleAccount, Amount: s.Bond}); err != nil {
		return spec.Spec{}, err
	}
	return s, nil
}
