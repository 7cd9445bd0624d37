package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/commitment"
	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/idempotency"
	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/spec"
	"github.com/chainspec/registry/internal/state"
)

// Commit stores a blinded promise to later reveal metadata for (chainID,
// target). No value is attached; bonding happens at reveal so the commit
// transaction leaks nothing about bond size. incentiveID optionally links the
// commitment to an existing incentive; zero leaves it unlinked.
//
// The returned record carries the derived commitment id and the reveal
// deadline. Callers must keep the id: it is a function of the commit timestamp
// and cannot be looked up by (caller, target) alone.
func (e *Engine) Commit(ctx context.Context, caller common.Address, blindedHash common.Hash, target common.Address, chainID uint64, incentiveID common.Hash) (commitment.Commitment, error) {
	if caller == (common.Address{}) {
		return commitment.Commitment{}, fmt.Errorf("%w: zero caller", ErrInvalidInput)
	}
	if blindedHash == (common.Hash{}) {
		return commitment.Commitment{}, fmt.Errorf("%w: zero blinded hash", ErrInvalidInput)
	}
	if target == (common.Address{}) {
		return commitment.Commitment{}, fmt.Errorf("%w: zero target", ErrInvalidInput)
	}
	if chainID == 0 {
		return commitment.Commitment{}, fmt.Errorf("%w: zero chain id", ErrInvalidInput)
	}

	unlock, err := e.enter()
	if err != nil {
		return commitment.Commitment{}, err
	}
	defer unlock()

	now := e.now()
	c := commitment.Commitment{
		ID:             idempotency.CommitmentIDV1(blindedHash, caller, target, chainID, now.Unix()),
		Committer:      caller,
		Target:         target,
		ChainID:        chainID,
		CommittedAt:    now,
		RevealDeadline: now.Add(e.cfg.CommitRevealTimeout),
		IncentiveID:    incentiveID,
	}

	err = e.store.ExecTx(ctx, func(ctx context.Context, tx state.Tx) error {
		if incentiveID != (common.Hash{}) {
			inc, err := tx.GetIncentive(ctx, incentiveID)
			if err != nil {
				if errors.Is(err, state.ErrNotFound) {
					return fmt.Errorf("%w: linked incentive %s", ErrIncentiveNotFound, incentiveID.Hex())
				}
				return err
			}
			if inc.ChainID != chainID || inc.Target != target {
				return fmt.Errorf("%w: linked incentive targets a different pool", ErrInvalidInput)
			}
		}
		if err := tx.InsertCommitment(ctx, c); err != nil {
			if errors.Is(err, state.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrAlreadyCommitted, c.ID.Hex())
			}
			return err
		}
		return nil
	})
	if err != nil {
		return commitment.Commitment{}, err
	}

	e.emit(ctx, []events.Event{&events.CommitmentCreatedV1{
		Version:        events.Version1,
		CommitmentID:   c.ID,
		Committer:      c.Committer,
		Target:         c.Target,
		ChainID:        c.ChainID,
		CommittedAt:    c.CommittedAt,
		RevealDeadline: c.RevealDeadline,
	}})
	return c, nil
}

// Reveal discloses the content behind a commitment and creates the spec
// record. bond is the value attached to the call; when it meets the configured
// minimum the spec is proposed to the oracle in the same transaction,
// otherwise it lands in submitted state awaiting an explicit Propose.
//
// The binding check rederives the commitment id from the disclosed
// (verificationHash, nonce) pair and the stored creation-time inputs; only the
// party that knew the pre-image when committing can pass it.
func (e *Engine) Reveal(ctx context.Context, caller common.Address, commitmentID common.Hash, revealedData []byte, verificationHash, nonce common.Hash, bond uint64) (spec.Spec, error) {
	if commitmentID == (common.Hash{}) {
		return spec.Spec{}, fmt.Errorf("%w: zero commitment id", ErrInvalidInput)
	}
	if verificationHash == (common.Hash{}) {
		return spec.Spec{}, fmt.Errorf("%w: zero verification hash", ErrInvalidInput)
	}
	if bond > incentive.MaxAmount {
		return spec.Spec{}, fmt.Errorf("%w: bond %d", incentive.ErrAmountTooLarge, bond)
	}

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

		c, err := tx.GetCommitment(ctx, commitmentID)
		if err != nil {
			if errors.Is(err, state.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrCommitmentNotFound, commitmentID.Hex())
			}
			return err
		}
		if c.Revealed {
			return fmt.Errorf("%w: %s", ErrAlreadyRevealed, commitmentID.Hex())
		}
		if c.Expired(now) {
			return fmt.Errorf("%w: deadline %s", ErrCommitmentExpired, c.RevealDeadline.Format("2006-01-02T15:04:05Z"))
		}
		if caller != c.Committer {
			return fmt.Errorf("%w: caller is not the committer", ErrInvalidReveal)
		}
		if len(revealedData) == 0 {
			return fmt.Errorf("%w: empty revealed data", ErrInvalidReveal)
		}
		blinded := idempotency.BlindedHashV1(verificationHash, nonce)
		derived := idempotency.CommitmentIDV1(blinded, c.Committer, c.Target, c.ChainID, c.CommittedAt.Unix())
		if derived != commitmentID {
			return fmt.Errorf("%w: hash mismatch", ErrInvalidReveal)
		}

		s := spec.Spec{
			ID:          idempotency.SpecIDV1(verificationHash, c.Target, c.ChainID, c.Committer, c.CommittedAt.Unix()),
			CreatedAt:   now,
			Status:      spec.StatusSubmitted,
			Bond:        bond,
			Creator:     c.Committer,
			Target:      c.Target,
			ContentHash: verificationHash,
			IncentiveID: c.IncentiveID,
			ChainID:     c.ChainID,
		}
		if err := tx.InsertSpec(ctx, s); err != nil {
			if errors.Is(err, state.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrSpecExists, s.ID.Hex())
			}
			return err
		}

		c.Revealed = true
		c.Bond = bond
		if err := tx.UpdateCommitment(ctx, c); err != nil {
			return err
		}

		staged = append(staged, &events.RevealedV1{
			Version:      events.Version1,
			CommitmentID: c.ID,
			SpecID:       s.ID,
			Creator:      s.Creator,
			Target:       s.Target,
			ChainID:      s.ChainID,
			ContentHash:  s.ContentHash,
			Bond:         s.Bond,
			RevealedAt:   now,
		})

		if bond >= e.minBond {
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
		}

		out = s
		return nil
	})
	if err != nil {
		return spec.Spec{}, err
	}

	e.emit(ctx, staged)
	return out, nil
}
