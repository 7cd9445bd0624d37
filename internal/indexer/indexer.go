// Package indexer maintains an off-engine read model from the registry's
// published event stream. Applying is idempotent, so replaying a topic from
// the beginning converges on the same projections.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/events"
)

var (
	ErrInvalidConfig = errors.New("indexer: invalid config")
	ErrNotFound      = errors.New("indexer: not found")
)

// CommitmentRow is the projected commitment record.
type CommitmentRow struct {
	CommitmentID common.Hash
	Committer    common.Address
	Target       common.Address
	ChainID      uint64

	CommittedAt    time.Time
	RevealDeadline time.Time
	Revealed       bool
}

// SpecRow is the projected spec record. Settlement fields stay zero until a
// settled event arrives.
type SpecRow struct {
	SpecID      common.Hash
	Creator     common.Address
	Target      common.Address
	ChainID     uint64
	ContentHash common.Hash

	Status     string
	Bond       uint64
	QuestionID common.Hash

	Accepted bool
	Payout   uint64
	Fee      uint64

	RevealedAt time.Time
	UpdatedAt  time.Time
}

// IncentiveRow is the projected incentive record.
type IncentiveRow struct {
	IncentiveID common.Hash
	Creator     common.Address
	Target      common.Address
	ChainID     uint64
	Amount      uint64

	CreatedAt time.Time
	Deadline  time.Time

	ClawedBack bool
}

// PoolRow is the projected pool aggregate for a (chain, target) key.
type PoolRow struct {
	ChainID uint64
	Target  common.Address

	Total        uint64
	Contributors uint64
	UpdatedAt    time.Time
}

// Store persists the read model. All writes are upserts keyed on the event's
// natural identifier, so re-applying an event is harmless.
type Store interface {
	UpsertCommitment(ctx context.Context, row CommitmentRow) error
	MarkCommitmentRevealed(ctx context.Context, commitmentID common.Hash) error

	UpsertSpec(ctx context.Context, row SpecRow) error
	MarkSpecProposed(ctx context.Context, specID, questionID common.Hash, bond uint64, at time.Time) error
	MarkSpecSettled(ctx context.Context, specID common.Hash, accepted bool, payout, fee uint64, at time.Time) error

	UpsertIncentive(ctx context.Context, row IncentiveRow) error
	MarkIncentiveClawedBack(ctx context.Context, incentiveID common.Hash) error

	UpsertPool(ctx context.Context, row PoolRow) error

	Commitment(ctx context.Context, commitmentID common.Hash) (CommitmentRow, error)
	Spec(ctx context.Context, specID common.Hash) (SpecRow, error)
	Incentive(ctx context.Context, incentiveID common.Hash) (IncentiveRow, error)
	Pool(ctx context.Context, chainID uint64, target common.Address) (PoolRow, error)
}

// Indexer folds decoded events into the store.
type Indexer struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{store: store, log: log}, nil
}

// Apply folds one event into the read model.
func (ix *Indexer) Apply(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.CommitmentCreatedV1:
		return ix.store.UpsertCommitment(ctx, CommitmentRow{
			CommitmentID:   e.CommitmentID,
			Committer:      e.Committer,
			Target:         e.Target,
			ChainID:        e.ChainID,
			CommittedAt:    e.CommittedAt,
			RevealDeadline: e.RevealDeadline,
		})

	case *events.RevealedV1:
		if err := ix.store.MarkCommitmentRevealed(ctx, e.CommitmentID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return ix.store.UpsertSpec(ctx, SpecRow{
			SpecID:      e.SpecID,
			Creator:     e.Creator,
			Target:      e.Target,
			ChainID:     e.ChainID,
			ContentHash: e.ContentHash,
			Status:      "submitted",
			Bond:        e.Bond,
			RevealedAt:  e.RevealedAt,
			UpdatedAt:   e.RevealedAt,
		})

	case *events.ProposedV1:
		return ix.store.MarkSpecProposed(ctx, e.SpecID, e.QuestionID, e.Bond, e.ProposedAt)

	case *events.SettledV1:
		if err := ix.store.MarkSpecSettled(ctx, e.SpecID, e.Accepted, e.Payout, e.Fee, e.SettledAt); err != nil {
			return err
		}
		if !e.Accepted {
			return nil
		}
		// Acceptance drains the whole pool.
		return ix.store.UpsertPool(ctx, PoolRow{
			ChainID:   e.ChainID,
			Target:    e.Target,
			UpdatedAt: e.SettledAt,
		})

	case *events.IncentiveCreatedV1:
		if err := ix.store.UpsertIncentive(ctx, IncentiveRow{
			IncentiveID: e.IncentiveID,
			Creator:     e.Creator,
			Target:      e.Target,
			ChainID:     e.ChainID,
			Amount:      e.Amount,
			CreatedAt:   e.CreatedAt,
			Deadline:    e.Deadline,
		}); err != nil {
			return err
		}
		return ix.store.UpsertPool(ctx, PoolRow{
			ChainID:      e.ChainID,
			Target:       e.Target,
			Total:        e.PoolTotal,
			Contributors: e.PoolContributors,
			UpdatedAt:    e.CreatedAt,
		})

	case *events.ClawbackV1:
		if err := ix.store.MarkIncentiveClawedBack(ctx, e.IncentiveID); err != nil {
			return err
		}
		return ix.store.UpsertPool(ctx, PoolRow{
			ChainID:      e.ChainID,
			Target:       e.Target,
			Total:        e.PoolTotal,
			Contributors: e.PoolContributors,
			UpdatedAt:    e.ClawedBackAt,
		})

	default:
		ix.log.Warn("skipping unknown event", "type", ev.EventType())
		return nil
	}
}
