package indexer

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/events"
)

var (
	ixCommitmentID = common.HexToHash("0xc0")
	ixSpecID       = common.HexToHash("0x51")
	ixIncentiveID  = common.HexToHash("0x1c")
	ixQuestionID   = common.HexToHash("0x9e")

	ixCreator = common.HexToAddress("0x0000000000000000000000000000000000000051")
	ixFunder  = common.HexToAddress("0x0000000000000000000000000000000000000052")
	ixTarget  = common.HexToAddress("0x000000000000000000000000000000000000007a")
)

var ixBase = time.Unix(1_700_000_000, 0).UTC()

func newIndexer(t *testing.T) (*Indexer, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	ix, err := New(store, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ix, store
}

func lifecycleEvents() []events.Event {
	return []events.Event{
		&events.IncentiveCreatedV1{
			IncentiveID: ixIncentiveID, Creator: ixFunder, Target: ixTarget, ChainID: 1,
			Amount: 1_000_000, CreatedAt: ixBase, Deadline: ixBase.Add(7 * 24 * time.Hour),
			PoolTotal: 1_000_000, PoolContributors: 1,
		},
		&events.CommitmentCreatedV1{
			CommitmentID: ixCommitmentID, Committer: ixCreator, Target: ixTarget, ChainID: 1,
			CommittedAt: ixBase.Add(time.Minute), RevealDeadline: ixBase.Add(24 * time.Hour),
		},
		&events.RevealedV1{
			CommitmentID: ixCommitmentID, SpecID: ixSpecID, Creator: ixCreator,
			Target: ixTarget, ChainID: 1, ContentHash: common.HexToHash("0xcc"),
			Bond: 1000, RevealedAt: ixBase.Add(2 * time.Minute),
		},
		&events.ProposedV1{
			SpecID: ixSpecID, QuestionID: ixQuestionID, Bond: 1000, ChainID: 1,
			ProposedAt: ixBase.Add(2 * time.Minute),
		},
		&events.SettledV1{
			SpecID: ixSpecID, QuestionID: ixQuestionID, Creator: ixCreator,
			Target: ixTarget, ChainID: 1, Accepted: true, Payout: 950_000, Fee: 50_000,
			SettledAt: ixBase.Add(8 * 24 * time.Hour),
		},
	}
}

func applyAll(t *testing.T, ix *Indexer, evs []events.Event) {
	t.Helper()
	ctx := context.Background()
	for _, ev := range evs {
		if err := ix.Apply(ctx, ev); err != nil {
			t.Fatalf("apply %s: %v", ev.EventType(), err)
		}
	}
}

func TestApplyLifecycle(t *testing.T) {
	ix, store := newIndexer(t)
	ctx := context.Background()
	applyAll(t, ix, lifecycleEvents())

	c, err := store.Commitment(ctx, ixCommitmentID)
	if err != nil {
		t.Fatalf("commitment: %v", err)
	}
	if !c.Revealed {
		t.Fatalf("commitment not marked revealed")
	}

	s, err := store.Spec(ctx, ixSpecID)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if s.Status != "finalized" || !s.Accepted || s.Payout != 950_000 || s.Fee != 50_000 {
		t.Fatalf("spec projection = %+v", s)
	}
	if s.QuestionID != ixQuestionID || s.Bond != 1000 {
		t.Fatalf("spec proposal fields = %+v", s)
	}

	inc, err := store.Incentive(ctx, ixIncentiveID)
	if err != nil {
		t.Fatalf("incentive: %v", err)
	}
	if inc.Amount != 1_000_000 || inc.ClawedBack {
		t.Fatalf("incentive projection = %+v", inc)
	}

	// Acceptance drained the pool.
	p, err := store.Pool(ctx, 1, ixTarget)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if p.Total != 0 || p.Contributors != 0 {
		t.Fatalf("pool after settle = %+v", p)
	}
}

func TestApplyReplayIdempotent(t *testing.T) {
	ix, store := newIndexer(t)
	ctx := context.Background()

	evs := lifecycleEvents()
	applyAll(t, ix, evs)
	want, err := store.Spec(ctx, ixSpecID)
	if err != nil {
		t.Fatalf("spec: %v", err)
	}

	// Replay the whole topic from the beginning.
	applyAll(t, ix, evs)

	got, err := store.Spec(ctx, ixSpecID)
	if err != nil {
		t.Fatalf("spec after replay: %v", err)
	}
	if got != want {
		t.Fatalf("replay changed projection:\n got %+v\nwant %+v", got, want)
	}

	p, err := store.Pool(ctx, 1, ixTarget)
	if err != nil {
		t.Fatalf("pool after replay: %v", err)
	}
	if p.Total != 0 {
		t.Fatalf("stale pool snapshot won: %+v", p)
	}
}

func TestApplyRevealWithoutCommitment(t *testing.T) {
	ix, store := newIndexer(t)
	ctx := context.Background()

	// Consumer joined mid-stream: the reveal still projects the spec.
	err := ix.Apply(ctx, &events.RevealedV1{
		CommitmentID: ixCommitmentID, SpecID: ixSpecID, Creator: ixCreator,
		Target: ixTarget, ChainID: 1, ContentHash: common.HexToHash("0xcc"),
		Bond: 500, RevealedAt: ixBase,
	})
	if err != nil {
		t.Fatalf("apply reveal: %v", err)
	}
	s, err := store.Spec(ctx, ixSpecID)
	if err != nil || s.Status != "submitted" {
		t.Fatalf("spec = %+v, %v", s, err)
	}
}

func TestApplyProposedUnknownSpec(t *testing.T) {
	ix, _ := newIndexer(t)

	err := ix.Apply(context.Background(), &events.ProposedV1{
		SpecID: ixSpecID, QuestionID: ixQuestionID, Bond: 1000, ChainID: 1, ProposedAt: ixBase,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApplyClawback(t *testing.T) {
	ix, store := newIndexer(t)
	ctx := context.Background()

	applyAll(t, ix, []events.Event{
		&events.IncentiveCreatedV1{
			IncentiveID: ixIncentiveID, Creator: ixFunder, Target: ixTarget, ChainID: 1,
			Amount: 500, CreatedAt: ixBase, Deadline: ixBase.Add(24 * time.Hour),
			PoolTotal: 500, PoolContributors: 1,
		},
		&events.ClawbackV1{
			IncentiveID: ixIncentiveID, Creator: ixFunder, Target: ixTarget, ChainID: 1,
			Amount: 500, ClawedBackAt: ixBase.Add(100 * 24 * time.Hour),
			PoolTotal: 0, PoolContributors: 0,
		},
	})

	inc, err := store.Incentive(ctx, ixIncentiveID)
	if err != nil || !inc.ClawedBack {
		t.Fatalf("incentive = %+v, %v", inc, err)
	}
	p, err := store.Pool(ctx, 1, ixTarget)
	if err != nil || p.Total != 0 || p.Contributors != 0 {
		t.Fatalf("pool = %+v, %v", p, err)
	}
}

func TestApplyLateProposeAfterSettle(t *testing.T) {
	ix, store := newIndexer(t)
	ctx := context.Background()

	evs := lifecycleEvents()
	applyAll(t, ix, evs)

	// A redelivered propose event after finalization must not regress status.
	if err := ix.Apply(ctx, evs[3]); err != nil {
		t.Fatalf("late propose: %v", err)
	}
	s, err := store.Spec(ctx, ixSpecID)
	if err != nil || s.Status != "finalized" {
		t.Fatalf("spec = %+v, %v", s, err)
	}
}
