package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/spec"
)

var (
	testTarget  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testCreator = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testKey     = incentive.PoolKey{ChainID: 1, Target: testTarget}
)

func testSpec(id byte) spec.Spec {
	return spec.Spec{
		ID:          common.Hash{31: id},
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
		Status:      spec.StatusSubmitted,
		Creator:     testCreator,
		Target:      testTarget,
		ContentHash: common.Hash{30: id},
		ChainID:     1,
	}
}

func TestExecTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sentinel := errors.New("boom")
	err := s.ExecTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertSpec(ctx, testSpec(1)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := tx.SetPool(ctx, testKey, incentive.Pool{Total: 10, Contributors: 1}); err != nil {
			t.Fatalf("set pool: %v", err)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("ExecTx: %v", err)
	}

	if _, err := s.GetSpec(ctx, testSpec(1).ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled-back spec visible: %v", err)
	}
	pool, err := s.Pool(ctx, testKey)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.Total != 0 || pool.Contributors != 0 {
		t.Fatalf("rolled-back pool visible: %+v", pool)
	}
}

func TestExecTx_CommitVisible(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.ExecTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertSpec(ctx, testSpec(1))
	})
	if err != nil {
		t.Fatalf("ExecTx: %v", err)
	}

	got, err := s.GetSpec(ctx, testSpec(1).ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != testSpec(1).ID {
		t.Fatalf("wrong spec: %+v", got)
	}
}

func TestInsertSpec_CollisionGuard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.ExecTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertSpec(ctx, testSpec(1))
	}); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := s.ExecTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertSpec(ctx, testSpec(1))
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSpecsPage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := byte(1); i <= 5; i++ {
		sp := testSpec(i)
		if err := s.ExecTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.InsertSpec(ctx, sp)
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	page, total, err := s.SpecsPage(ctx, testKey, 1, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 2 || page[0].ID != (common.Hash{31: 2}) || page[1].ID != (common.Hash{31: 3}) {
		t.Fatalf("wrong page: %+v", page)
	}

	// Out-of-range offsets return an empty page with the true total.
	page, total, err = s.SpecsPage(ctx, testKey, 10, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if total != 5 || len(page) != 0 {
		t.Fatalf("out-of-range page = %d items, total %d", len(page), total)
	}

	if _, _, err := s.SpecsPage(ctx, testKey, -1, 2); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative offset must be rejected, got %v", err)
	}

	n, err := s.CountSpecs(ctx, testKey)
	if err != nil || n != 5 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestIncentiveIndexes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created := time.Unix(1700000000, 0).UTC()
	for i := byte(1); i <= 3; i++ {
		in := incentive.Incentive{
			ID:        common.Hash{31: i},
			Creator:   testCreator,
			Amount:    uint64(i) * 100,
			CreatedAt: created,
			Deadline:  created.Add(time.Hour),
			Target:    testTarget,
			ChainID:   1,
			Active:    true,
		}
		if err := s.ExecTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.InsertIncentive(ctx, in)
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	n, err := s.CreatorIncentiveCount(ctx, testCreator)
	if err != nil || n != 3 {
		t.Fatalf("creator count = %d, %v", n, err)
	}

	byKey, err := s.IncentivesFor(ctx, testKey)
	if err != nil || len(byKey) != 3 {
		t.Fatalf("incentives for key = %d, %v", len(byKey), err)
	}

	byCreator, err := s.IncentivesBy(ctx, testCreator)
	if err != nil || len(byCreator) != 3 {
		t.Fatalf("incentives by creator = %d, %v", len(byCreator), err)
	}
	if byCreator[0].Amount != 100 || byCreator[2].Amount != 300 {
		t.Fatalf("creation order not preserved: %+v", byCreator)
	}
}
