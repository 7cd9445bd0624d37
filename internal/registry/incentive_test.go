package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/incentive"
	"github.com/chainspec/registry/internal/state"
)

func TestCreateIncentive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.Deposit(500)
	inc, err := f.engine.CreateIncentive(ctx, funderAddr, targetAddr, testChainID, 500, 7*24*time.Hour, "document target", 500)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inc.Amount != 500 || !inc.Active || inc.Claimed {
		t.Fatalf("incentive: %+v", inc)
	}
	if got := inc.Deadline.Sub(inc.CreatedAt); got != 7*24*time.Hour {
		t.Fatalf("deadline offset = %s", got)
	}

	p, err := f.engine.Pool(ctx, testKey)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if p.Total != 500 || p.Contributors != 1 {
		t.Fatalf("pool = %+v", p)
	}

	mine, err := f.engine.IncentivesBy(ctx, funderAddr)
	if err != nil || len(mine) != 1 || mine[0].ID != inc.ID {
		t.Fatalf("creator index: %v %v", mine, err)
	}
}

func TestCreateIncentiveTwoContributors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fund(t, funderAddr, 500_000)
	f.fund(t, funder2Addr, 500_000)

	p, err := f.engine.Pool(ctx, testKey)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if p.Total != 1_000_000 || p.Contributors != 2 {
		t.Fatalf("pool = %+v, want 1000000 across 2 contributors", p)
	}
}

func TestCreateIncentiveExcessRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.Deposit(800)
	_, err := f.engine.CreateIncentive(ctx, funderAddr, targetAddr, testChainID, 500, 24*time.Hour, "", 800)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bal := f.ledger.BalanceOf(funderAddr); bal != 300 {
		t.Fatalf("refund = %d, want 300", bal)
	}
	if got := f.ledger.Custody(); got != 500 {
		t.Fatalf("custody = %d, want 500", got)
	}
}

func TestCreateIncentiveRefundFailureReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.Deposit(800)
	f.ledger.FailNext()
	_, err := f.engine.CreateIncentive(ctx, funderAddr, targetAddr, testChainID, 500, 24*time.Hour, "", 800)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}

	if total := f.poolTotal(t); total != 0 {
		t.Fatalf("pool = %d after reverted create", total)
	}
	incs, err := f.engine.IncentivesFor(ctx, testKey)
	if err != nil || len(incs) != 0 {
		t.Fatalf("incentives after revert: %v %v", incs, err)
	}
}

func TestCreateIncentiveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.Deposit(1 << 30)

	tests := []struct {
		name     string
		amount   uint64
		duration time.Duration
		value    uint64
		desc     string
		wantErr  error
	}{
		{"zero amount", 0, time.Hour, 0, "", ErrInvalidInput},
		{"amount over cap", incentive.MaxAmount + 1, time.Hour, incentive.MaxAmount + 1, "", incentive.ErrAmountTooLarge},
		{"zero duration", 100, 0, 100, "", ErrDurationOutOfBounds},
		{"duration below an hour", 100, 30 * time.Minute, 100, "", ErrDurationOutOfBounds},
		{"duration over max", 100, DefaultIncentiveMaxDuration + time.Hour, 100, "", ErrDurationOutOfBounds},
		{"value below amount", 100, time.Hour, 99, "", ErrInsufficientValue},
		{"oversized description", 100, time.Hour, 100, strings.Repeat("x", incentive.MaxDescriptionLen+1), ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.CreateIncentive(ctx, funderAddr, targetAddr, testChainID, tc.amount, tc.duration, tc.desc, tc.value)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	if _, err := f.engine.CreateIncentive(ctx, funderAddr, common.Address{}, testChainID, 100, time.Hour, "", 100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero target accepted")
	}
	if _, err := f.engine.CreateIncentive(ctx, funderAddr, targetAddr, 0, 100, time.Hour, "", 100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero chain accepted")
	}
}

func TestClawbackTiming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.fund(t, funderAddr, 500)

	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID); !errors.Is(err, ErrClawbackTooEarly) {
		t.Fatalf("immediate clawback: err = %v, want ErrClawbackTooEarly", err)
	}

	f.clock.advance(DefaultClawbackDelay)
	got, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID)
	if err != nil {
		t.Fatalf("clawback after delay: %v", err)
	}
	if !got.Claimed || got.Active {
		t.Fatalf("incentive after clawback: %+v", got)
	}
	// Full original amount, no fee.
	if bal := f.ledger.BalanceOf(funderAddr); bal != 500 {
		t.Fatalf("returned = %d, want 500", bal)
	}
	if total := f.poolTotal(t); total != 0 {
		t.Fatalf("pool = %d after clawback", total)
	}
}

func TestClawbackAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.fund(t, funderAddr, 500)
	f.clock.advance(DefaultClawbackDelay)

	if _, err := f.engine.ClawbackIncentive(ctx, funder2Addr, inc.ID); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("err = %v, want ErrNotCreator", err)
	}
	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, common.HexToHash("0x99")); !errors.Is(err, ErrIncentiveNotFound) {
		t.Fatalf("err = %v, want ErrIncentiveNotFound", err)
	}
}

func TestClawbackExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.fund(t, funderAddr, 500)
	f.clock.advance(DefaultClawbackDelay)

	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID); err != nil {
		t.Fatalf("clawback: %v", err)
	}
	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("err = %v, want ErrAlreadyClaimed", err)
	}
	if bal := f.ledger.BalanceOf(funderAddr); bal != 500 {
		t.Fatalf("second clawback moved funds: balance %d", bal)
	}
}

func TestClawbackPoolDrainedGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.fund(t, funderAddr, 500)
	f.clock.advance(DefaultClawbackDelay)

	// Force the pool below the incentive amount; clawback must refuse rather
	// than underflow into other contributors' funds.
	err := f.store.ExecTx(ctx, func(ctx context.Context, tx state.Tx) error {
		return tx.SetPool(ctx, testKey, incentive.Pool{Total: 100, Contributors: 1})
	})
	if err != nil {
		t.Fatalf("set pool: %v", err)
	}

	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID); !errors.Is(err, ErrPoolDrained) {
		t.Fatalf("err = %v, want ErrPoolDrained", err)
	}
	got, err := f.engine.GetIncentive(ctx, inc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Claimed || !got.Active {
		t.Fatalf("refused clawback mutated the incentive: %+v", got)
	}
}

func TestClawbackTransferFailureReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.fund(t, funderAddr, 500)
	f.clock.advance(DefaultClawbackDelay)

	f.ledger.FailNext()
	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}

	got, err := f.engine.GetIncentive(ctx, inc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Claimed || !got.Active {
		t.Fatalf("failed clawback mutated the incentive: %+v", got)
	}
	if total := f.poolTotal(t); total != 500 {
		t.Fatalf("pool = %d, want 500 after rollback", total)
	}

	if _, err := f.engine.ClawbackIncentive(ctx, funderAddr, inc.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
