package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/idempotency"
	"github.com/chainspec/registry/internal/spec"
)

func TestCommitDerivesID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := common.HexToHash("0xc0ffee")
	nonce := common.HexToHash("0x01")
	blinded := idempotency.BlindedHashV1(content, nonce)

	c, err := f.engine.Commit(ctx, submitterAddr, blinded, targetAddr, testChainID, common.Hash{})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	want := idempotency.CommitmentIDV1(blinded, submitterAddr, targetAddr, testChainID, f.clock.now.Unix())
	if c.ID != want {
		t.Fatalf("id = %s, want %s", c.ID.Hex(), want.Hex())
	}
	if got := c.RevealDeadline.Sub(c.CommittedAt); got != DefaultCommitRevealTimeout {
		t.Fatalf("reveal window = %s, want %s", got, DefaultCommitRevealTimeout)
	}
	if c.Revealed || c.Bond != 0 {
		t.Fatalf("fresh commitment revealed=%v bond=%d", c.Revealed, c.Bond)
	}

	stored, err := f.engine.GetCommitment(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Committer != submitterAddr || stored.Target != targetAddr {
		t.Fatalf("stored commitment mismatch: %+v", stored)
	}
}

func TestCommitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blinded := common.HexToHash("0xb1")

	tests := []struct {
		name    string
		caller  common.Address
		blinded common.Hash
		target  common.Address
		chainID uint64
	}{
		{"zero caller", common.Address{}, blinded, targetAddr, testChainID},
		{"zero blinded hash", submitterAddr, common.Hash{}, targetAddr, testChainID},
		{"zero target", submitterAddr, blinded, common.Address{}, testChainID},
		{"zero chain", submitterAddr, blinded, targetAddr, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Commit(ctx, tc.caller, tc.blinded, tc.target, tc.chainID, common.Hash{})
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCommitDuplicateSameSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blinded := common.HexToHash("0xb1")

	if _, err := f.engine.Commit(ctx, submitterAddr, blinded, targetAddr, testChainID, common.Hash{}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := f.engine.Commit(ctx, submitterAddr, blinded, targetAddr, testChainID, common.Hash{}); !errors.Is(err, ErrAlreadyCommitted) {
		t.Fatalf("err = %v, want ErrAlreadyCommitted", err)
	}

	// One clock tick changes the derived id.
	f.clock.advance(time.Second)
	if _, err := f.engine.Commit(ctx, submitterAddr, blinded, targetAddr, testChainID, common.Hash{}); err != nil {
		t.Fatalf("commit after tick: %v", err)
	}
}

func TestCommitLinkedIncentive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blinded := common.HexToHash("0xb1")

	if _, err := f.engine.Commit(ctx, submitterAddr, blinded, targetAddr, testChainID, common.HexToHash("0xdead")); !errors.Is(err, ErrIncentiveNotFound) {
		t.Fatalf("err = %v, want ErrIncentiveNotFound", err)
	}

	inc := f.fund(t, funderAddr, 500)
	content := common.HexToHash("0xc0ffee")
	nonce := common.HexToHash("0x01")
	c, err := f.engine.Commit(ctx, submitterAddr, idempotency.BlindedHashV1(content, nonce), targetAddr, testChainID, inc.ID)
	if err != nil {
		t.Fatalf("commit with link: %v", err)
	}
	if c.IncentiveID != inc.ID {
		t.Fatalf("incentive link lost")
	}

	s := f.reveal(t, submitterAddr, c, content, nonce, 0)
	if s.IncentiveID != inc.ID {
		t.Fatalf("spec did not inherit the incentive link")
	}
}

func TestRevealBinding(t *testing.T) {
	content := common.HexToHash("0xc0ffee")
	nonce := common.HexToHash("0x01")
	data := []byte("blob://payload")

	tests := []struct {
		name    string
		caller  common.Address
		data    []byte
		content common.Hash
		nonce   common.Hash
		late    time.Duration
		wantErr error
	}{
		{"happy path", submitterAddr, data, content, nonce, 0, nil},
		{"wrong nonce", submitterAddr, data, content, common.HexToHash("0x02"), 0, ErrInvalidReveal},
		{"wrong verification hash", submitterAddr, data, common.HexToHash("0xbad"), nonce, 0, ErrInvalidReveal},
		{"wrong caller", funderAddr, data, content, nonce, 0, ErrInvalidReveal},
		{"empty data", submitterAddr, nil, content, nonce, 0, ErrInvalidReveal},
		{"past deadline", submitterAddr, data, content, nonce, DefaultCommitRevealTimeout + time.Second, ErrCommitmentExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.commit(t, submitterAddr, content, nonce)
			f.clock.advance(tc.late)
			f.ledger.Deposit(testMinBond)

			_, err := f.engine.Reveal(context.Background(), tc.caller, c.ID, tc.data, tc.content, tc.nonce, testMinBond)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("reveal: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRevealExactlyOnce(t *testing.T) {
	f := newFixture(t)
	content := common.HexToHash("0xc0ffee")
	nonce := common.HexToHash("0x01")

	c := f.commit(t, submitterAddr, content, nonce)
	f.reveal(t, submitterAddr, c, content, nonce, testMinBond)

	f.ledger.Deposit(testMinBond)
	_, err := f.engine.Reveal(context.Background(), submitterAddr, c.ID, []byte("again"), content, nonce, testMinBond)
	if !errors.Is(err, ErrAlreadyRevealed) {
		t.Fatalf("err = %v, want ErrAlreadyRevealed", err)
	}
}

func TestRevealUnknownCommitment(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Reveal(context.Background(), submitterAddr, common.HexToHash("0x99"), []byte("x"), common.HexToHash("0xc0ffee"), common.Hash{}, 0)
	if !errors.Is(err, ErrCommitmentNotFound) {
		t.Fatalf("err = %v, want ErrCommitmentNotFound", err)
	}
}

func TestRevealSpecCollision(t *testing.T) {
	f := newFixture(t)
	content := common.HexToHash("0xc0ffee")

	// Two commitments in the same second over the same content derive the
	// same spec id; the second reveal must hit the collision guard.
	c1 := f.commit(t, submitterAddr, content, common.HexToHash("0x01"))
	c2 := f.commit(t, submitterAddr, content, common.HexToHash("0x02"))

	f.reveal(t, submitterAddr, c1, content, common.HexToHash("0x01"), 0)

	_, err := f.engine.Reveal(context.Background(), submitterAddr, c2.ID, []byte("x"), content, common.HexToHash("0x02"), 0)
	if !errors.Is(err, ErrSpecExists) {
		t.Fatalf("err = %v, want ErrSpecExists", err)
	}

	// The failed reveal rolled back whole: the commitment is still open.
	got, err := f.engine.GetCommitment(context.Background(), c2.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Revealed {
		t.Fatalf("failed reveal marked the commitment revealed")
	}
}

func TestRevealAutoProposeThreshold(t *testing.T) {
	content := common.HexToHash("0xc0ffee")
	nonce := common.HexToHash("0x01")

	t.Run("bond at minimum proposes", func(t *testing.T) {
		f := newFixture(t)
		c := f.commit(t, submitterAddr, content, nonce)
		s := f.reveal(t, submitterAddr, c, content, nonce, testMinBond)

		if s.Status != spec.StatusProposed {
			t.Fatalf("status = %s, want proposed", s.Status)
		}
		if s.QuestionID == (common.Hash{}) {
			t.Fatalf("proposed spec has no question id")
		}
		if s.ProposedAt.IsZero() {
			t.Fatalf("proposed spec has no proposal time")
		}
		// The full bond moved to the oracle account.
		if got := f.ledger.BalanceOf(oracleAddr); got != testMinBond {
			t.Fatalf("oracle account = %d, want %d", got, testMinBond)
		}

		q, ok := f.oracle.QuestionByID(s.QuestionID)
		if !ok {
			t.Fatalf("question not recorded")
		}
		if q.MinBond != testMinBond || q.Arbitrator != arbAddr {
			t.Fatalf("question params: %+v", q)
		}
	})

	t.Run("bond below minimum stays submitted", func(t *testing.T) {
		f := newFixture(t)
		c := f.commit(t, submitterAddr, content, nonce)
		s := f.reveal(t, submitterAddr, c, content, nonce, testMinBond-1)

		if s.Status != spec.StatusSubmitted {
			t.Fatalf("status = %s, want submitted", s.Status)
		}
		if s.QuestionID != (common.Hash{}) {
			t.Fatalf("submitted spec has a question id")
		}
		if got := f.ledger.BalanceOf(oracleAddr); got != 0 {
			t.Fatalf("bond moved to oracle account on a submitted spec")
		}
	})
}

func TestRevealRecordsBondOnCommitment(t *testing.T) {
	f := newFixture(t)
	content := common.HexToHash("0xc0ffee")
	nonce := common.HexToHash("0x01")

	c := f.commit(t, submitterAddr, content, nonce)
	s := f.reveal(t, submitterAddr, c, content, nonce, testMinBond)

	got, err := f.engine.GetCommitment(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Revealed || got.Bond != testMinBond {
		t.Fatalf("commitment after reveal: revealed=%v bond=%d", got.Revealed, got.Bond)
	}
	if s.ContentHash != content {
		t.Fatalf("content hash = %s, want %s", s.ContentHash.Hex(), content.Hex())
	}
	if hash, err := f.engine.ContentHashOf(context.Background(), s.ID); err != nil || hash != content {
		t.Fatalf("content lookup = %s, %v", hash.Hex(), err)
	}
}
