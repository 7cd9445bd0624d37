package eth

import (
	"math/big"
	"testing"
)

func TestCalc1559Fees(t *testing.T) {
	tests := []struct {
		name      string
		baseFee   int64
		suggested int64
		minTip    int64
		wantTip   int64
		wantFee   int64
	}{
		{"suggested above floor", 100, 7, 5, 7, 207},
		{"floor wins", 100, 2, 5, 5, 205},
		{"zero base fee", 0, 3, 1, 3, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tip, fee, err := calc1559Fees(big.NewInt(tc.baseFee), big.NewInt(tc.suggested), big.NewInt(tc.minTip))
			if err != nil {
				t.Fatalf("calc1559Fees: %v", err)
			}
			if tip.Int64() != tc.wantTip || fee.Int64() != tc.wantFee {
				t.Fatalf("got tip=%s fee=%s, want tip=%d fee=%d", tip, fee, tc.wantTip, tc.wantFee)
			}
		})
	}

	if _, _, err := calc1559Fees(nil, big.NewInt(1), big.NewInt(1)); err == nil {
		t.Fatalf("expected error for nil baseFee")
	}
	if _, _, err := calc1559Fees(big.NewInt(-1), big.NewInt(1), big.NewInt(1)); err == nil {
		t.Fatalf("expected error for negative baseFee")
	}
}

func TestBump1559Fees(t *testing.T) {
	tip, fee, err := bump1559Fees(big.NewInt(100), big.NewInt(300), 10)
	if err != nil {
		t.Fatalf("bump1559Fees: %v", err)
	}
	if tip.Int64() != 110 || fee.Int64() != 330 {
		t.Fatalf("got tip=%s fee=%s, want 110/330", tip, fee)
	}
}

func TestBump1559Fees_MinimumOneWei(t *testing.T) {
	// 10% of 1 wei rounds to zero; the bump still has to move the price.
	tip, fee, err := bump1559Fees(big.NewInt(1), big.NewInt(2), 10)
	if err != nil {
		t.Fatalf("bump1559Fees: %v", err)
	}
	if tip.Int64() != 2 || fee.Int64() != 3 {
		t.Fatalf("got tip=%s fee=%s, want 2/3", tip, fee)
	}
}

func TestBump1559Fees_FeeCapNeverBelowTipCap(t *testing.T) {
	tip, fee, err := bump1559Fees(big.NewInt(100), big.NewInt(100), 10)
	if err != nil {
		t.Fatalf("bump1559Fees: %v", err)
	}
	if fee.Cmp(tip) < 0 {
		t.Fatalf("feeCap %s below tipCap %s", fee, tip)
	}
}

func TestBump1559Fees_Invalid(t *testing.T) {
	if _, _, err := bump1559Fees(nil, big.NewInt(1), 10); err == nil {
		t.Fatalf("expected error for nil tipCap")
	}
	if _, _, err := bump1559Fees(big.NewInt(1), big.NewInt(1), 0); err == nil {
		t.Fatalf("expected error for zero bump percent")
	}
}
