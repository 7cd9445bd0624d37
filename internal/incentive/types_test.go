package incentive

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func validIncentive() Incentive {
	created := time.Unix(1700000000, 0).UTC()
	return Incentive{
		ID:        common.HexToHash("0x01"),
		Creator:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Amount:    1_000_000,
		CreatedAt: created,
		Deadline:  created.Add(7 * 24 * time.Hour),
		Target:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		ChainID:   1,
		Active:    true,
	}
}

func TestIncentiveValidate(t *testing.T) {
	if err := validIncentive().Validate(); err != nil {
		t.Fatalf("valid incentive rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Incentive)
		wantErr error
	}{
		{"missing id", func(i *Incentive) { i.ID = common.Hash{} }, ErrInvalidInput},
		{"missing creator", func(i *Incentive) { i.Creator = common.Address{} }, ErrInvalidInput},
		{"missing target", func(i *Incentive) { i.Target = common.Address{} }, ErrInvalidInput},
		{"zero chain", func(i *Incentive) { i.ChainID = 0 }, ErrInvalidInput},
		{"zero amount", func(i *Incentive) { i.Amount = 0 }, ErrInvalidInput},
		{"oversized amount", func(i *Incentive) { i.Amount = MaxAmount + 1 }, ErrAmountTooLarge},
		{"deadline before creation", func(i *Incentive) { i.Deadline = i.CreatedAt }, ErrInvalidInput},
		{"oversized description", func(i *Incentive) { i.Description = strings.Repeat("x", MaxDescriptionLen+1) }, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := validIncentive()
			tt.mutate(&i)
			if err := i.Validate(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPoolKeyValidate(t *testing.T) {
	k := PoolKey{ChainID: 1, Target: common.HexToAddress("0x2222222222222222222222222222222222222222")}
	if err := k.Validate(); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if err := (PoolKey{ChainID: 0, Target: k.Target}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero chain id must be rejected")
	}
	if err := (PoolKey{ChainID: 1}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero target must be rejected")
	}
}
