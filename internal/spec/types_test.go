package spec

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func validSpec() Spec {
	return Spec{
		ID:          common.HexToHash("0x01"),
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
		Status:      StatusSubmitted,
		Bond:        100,
		Creator:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Target:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
		ContentHash: common.HexToHash("0x02"),
		ChainID:     1,
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusSubmitted, StatusProposed, true},
		{StatusSubmitted, StatusCancelled, true},
		{StatusSubmitted, StatusFinalized, false},
		{StatusProposed, StatusFinalized, true},
		{StatusProposed, StatusProposed, false},
		{StatusProposed, StatusSubmitted, false},
		{StatusProposed, StatusCancelled, true},
		{StatusFinalized, StatusProposed, false},
		{StatusFinalized, StatusFinalized, false},
		{StatusCancelled, StatusSubmitted, false},
		{StatusUnknown, StatusSubmitted, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.ok {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestTransition_Forbidden(t *testing.T) {
	s := validSpec()
	s.Status = StatusProposed
	s.QuestionID = common.HexToHash("0x03")

	if _, err := s.Transition(StatusProposed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("re-propose must fail with ErrInvalidTransition, got %v", err)
	}

	final, err := s.Transition(StatusFinalized)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := final.Transition(StatusProposed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("backward transition must fail, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"missing id", func(s *Spec) { s.ID = common.Hash{} }},
		{"missing creator", func(s *Spec) { s.Creator = common.Address{} }},
		{"missing target", func(s *Spec) { s.Target = common.Address{} }},
		{"zero chain", func(s *Spec) { s.ChainID = 0 }},
		{"missing content hash", func(s *Spec) { s.ContentHash = common.Hash{} }},
		{"missing created at", func(s *Spec) { s.CreatedAt = time.Time{} }},
		{"unknown status", func(s *Spec) { s.Status = StatusUnknown }},
		{"proposed without question", func(s *Spec) { s.Status = StatusProposed }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if StatusSubmitted.Terminal() || StatusProposed.Terminal() {
		t.Fatalf("non-terminal states reported terminal")
	}
	if !StatusFinalized.Terminal() || !StatusCancelled.Terminal() {
		t.Fatalf("terminal states not reported terminal")
	}
}
