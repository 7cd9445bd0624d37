package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryLedger is an in-memory Ledger for tests and simulation. The registry's
// custody balance is tracked explicitly so pool-conservation tests can assert
// against it.
//
// FailNext and OnTransfer exist for tests: FailNext makes the next Transfer
// batch fail without moving value; OnTransfer runs a callback per payment
// after the batch applied, which is how reentrancy-guard tests simulate a
// malicious recipient calling back into the engine.
type MemoryLedger struct {
	mu sync.Mutex

	custody  uint64
	balances map[common.Address]uint64

	failNext   bool
	onTransfer func(to common.Address, amount uint64)
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[common.Address]uint64)}
}

// Deposit adds value into the registry's custody, modelling the value attached
// to a payable call.
func (l *MemoryLedger) Deposit(amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.custody += amount
}

// Transfer validates the whole batch before touching any balance, so a
// rejected leg leaves every other leg unapplied.
func (l *MemoryLedger) Transfer(_ context.Context, payments []Payment) error {
	var total uint64
	for _, p := range payments {
		if p.To == (common.Address{}) {
			return fmt.Errorf("%w: zero recipient", ErrInvalidInput)
		}
		if total+p.Amount < total {
			return fmt.Errorf("%w: batch total overflows", ErrInvalidInput)
		}
		total += p.Amount
	}

	l.mu.Lock()
	if l.failNext {
		l.failNext = false
		l.mu.Unlock()
		return ErrTransferFailed
	}
	if total > l.custody {
		l.mu.Unlock()
		return fmt.Errorf("%w: custody %d, transfer %d", ErrInsufficientFunds, l.custody, total)
	}
	l.custody -= total
	for _, p := range payments {
		l.balances[p.To] += p.Amount
	}
	cb := l.onTransfer
	l.mu.Unlock()

	// Callbacks run outside the ledger lock, the way a real recipient
	// callback would run outside any ledger-internal critical section.
	if cb != nil {
		for _, p := range payments {
			cb(p.To, p.Amount)
		}
	}
	return nil
}

// BalanceOf returns the amount transferred to addr so far.
func (l *MemoryLedger) BalanceOf(addr common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// Custody returns the value currently held by the registry.
func (l *MemoryLedger) Custody() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.custody
}

// FailNext makes the next Transfer fail with ErrTransferFailed.
func (l *MemoryLedger) FailNext() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = true
}

// SetOnTransfer installs a callback invoked for each payment of every
// successful transfer.
func (l *MemoryLedger) SetOnTransfer(fn func(to common.Address, amount uint64)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTransfer = fn
}
