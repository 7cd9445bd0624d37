package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Admin surface. The root admin is fixed at construction; delegates can be
// added and removed by any admin. Admin operations intentionally bypass the
// pause gate, otherwise a paused registry could never be unpaused.

func (e *Engine) IsAdmin(addr common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admins[addr]
}

func (e *Engine) adminEnter(caller common.Address) (func(), error) {
	if e.inTransfer.Load() {
		return nil, ErrReentrantCall
	}
	e.mu.Lock()
	if !e.admins[caller] {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotAdmin, caller.Hex())
	}
	return e.mu.Unlock, nil
}

// Pause rejects all further state-mutating entry points until Unpause. Reads
// stay available and no stored state is touched.
func (e *Engine) Pause(caller common.Address) error {
	unlock, err := e.adminEnter(caller)
	if err != nil {
		return err
	}
	defer unlock()
	e.paused = true
	return nil
}

func (e *Engine) Unpause(caller common.Address) error {
	unlock, err := e.adminEnter(caller)
	if err != nil {
		return err
	}
	defer unlock()
	e.paused = false
	return nil
}

// SetMinBond updates the auto-propose threshold. Applies to future reveals and
// proposals only; already-proposed specs are unaffected.
func (e *Engine) SetMinBond(caller common.Address, minBond uint64) error {
	unlock, err := e.adminEnter(caller)
	if err != nil {
		return err
	}
	defer unlock()
	e.minBond = minBond
	return nil
}

func (e *Engine) AddAdmin(caller, addr common.Address) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero admin address", ErrInvalidInput)
	}
	unlock, err := e.adminEnter(caller)
	if err != nil {
		return err
	}
	defer unlock()
	e.admins[addr] = true
	return nil
}

func (e *Engine) RemoveAdmin(caller, addr common.Address) error {
	unlock, err := e.adminEnter(caller)
	if err != nil {
		return err
	}
	defer unlock()
	if addr == e.cfg.Admin {
		return fmt.Errorf("%w: root admin is not removable", ErrInvalidInput)
	}
	delete(e.admins, addr)
	return nil
}
