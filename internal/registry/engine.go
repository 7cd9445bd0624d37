// Package registry implements the commit-reveal-propose-settle state machine
// over pooled incentives. The Engine is the single write path: every mutating
// operation runs under one lock, applies its changes through the state store's
// transaction, and performs value transfers only after all of its own state
// mutations are staged.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/ledger"
	"github.com/chainspec/registry/internal/oracle"
	"github.com/chainspec/registry/internal/state"
)

const (
	DefaultFeePercent = 5

	// MinIncentiveDuration is the shortest accepted incentive lifetime,
	// matching the one-hour floor on every other engine timing.
	MinIncentiveDuration = time.Hour

	DefaultCommitRevealTimeout  = 24 * time.Hour
	DefaultIncentiveMaxDuration = 30 * 24 * time.Hour
	DefaultClawbackDelay        = 90 * 24 * time.Hour
	DefaultOracleTimeout        = 7 * 24 * time.Hour
	DefaultOracleOpeningDelay   = time.Hour
)

// Config fixes the engine's parameters at construction. MinBond and the admin
// set are the only values mutable afterwards, through the admin surface.
type Config struct {
	// Admin is the root administrative identity. Never removable.
	Admin common.Address
	// Treasury receives the platform fee on accepted settlements.
	Treasury common.Address
	// OracleAccount is the custody account proposal bonds are forwarded to.
	OracleAccount common.Address
	// Arbitrator is passed through on every oracle question.
	Arbitrator common.Address

	MinBond    uint64
	FeePercent uint64

	QuestionTemplateID uint32

	CommitRevealTimeout  time.Duration
	IncentiveMaxDuration time.Duration
	ClawbackDelay        time.Duration
	OracleTimeout        time.Duration
	OracleOpeningDelay   time.Duration

	// Now overrides the clock. Nil means time.Now; tests inject a fixed or
	// stepped clock here.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.FeePercent == 0 {
		c.FeePercent = DefaultFeePercent
	}
	if c.CommitRevealTimeout == 0 {
		c.CommitRevealTimeout = DefaultCommitRevealTimeout
	}
	if c.IncentiveMaxDuration == 0 {
		c.IncentiveMaxDuration = DefaultIncentiveMaxDuration
	}
	if c.ClawbackDelay == 0 {
		c.ClawbackDelay = DefaultClawbackDelay
	}
	if c.OracleTimeout == 0 {
		c.OracleTimeout = DefaultOracleTimeout
	}
	if c.OracleOpeningDelay == 0 {
		c.OracleOpeningDelay = DefaultOracleOpeningDelay
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

func (c Config) validate() error {
	if c.Admin == (common.Address{}) {
		return fmt.Errorf("%w: missing admin", ErrInvalidInput)
	}
	if c.Treasury == (common.Address{}) {
		return fmt.Errorf("%w: missing treasury", ErrInvalidInput)
	}
	if c.OracleAccount == (common.Address{}) {
		return fmt.Errorf("%w: missing oracle account", ErrInvalidInput)
	}
	if c.FeePercent > 100 {
		return fmt.Errorf("%w: fee percent %d > 100", ErrInvalidInput, c.FeePercent)
	}
	if c.CommitRevealTimeout < time.Hour {
		return fmt.Errorf("%w: commit-reveal timeout below one hour", ErrInvalidInput)
	}
	if c.IncentiveMaxDuration < time.Hour {
		return fmt.Errorf("%w: incentive max duration below one hour", ErrInvalidInput)
	}
	if c.ClawbackDelay < time.Hour {
		return fmt.Errorf("%w: clawback delay below one hour", ErrInvalidInput)
	}
	return nil
}

// Engine applies registry operations. Safe for concurrent use; all mutating
// entry points serialize on one mutex.
type Engine struct {
	cfg    Config
	store  state.Store
	ledger ledger.Ledger
	oracle oracle.Oracle

	sink events.Sink
	log  *slog.Logger

	mu sync.Mutex
	// inTransfer is set while value leaves custody. Mutating entry points
	// check it before taking mu, so a recipient callback re-entering the
	// engine on the same goroutine fails fast instead of deadlocking.
	inTransfer atomic.Bool

	paused  bool
	minBond uint64
	admins  map[common.Address]bool
}

type Option func(*Engine)

func WithEventSink(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func New(cfg Config, store state.Store, led ledger.Ledger, orc oracle.Oracle, opts ...Option) (*Engine, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidInput)
	}
	if led == nil {
		return nil, fmt.Errorf("%w: nil ledger", ErrInvalidInput)
	}
	if orc == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrInvalidInput)
	}

	e := &Engine{
		cfg:     cfg,
		store:   store,
		ledger:  led,
		oracle:  orc,
		log:     slog.Default(),
		minBond: cfg.MinBond,
		admins:  map[common.Address]bool{cfg.Admin: true},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) now() time.Time {
	return e.cfg.Now().UTC().Truncate(time.Second)
}

// enter is the shared pre-call guard for mutating operations: reject reentry
// from inside a transfer, serialize, reject while paused. The returned func
// releases the lock.
func (e *Engine) enter() (func(), error) {
	if e.inTransfer.Load() {
		return nil, ErrReentrantCall
	}
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return nil, ErrPaused
	}
	return e.mu.Unlock, nil
}

// transfer moves value out of custody in one all-or-nothing batch, so
// multi-leg payouts (settlement's creator and treasury legs) either both land
// or neither does. Callers must have staged every state mutation first; a
// transfer error aborts the surrounding store transaction.
func (e *Engine) transfer(ctx context.Context, payments ...ledger.Payment) error {
	batch := payments[:0:0]
	for _, p := range payments {
		if p.Amount > 0 {
			batch = append(batch, p)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	e.inTransfer.Store(true)
	err := e.ledger.Transfer(ctx, batch)
	e.inTransfer.Store(false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// emit publishes staged events after the transaction committed. Best-effort.
func (e *Engine) emit(ctx context.Context, evs []events.Event) {
	if e.sink == nil {
		return
	}
	for _, ev := range evs {
		e.sink.Emit(ctx, ev)
	}
}

// feeSplit divides total into (payout, fee) with fee = floor(total*pct/100),
// computed without overflowing uint64. The two parts always sum to total.
func feeSplit(total, pct uint64) (payout, fee uint64) {
	fee = (total/100)*pct + (total%100)*pct/100
	return total - fee, fee
}
