// Package attest is the trust-scoring collaborator of the registry: a
// permissionless attestation log over content hashes plus per-account approval
// policies. It holds no funds and the core settlement path never consults it;
// external callers combine it with registry queries to decide which accepted
// metadata they personally trust.
package attest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidInput  = errors.New("attest: invalid input")
	ErrInvalidPolicy = errors.New("attest: invalid policy")
)

// Policy is one account's approval rule for a content hash.
type Policy struct {
	// Attesters is the trusted set counted towards Threshold.
	Attesters []common.Address
	// Threshold is the number of trusted attestations required.
	Threshold uint64
	// MustIncludeAny requires at least one listed identity to have attested.
	// Empty disables the rule.
	MustIncludeAny []common.Address
	// MustIncludeAll requires every listed identity to have attested.
	MustIncludeAll []common.Address
}

func (p Policy) validate() error {
	if p.Threshold == 0 {
		return fmt.Errorf("%w: zero threshold", ErrInvalidPolicy)
	}
	if uint64(len(p.Attesters)) < p.Threshold {
		return fmt.Errorf("%w: threshold %d exceeds trusted set of %d", ErrInvalidPolicy, p.Threshold, len(p.Attesters))
	}
	for _, a := range p.Attesters {
		if a == (common.Address{}) {
			return fmt.Errorf("%w: zero attester", ErrInvalidPolicy)
		}
	}
	return nil
}

// Registry records attestations and evaluates policies. Safe for concurrent
// use.
type Registry struct {
	mu sync.RWMutex

	// attestations[hash][attester] = first attestation time. Re-attesting is
	// a no-op; the original timestamp stands.
	attestations map[common.Hash]map[common.Address]time.Time
	policies     map[common.Address]Policy

	now func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		attestations: make(map[common.Hash]map[common.Address]time.Time),
		policies:     make(map[common.Address]Policy),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attest records that attester vouches for hash. Permissionless and
// idempotent per (attester, hash) pair.
func (r *Registry) Attest(attester common.Address, hash common.Hash) error {
	if attester == (common.Address{}) {
		return fmt.Errorf("%w: zero attester", ErrInvalidInput)
	}
	if hash == (common.Hash{}) {
		return fmt.Errorf("%w: zero hash", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byAttester, ok := r.attestations[hash]
	if !ok {
		byAttester = make(map[common.Address]time.Time)
		r.attestations[hash] = byAttester
	}
	if _, ok := byAttester[attester]; !ok {
		byAttester[attester] = r.now().UTC()
	}
	return nil
}

// AttestBatch attests every hash in hashes, skipping pairs already recorded
// instead of failing the batch. Returns the number of new attestations. A bad
// input fails the whole batch before anything is recorded.
func (r *Registry) AttestBatch(attester common.Address, hashes []common.Hash) (int, error) {
	if attester == (common.Address{}) {
		return 0, fmt.Errorf("%w: zero attester", ErrInvalidInput)
	}
	for _, h := range hashes {
		if h == (common.Hash{}) {
			return 0, fmt.Errorf("%w: zero hash in batch", ErrInvalidInput)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	now := r.now().UTC()
	for _, h := range hashes {
		byAttester, ok := r.attestations[h]
		if !ok {
			byAttester = make(map[common.Address]time.Time)
			r.attestations[h] = byAttester
		}
		if _, ok := byAttester[attester]; ok {
			continue
		}
		byAttester[attester] = now
		added++
	}
	return added, nil
}

// HasAttested reports whether attester has vouched for hash.
func (r *Registry) HasAttested(attester common.Address, hash common.Hash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.attestations[hash][attester]
	return ok
}

// AttesterCount returns the number of distinct attesters for hash.
func (r *Registry) AttesterCount(hash common.Hash) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attestations[hash])
}

// SetPolicy installs account's approval policy, replacing any previous one.
func (r *Registry) SetPolicy(account common.Address, p Policy) error {
	if account == (common.Address{}) {
		return fmt.Errorf("%w: zero account", ErrInvalidInput)
	}
	if err := p.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[account] = p
	return nil
}

// PolicyFor returns account's policy, if one is set.
func (r *Registry) PolicyFor(account common.Address) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[account]
	return p, ok
}

// IsApproved evaluates account's policy against the attestations recorded for
// hash. An account with no policy approves nothing.
func (r *Registry) IsApproved(hash common.Hash, account common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[account]
	if !ok {
		return false
	}
	attested := r.attestations[hash]
	if len(attested) == 0 {
		return false
	}

	var trusted uint64
	for _, a := range p.Attesters {
		if _, ok := attested[a]; ok {
			trusted++
		}
	}
	if trusted < p.Threshold {
		return false
	}

	if len(p.MustIncludeAny) > 0 {
		hit := false
		for _, a := range p.MustIncludeAny {
			if _, ok := attested[a]; ok {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, a := range p.MustIncludeAll {
		if _, ok := attested[a]; !ok {
			return false
		}
	}
	return true
}
