// Package events defines the versioned records the registry publishes after
// every committed state change. Events carry full identifiers, amounts, and
// timestamps so an off-chain indexer can reconstruct registry state without
// re-deriving any hash.
package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TypeCommitmentCreated = "commitment.created"
	TypeRevealed          = "spec.revealed"
	TypeProposed          = "spec.proposed"
	TypeSettled           = "spec.settled"
	TypeIncentiveCreated  = "incentive.created"
	TypeClawback          = "incentive.clawback"
)

// Event is any publishable registry event. Key returns the id of the entity
// the event belongs to; it becomes the queue partition key, so all events for
// one commitment, spec, or incentive replay in publish order.
type Event interface {
	EventType() string
	Key() string
}

type CommitmentCreatedV1 struct {
	Version string `json:"version"`

	CommitmentID common.Hash    `json:"commitmentId"`
	Committer    common.Address `json:"committer"`
	Target       common.Address `json:"target"`
	ChainID      uint64         `json:"chainId"`

	CommittedAt    time.Time `json:"committedAt"`
	RevealDeadline time.Time `json:"revealDeadline"`
}

func (CommitmentCreatedV1) EventType() string { return TypeCommitmentCreated }
func (e CommitmentCreatedV1) Key() string     { return e.CommitmentID.Hex() }

type RevealedV1 struct {
	Version string `json:"version"`

	CommitmentID common.Hash    `json:"commitmentId"`
	SpecID       common.Hash    `json:"specId"`
	Creator      common.Address `json:"creator"`
	Target       common.Address `json:"target"`
	ChainID      uint64         `json:"chainId"`
	ContentHash  common.Hash    `json:"contentHash"`
	Bond         uint64         `json:"bond"`

	RevealedAt time.Time `json:"revealedAt"`
}

func (RevealedV1) EventType() string { return TypeRevealed }
func (e RevealedV1) Key() string     { return e.SpecID.Hex() }

type ProposedV1 struct {
	Version string `json:"version"`

	SpecID     common.Hash `json:"specId"`
	QuestionID common.Hash `json:"questionId"`
	Bond       uint64      `json:"bond"`
	ChainID    uint64      `json:"chainId"`

	ProposedAt time.Time `json:"proposedAt"`
}

func (ProposedV1) EventType() string { return TypeProposed }
func (e ProposedV1) Key() string     { return e.SpecID.Hex() }

type SettledV1 struct {
	Version string `json:"version"`

	SpecID     common.Hash    `json:"specId"`
	QuestionID common.Hash    `json:"questionId"`
	Creator    common.Address `json:"creator"`
	Target     common.Address `json:"target"`
	ChainID    uint64         `json:"chainId"`

	Accepted bool   `json:"accepted"`
	Payout   uint64 `json:"payout"`
	Fee      uint64 `json:"fee"`

	SettledAt time.Time `json:"settledAt"`
}

func (SettledV1) EventType() string { return TypeSettled }
func (e SettledV1) Key() string     { return e.SpecID.Hex() }

type IncentiveCreatedV1 struct {
	Version string `json:"version"`

	IncentiveID common.Hash    `json:"incentiveId"`
	Creator     common.Address `json:"creator"`
	Target      common.Address `json:"target"`
	ChainID     uint64         `json:"chainId"`
	Amount      uint64         `json:"amount"`

	CreatedAt time.Time `json:"createdAt"`
	Deadline  time.Time `json:"deadline"`

	PoolTotal        uint64 `json:"poolTotal"`
	PoolContributors uint64 `json:"poolContributors"`
}

func (IncentiveCreatedV1) EventType() string { return TypeIncentiveCreated }
func (e IncentiveCreatedV1) Key() string     { return e.IncentiveID.Hex() }

type ClawbackV1 struct {
	Version string `json:"version"`

	IncentiveID common.Hash    `json:"incentiveId"`
	Creator     common.Address `json:"creator"`
	Target      common.Address `json:"target"`
	ChainID     uint64         `json:"chainId"`
	Amount      uint64         `json:"amount"`

	ClawedBackAt time.Time `json:"clawedBackAt"`

	PoolTotal        uint64 `json:"poolTotal"`
	PoolContributors uint64 `json:"poolContributors"`
}

func (ClawbackV1) EventType() string { return TypeClawback }
func (e ClawbackV1) Key() string     { return e.IncentiveID.Hex() }
