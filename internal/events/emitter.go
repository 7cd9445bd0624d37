package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainspec/registry/internal/queue"
)

const Version1 = "v1"

var ErrInvalidConfig = errors.New("events: invalid config")

// Sink receives committed registry events.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Emitter publishes events as JSON envelopes on a queue topic. Emission is
// best-effort: the registry's own state is authoritative, so a failed publish
// is logged and dropped rather than failing the already-committed operation.
type Emitter struct {
	producer queue.Producer
	topic    string
	log      *slog.Logger
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewEmitter(producer queue.Producer, topic string, log *slog.Logger) (*Emitter, error) {
	if producer == nil {
		return nil, fmt.Errorf("%w: nil producer", ErrInvalidConfig)
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: empty topic", ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{producer: producer, topic: topic, log: log}, nil
}

func (e *Emitter) Emit(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.log.Error("marshal event", "type", ev.EventType(), "err", err)
		return
	}
	body, err := json.Marshal(envelope{Type: ev.EventType(), Payload: payload})
	if err != nil {
		e.log.Error("marshal envelope", "type", ev.EventType(), "err", err)
		return
	}
	if err := e.producer.Publish(ctx, e.topic, []byte(ev.Key()), body); err != nil {
		e.log.Error("publish event", "type", ev.EventType(), "key", ev.Key(), "err", err)
	}
}

// Decode parses a published envelope back into its typed event.
func Decode(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("events: decode envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case TypeCommitmentCreated:
		ev = &CommitmentCreatedV1{}
	case TypeRevealed:
		ev = &RevealedV1{}
	case TypeProposed:
		ev = &ProposedV1{}
	case TypeSettled:
		ev = &SettledV1{}
	case TypeIncentiveCreated:
		ev = &IncentiveCreatedV1{}
	case TypeClawback:
		ev = &ClawbackV1{}
	default:
		return nil, fmt.Errorf("events: unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, ev); err != nil {
		return nil, fmt.Errorf("events: decode %s payload: %w", env.Type, err)
	}
	return ev, nil
}
