// registry-indexer consumes the registry's lifecycle event topic and folds it
// into a queryable read model. Applying is idempotent, so the consumer can be
// restarted or replayed from the earliest offset at any time.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/indexer"
	indexerpg "github.com/chainspec/registry/internal/indexer/postgres"
	"github.com/chainspec/registry/internal/queue"
)

func main() {
	var (
		storeDriver = flag.String("store-driver", "postgres", "read model store driver: postgres|memory")
		postgresDSN = flag.String("postgres-dsn", "", "Postgres DSN (required when --store-driver=postgres)")

		queueDriver   = flag.String("queue-driver", queue.DriverKafka, "queue driver: kafka|stdio")
		queueBrokers  = flag.String("queue-brokers", "", "comma-separated queue brokers (required for kafka)")
		queueGroup    = flag.String("queue-group", "registry-indexer", "queue consumer group (required for kafka)")
		queueTopics   = flag.String("queue-topics", "registry.events.v1", "comma-separated queue topics")
		maxLineBytes  = flag.Int("max-line-bytes", 1<<20, "maximum stdin line size for stdio driver (bytes)")
		queueMaxBytes = flag.Int("queue-max-bytes", 10<<20, "maximum kafka message size for consumer reads (bytes)")
		ackTimeout    = flag.Duration("queue-ack-timeout", 5*time.Second, "timeout for queue message acknowledgements")
		applyTimeout  = flag.Duration("apply-timeout", 30*time.Second, "per-event apply timeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *maxLineBytes <= 0 || *queueMaxBytes <= 0 {
		fmt.Fprintln(os.Stderr, "error: --max-line-bytes and --queue-max-bytes must be > 0")
		os.Exit(2)
	}
	if *ackTimeout <= 0 || *applyTimeout <= 0 {
		fmt.Fprintln(os.Stderr, "error: --queue-ack-timeout and --apply-timeout must be > 0")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store indexer.Store
	switch strings.ToLower(strings.TrimSpace(*storeDriver)) {
	case "postgres":
		if strings.TrimSpace(*postgresDSN) == "" {
			fmt.Fprintln(os.Stderr, "error: --postgres-dsn is required when --store-driver=postgres")
			os.Exit(2)
		}
		pool, err := pgxpool.New(ctx, *postgresDSN)
		if err != nil {
			log.Error("init pgx pool", "err", err)
			os.Exit(2)
		}
		defer pool.Close()

		pgStore, err := indexerpg.New(pool)
		if err != nil {
			log.Error("init indexer store", "err", err)
			os.Exit(2)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("ensure indexer schema", "err", err)
			os.Exit(2)
		}
		store = pgStore
	case "memory":
		store = indexer.NewMemoryStore()
	default:
		fmt.Fprintf(os.Stderr, "error: unsupported --store-driver %q\n", *storeDriver)
		os.Exit(2)
	}

	ix, err := indexer.New(store, log)
	if err != nil {
		log.Error("init indexer", "err", err)
		os.Exit(2)
	}

	consumer, err := queue.NewConsumer(ctx, queue.ConsumerConfig{
		Driver:        *queueDriver,
		Brokers:       queue.SplitCommaList(*queueBrokers),
		Group:         *queueGroup,
		Topics:        queue.SplitCommaList(*queueTopics),
		KafkaMaxBytes: *queueMaxBytes,
		MaxLineBytes:  *maxLineBytes,
	})
	if err != nil {
		log.Error("init queue consumer", "err", err)
		os.Exit(2)
	}
	defer func() { _ = consumer.Close() }()

	log.Info("registry indexer started",
		"queueDriver", *queueDriver,
		"topics", *queueTopics,
		"storeDriver", strings.ToLower(strings.TrimSpace(*storeDriver)),
	)

	msgCh := consumer.Messages()
	errCh := consumer.Errors()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown", "reason", ctx.Err())
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				log.Error("queue consume error", "err", err)
			}
		case qmsg, ok := <-msgCh:
			if !ok {
				return
			}
			line := bytes.TrimSpace(qmsg.Value)
			if len(line) == 0 {
				ackMessage(qmsg, *ackTimeout, log)
				continue
			}

			ev, err := events.Decode(line)
			if err != nil {
				// Malformed or unknown events are acked, not retried: a
				// redelivery would fail the same way forever.
				log.Error("decode event", "topic", qmsg.Topic, "err", err)
				ackMessage(qmsg, *ackTimeout, log)
				continue
			}

			cctx, cancel := context.WithTimeout(ctx, *applyTimeout)
			err = ix.Apply(cctx, ev)
			cancel()
			if err != nil {
				// Leave unacked so the broker redelivers after a restart.
				log.Error("apply event", "type", ev.EventType(), "err", err)
				continue
			}
			ackMessage(qmsg, *ackTimeout, log)
		}
	}
}

func ackMessage(msg queue.Message, timeout time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := msg.Ack(ctx); err != nil {
		log.Error("ack queue message", "topic", msg.Topic, "err", err)
	}
}
