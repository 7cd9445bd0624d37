// queue-publish republishes registry event envelopes onto the event topic,
// for backfilling an indexer or replaying a captured stream. Every payload is
// decoded before publishing so a typo'd envelope never reaches consumers, and
// messages are keyed by the event's entity id the same way the daemon keys
// them.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/queue"
)

type stringListFlag []string

func (f *stringListFlag) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(*f, ",")
}

func (f *stringListFlag) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("value must not be empty")
	}
	*f = append(*f, v)
	return nil
}

func main() {
	if err := runMain(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runMain(args []string, stdin io.Reader, stdout io.Writer) error {
	var eventFiles stringListFlag
	fs := flag.NewFlagSet("queue-publish", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	queueDriver := fs.String("queue-driver", queue.DriverKafka, "queue driver: kafka|stdio")
	queueBrokers := fs.String("queue-brokers", "", "comma-separated queue brokers (required for kafka)")
	topic := fs.String("topic", "", "event topic (required)")
	event := fs.String("event", "", "inline event envelope JSON")
	fs.Var(&eventFiles, "event-file", "event envelope file, one JSON envelope per line (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*topic) == "" {
		return errors.New("--topic is required")
	}

	envelopes, err := loadEnvelopes(strings.TrimSpace(*event), eventFiles, stdin)
	if err != nil {
		return err
	}
	if len(envelopes) == 0 {
		return errors.New("an event is required via --event, --event-file, or stdin")
	}

	producer, err := queue.NewProducer(queue.ProducerConfig{
		Driver:  *queueDriver,
		Brokers: queue.SplitCommaList(*queueBrokers),
		Writer:  stdout,
	})
	if err != nil {
		return err
	}
	defer func() { _ = producer.Close() }()

	ctx := context.Background()
	for i, body := range envelopes {
		ev, err := events.Decode(body)
		if err != nil {
			return fmt.Errorf("envelope %d: %w", i+1, err)
		}
		if err := producer.Publish(ctx, *topic, []byte(ev.Key()), body); err != nil {
			return fmt.Errorf("publish %s %s: %w", ev.EventType(), ev.Key(), err)
		}
	}
	return nil
}

// loadEnvelopes gathers envelope lines from the inline flag, each file, and
// finally stdin when neither was given. Blank lines are skipped; decoding is
// the caller's job.
func loadEnvelopes(inline string, files []string, stdin io.Reader) ([][]byte, error) {
	var envelopes [][]byte
	if inline != "" {
		envelopes = append(envelopes, []byte(inline))
	}
	for _, filePath := range files {
		b, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read event file %q: %w", filePath, err)
		}
		lines, err := splitEnvelopeLines(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("read event file %q: %w", filePath, err)
		}
		envelopes = append(envelopes, lines...)
	}
	if len(envelopes) > 0 || stdin == nil {
		return envelopes, nil
	}
	lines, err := splitEnvelopeLines(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}

func splitEnvelopeLines(r io.Reader) ([][]byte, error) {
	var out [][]byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		out = append(out, append([]byte(nil), line...))
	}
	return out, sc.Err()
}
