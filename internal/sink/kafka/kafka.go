// Package kafka publishes dataset examples to a Kafka topic, one message per
// example keyed by "<partition>/<position>".
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	pkgkafka "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/resilience"
)

// Publisher is the subset of the Kafka producer used by the sink.
type Publisher interface {
	Ping(ctx context.Context) error
	PublishBatch(ctx context.Context, events []pkgkafka.Event) error
	Close() error
}

type Sink struct {
	producer  Publisher
	batchSize int
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

// New creates a Sink. Each batch is retried according to retry.
func New(producer Publisher, batchSize int, retry resilience.RetryConfig) *Sink {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sink{
		producer:  producer,
		batchSize: batchSize,
		retry:     retry,
		logger:    slog.Default().With("component", "kafka-sink"),
	}
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) Ping(ctx context.Context) error { return s.producer.Ping(ctx) }

// Key returns the message key for an example.
func Key(ex dataset.Example) string {
	return string(ex.Partition) + "/" + strconv.Itoa(ex.Position)
}

func (s *Sink) Write(ctx context.Context, runID string, ds *dataset.Dataset) error {
	examples := ds.All()
	batches := 0
	for start := 0; start < len(examples); start += s.batchSize {
		end := min(start+s.batchSize, len(examples))
		events := make([]pkgkafka.Event, 0, end-start)
		for _, ex := range examples[start:end] {
			events = append(events, pkgkafka.Event{
				Key:     Key(ex),
				Value:   ex,
				Headers: map[string]string{"run_id": runID},
			})
		}
		err := resilience.Retry(ctx, "kafka-publish", s.retry, func(ctx context.Context) error {
			return s.producer.PublishBatch(ctx, events)
		})
		if err != nil {
			return fmt.Errorf("publishing examples %d-%d: %w", start, end-1, err)
		}
		batches++
	}
	s.logger.Info("examples published",
		"run_id", runID,
		"examples", len(examples),
		"batches", batches,
	)
	return nil
}

func (s *Sink) Close() error { return s.producer.Close() }
