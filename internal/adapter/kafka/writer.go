package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/config"
	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	publishAttempts   = 3
	initialBackoff    = 200 * time.Millisecond
	maxPublishBackoff = 2 * time.Second
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes hourly statistics to a Kafka topic as JSON, one message
// per row, in batches. It implements pipeline.RowSink.
type Writer struct {
	writer    messageWriter
	logger    *slog.Logger
	batchSize int
	pending   []kafkago.Message

	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, cfg.KafkaBatchSize, logger)
}

func newWriter(w messageWriter, batchSize int, logger *slog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Writer{
		writer:     w,
		logger:     logger,
		batchSize:  batchSize,
		attempts:   publishAttempts,
		backoff:    initialBackoff,
		maxBackoff: maxPublishBackoff,
	}
}

// WriteRow queues a statistic. Nothing is published before Flush, so a run
// that fails part way leaves the topic untouched. Rows of one series share a
// key, so they land on one partition in emission order.
func (w *Writer) WriteRow(_ context.Context, row domain.HourlyStatistic) error {
	msg, err := serializeToMessage(row)
	if err != nil {
		return err
	}
	w.pending = append(w.pending, msg)
	return nil
}

// Flush publishes the queued messages in chunks of the batch size. A chunk
// that keeps failing stops the flush; it and later chunks stay queued.
func (w *Writer) Flush(ctx context.Context) error {
	for len(w.pending) > 0 {
		n := min(w.batchSize, len(w.pending))
		if err := w.publish(ctx, w.pending[:n]); err != nil {
			return err
		}
		w.pending = w.pending[n:]
	}
	w.pending = nil
	return nil
}

// publish writes one chunk, retrying with exponential backoff on failure.
func (w *Writer) publish(ctx context.Context, msgs []kafkago.Message) error {
	backoff := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			w.logger.Debug("published statistics", "count", len(msgs))
			return nil
		}
		if attempt >= w.attempts {
			return fmt.Errorf("publish %d statistics after %d attempts: %w", len(msgs), attempt, err)
		}
		w.logger.Warn("publish failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish %d statistics: %w", len(msgs), ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, w.maxBackoff)
	}
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a statistic into a Kafka message keyed by its
// statistic id.
func serializeToMessage(row domain.HourlyStatistic) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize statistic: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.StatisticID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "statistic_id", Value: []byte(row.StatisticID)},
			{Key: "imported_at", Value: []byte(domain.Now().Format(time.RFC3339))},
		},
	}, nil
}
