package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fieldtrace/granule-etl-service/internal/config"
	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

// Reader consumes conversion jobs from a Kafka topic as part of a
// consumer group. It implements pipeline.BatchExtractor.
type Reader struct {
	reader *kafkago.Reader
	flush  time.Duration
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, flush: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch fetches up to batchSize jobs. It returns early with a
// partial batch once the flush interval elapses so a quiet topic never
// stalls the pipeline. Offsets are committed only through each job's
// Commit closure, after the job has been processed.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawJob, error) {
	jobs := make([]domain.RawJob, 0, batchSize)

	fetchCtx, cancel := context.WithTimeout(ctx, r.flush)
	defer cancel()

	for len(jobs) < batchSize {
		msg, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			return nil, err
		}
		jobs = append(jobs, r.mapMessage(msg))
	}
	return jobs, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into a RawJob whose Commit closure
// acknowledges the message's offset to the consumer group.
func (r *Reader) mapMessage(msg kafkago.Message) domain.RawJob {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawJob{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}
