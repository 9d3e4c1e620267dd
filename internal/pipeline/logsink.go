package pipeline

import (
	"context"
	"log/slog"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

// LogSink is a ResultLoader for broker-less deployments: each result is
// logged instead of being published to Kafka.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) LoadBatch(_ context.Context, results []domain.ConvertResult) error {
	for _, r := range results {
		attrs := []any{
			"granule", r.GranulePath,
			"status", r.Status,
			"points", r.PointCount,
		}
		if r.Error != "" {
			attrs = append(attrs, "error", r.Error)
		}
		s.logger.Info("conversion result", attrs...)
	}
	return nil
}
