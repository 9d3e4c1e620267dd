package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldtrace/granule-etl-service/internal/adapter/chunkstore"
	"github.com/fieldtrace/granule-etl-service/internal/adapter/czml"
	"github.com/fieldtrace/granule-etl-service/internal/adapter/granulefile"
	httpadapter "github.com/fieldtrace/granule-etl-service/internal/adapter/http"
	kafkaadapter "github.com/fieldtrace/granule-etl-service/internal/adapter/kafka"
	"github.com/fieldtrace/granule-etl-service/internal/adapter/watch"
	"github.com/fieldtrace/granule-etl-service/internal/config"
	"github.com/fieldtrace/granule-etl-service/internal/observability"
	"github.com/fieldtrace/granule-etl-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	writers, err := documentWriters(cfg)
	if err != nil {
		logger.Error("failed to build writers", "error", err)
		os.Exit(1)
	}

	converter := pipeline.NewConverter(pipeline.ConverterConfig{
		Loader:         granulefile.Load,
		Writers:        writers,
		DefaultFormats: cfg.Formats,
		OutputDir:      cfg.OutputDir,
	}, pipeline.NewNamer(clock), clock, logger, metrics)

	// Jobs come from Kafka by default; WATCH_DIR switches to a watched
	// directory with results logged instead of published.
	var (
		source  pipeline.BatchExtractor
		sink    pipeline.ResultLoader
		closers []io.Closer
	)
	if cfg.WatchMode() {
		watchSource, err := watch.NewSource(cfg.WatchDir, cfg.BatchFlushInterval, clock, logger)
		if err != nil {
			logger.Error("failed to watch directory", "dir", cfg.WatchDir, "error", err)
			os.Exit(1)
		}
		logger.Info("watch mode", "dir", cfg.WatchDir)
		source = watchSource
		sink = pipeline.NewLogSink(logger)
		closers = append(closers, watchSource)
	} else {
		reader := kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewWriter(cfg, logger)
		source = reader
		sink = writer
		closers = append(closers, reader, writer)
	}

	p := pipeline.New(source, converter, sink, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, prometheus.DefaultGatherer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("adapter close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func documentWriters(cfg *config.Config) ([]pipeline.DocumentWriter, error) {
	czmlWriter, err := czml.NewWriter(cfg.CZMLMode)
	if err != nil {
		return nil, err
	}
	return []pipeline.DocumentWriter{
		czmlWriter,
		chunkstore.NewWriter(cfg.ChunkSize),
	}, nil
}
