package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
	"github.com/fieldtrace/granule-etl-service/internal/observability"
)

// DocumentWriter serializes a point cloud into one output format. Write
// receives the full artifact path, extension included.
type DocumentWriter interface {
	Format() string
	Write(cloud *domain.PointCloud, path string) error
}

// ConverterConfig wires a Converter's granule access and output policy.
type ConverterConfig struct {
	Loader         domain.Loader
	LoaderParams   map[string]any
	Preprocessors  []domain.Preprocessor
	Writers        []DocumentWriter
	DefaultFormats []string
	OutputDir      string
}

// Converter implements Processor: it loads a granule, projects it into a
// point cloud, and writes one artifact per requested format.
type Converter struct {
	cfg     ConverterConfig
	writers map[string]DocumentWriter
	namer   *Namer
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewConverter(cfg ConverterConfig, namer *Namer, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Converter {
	writers := make(map[string]DocumentWriter, len(cfg.Writers))
	for _, w := range cfg.Writers {
		writers[w.Format()] = w
	}
	return &Converter{
		cfg:     cfg,
		writers: writers,
		namer:   namer,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Process parses the job and converts its granule. Only an unparseable
// job yields an error; a granule that fails to load, normalize, or
// project yields a rejected result so the outcome is still published.
func (c *Converter) Process(ctx context.Context, raw domain.RawJob) (domain.ConvertResult, error) {
	job, err := domain.ParseRawJob(raw)
	if err != nil {
		return domain.ConvertResult{}, err
	}
	return c.convert(ctx, job), nil
}

func (c *Converter) convert(_ context.Context, job domain.ConvertJob) domain.ConvertResult {
	start := time.Now()

	adapter, err := domain.Open(job.GranulePath, domain.AdapterConfig{
		Loader:        c.cfg.Loader,
		LoaderParams:  c.cfg.LoaderParams,
		Preprocessors: c.cfg.Preprocessors,
	})
	if err != nil {
		return c.reject(job, fmt.Errorf("open granule: %w", err))
	}
	defer adapter.Close()

	cloud, err := domain.ProjectPointCloud(adapter)
	if err != nil {
		return c.reject(job, fmt.Errorf("project point cloud: %w", err))
	}
	c.metrics.ConversionDuration.Observe(time.Since(start).Seconds())

	formats := job.Formats
	if len(formats) == 0 {
		formats = c.cfg.DefaultFormats
	}
	outputDir := job.OutputDir
	if outputDir == "" {
		outputDir = c.cfg.OutputDir
	}
	prefix := artifactPrefix(job.GranulePath)

	artifacts := make([]domain.Artifact, 0, len(formats))
	for _, format := range formats {
		writer, ok := c.writers[format]
		if !ok {
			return c.reject(job, fmt.Errorf("no writer for format %q", format))
		}
		path := filepath.Join(outputDir, c.namer.Name(prefix, extensionFor(format)))

		writeStart := time.Now()
		if err := writer.Write(cloud, path); err != nil {
			return c.reject(job, fmt.Errorf("write %s artifact: %w", format, err))
		}
		c.metrics.ArtifactWriteDuration.WithLabelValues(format).Observe(time.Since(writeStart).Seconds())

		artifacts = append(artifacts, domain.Artifact{Format: format, Path: path})
	}

	c.metrics.GranulesConverted.Inc()
	c.metrics.PointsEmitted.Add(float64(cloud.Len()))
	c.logger.Info("granule converted",
		"granule", job.GranulePath,
		"points", cloud.Len(),
		"artifacts", len(artifacts),
	)

	return domain.ConvertResult{
		GranulePath: job.GranulePath,
		Status:      domain.StatusConverted,
		PointCount:  cloud.Len(),
		Artifacts:   artifacts,
		ProcessedAt: c.clock.Now().UTC(),
	}
}

func (c *Converter) reject(job domain.ConvertJob, err error) domain.ConvertResult {
	c.logger.Warn("granule rejected", "granule", job.GranulePath, "error", err)
	c.metrics.GranulesRejected.Inc()
	return domain.ConvertResult{
		GranulePath: job.GranulePath,
		Status:      domain.StatusRejected,
		Error:       err.Error(),
		ProcessedAt: c.clock.Now().UTC(),
	}
}

// artifactPrefix strips the directory and extension from a granule path.
func artifactPrefix(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extensionFor(format string) string {
	switch format {
	case "chunks":
		return "zarr"
	default:
		return format
	}
}
