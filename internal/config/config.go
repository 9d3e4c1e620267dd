package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Known output document formats.
const (
	FormatCZML   = "czml"
	FormatChunks = "chunks"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Conversion output configuration.
	OutputDir string
	Formats   []string
	CZMLMode  string
	ChunkSize int

	// WatchDir switches the job source from Kafka to a watched
	// directory. Kafka settings are not required when it is set.
	WatchDir string
}

// WatchMode reports whether jobs come from a watched directory instead
// of Kafka.
func (c *Config) WatchMode() bool { return c.WatchDir != "" }

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("BATCH_SIZE", 20)
	if err != nil {
		return nil, err
	}
	chunkSize, err := parsePositiveInt("CHUNK_SIZE", 10000)
	if err != nil {
		return nil, err
	}
	formats, err := parseFormats(envOrDefault("FORMATS", FormatCZML))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "granule-convert-jobs"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "granule-convert-results"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "granule-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		OutputDir:          envOrDefault("OUTPUT_DIR", "out"),
		Formats:            formats,
		CZMLMode:           envOrDefault("CZML_MODE", "path"),
		ChunkSize:          chunkSize,
		WatchDir:           os.Getenv("WATCH_DIR"),
	}

	if cfg.CZMLMode != "path" && cfg.CZMLMode != "points" {
		return nil, fmt.Errorf("CZML_MODE must be path or points, got %q", cfg.CZMLMode)
	}
	if !cfg.WatchMode() {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFormats(s string) ([]string, error) {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		switch f = strings.TrimSpace(f); f {
		case "":
		case FormatCZML, FormatChunks:
			formats = append(formats, f)
		default:
			return nil, fmt.Errorf("unknown format %q in FORMATS", f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("FORMATS must name at least one format")
	}
	return formats, nil
}
