package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawJob is an unprocessed conversion request from a job source (Kafka
// message or watched file event).
type RawJob struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ConvertJob names one granule to process and which documents to produce.
type ConvertJob struct {
	GranulePath string   `json:"granule_path"`
	Formats     []string `json:"formats,omitempty"`    // defaults to the service-configured set
	OutputDir   string   `json:"output_dir,omitempty"` // defaults to the service output dir
}

// ParseRawJob deserializes a RawJob's value into a ConvertJob.
func ParseRawJob(raw RawJob) (ConvertJob, error) {
	var job ConvertJob
	if err := json.Unmarshal(raw.Value, &job); err != nil {
		return ConvertJob{}, fmt.Errorf("parse convert job: %w", err)
	}
	if job.GranulePath == "" {
		return ConvertJob{}, errors.New("parse convert job: granule_path is required")
	}
	return job, nil
}

// Result statuses published to the sink.
const (
	StatusConverted = "converted"
	StatusRejected  = "rejected"
)

// Artifact is one written output document.
type Artifact struct {
	Format string `json:"format"`
	Path   string `json:"path"`
}

// ConvertResult is the per-granule outcome published to the result sink.
type ConvertResult struct {
	GranulePath string     `json:"granule_path"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	PointCount  int        `json:"point_count"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	ProcessedAt time.Time  `json:"processed_at"`
}
