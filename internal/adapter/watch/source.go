// Package watch turns a local directory into a conversion job source.
// Every granule file that appears in the directory becomes one job, so
// the service can run broker-less against a shared filesystem drop box.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

const queueDepth = 256

// Source watches a directory for granule files and yields them as jobs.
// It implements pipeline.BatchExtractor. Jobs carry a nil Commit because
// the files themselves are the durable record.
type Source struct {
	dir     string
	watcher *fsnotify.Watcher
	jobs    chan domain.RawJob
	flush   time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewSource begins watching dir. Files already present are enqueued
// first so granules dropped while the service was down are not lost.
// The clock drives job timestamps and the flush timer.
func NewSource(dir string, flush time.Duration, clock clockwork.Clock, logger *slog.Logger) (*Source, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create directory watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	s := &Source{
		dir:     dir,
		watcher: watcher,
		jobs:    make(chan domain.RawJob, queueDepth),
		flush:   flush,
		clock:   clock,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// ExtractBatch collects up to batchSize jobs, returning a partial batch
// once the flush interval elapses with no new files.
func (s *Source) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawJob, error) {
	jobs := make([]domain.RawJob, 0, batchSize)
	timer := s.clock.NewTimer(s.flush)
	defer timer.Stop()
	for len(jobs) < batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.Chan():
			return jobs, nil
		case job, ok := <-s.jobs:
			if !ok {
				return jobs, nil
			}
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

func (s *Source) run() {
	// The watcher is registered before this scan, so a file landing
	// during the scan may be enqueued twice. Conversions are
	// idempotent per path, rewriting the same artifacts.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("scan watch directory", "dir", s.dir, "error", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !s.enqueue(filepath.Join(s.dir, entry.Name())) {
			return
		}
	}

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			// An atomic move into the directory surfaces as Create.
			if !ev.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
				continue
			}
			if !s.enqueue(ev.Name) {
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("directory watcher error", "dir", s.dir, "error", err)
		}
	}
}

// enqueue converts a file path into a job. It reports false once the
// source is closed.
func (s *Source) enqueue(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	value, err := json.Marshal(domain.ConvertJob{GranulePath: path})
	if err != nil {
		s.logger.Error("encode watch job", "path", path, "error", err)
		return true
	}
	job := domain.RawJob{
		Key:       []byte(path),
		Value:     value,
		Headers:   map[string]string{"source": "watch"},
		Timestamp: s.clock.Now(),
	}
	select {
	case s.jobs <- job:
		return true
	case <-s.done:
		return false
	}
}
