package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestSource(t *testing.T, dir string, flush time.Duration, clock clockwork.Clock) *Source {
	t.Helper()
	s, err := NewSource(dir, flush, clock, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func jobPaths(t *testing.T, jobs []domain.RawJob) []string {
	t.Helper()
	paths := make([]string, len(jobs))
	for i, raw := range jobs {
		var job domain.ConvertJob
		require.NoError(t, json.Unmarshal(raw.Value, &job))
		paths[i] = job.GranulePath
	}
	return paths
}

func TestNewSourceMissingDir(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "absent"), time.Second, clockwork.NewRealClock(), discardLogger())
	require.Error(t, err)
}

func TestExtractBatchExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("{}"), 0o644))

	s := newTestSource(t, dir, 100*time.Millisecond, clockwork.NewRealClock())

	jobs, err := s.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.ElementsMatch(t,
		[]string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")},
		jobPaths(t, jobs))
	assert.Nil(t, jobs[0].Commit)
	assert.Equal(t, "watch", jobs[0].Headers["source"])
}

func TestExtractBatchNewFile(t *testing.T) {
	dir := t.TempDir()
	s := newTestSource(t, dir, 3*time.Second, clockwork.NewRealClock())

	path := filepath.Join(dir, "granule.json")
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte("{}"), 0o644)
	}()

	jobs, err := s.ExtractBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{path}, jobPaths(t, jobs))
}

func TestExtractBatchFlushTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestSource(t, t.TempDir(), time.Minute, clock)

	type extracted struct {
		jobs []domain.RawJob
		err  error
	}
	done := make(chan extracted, 1)
	go func() {
		jobs, err := s.ExtractBatch(context.Background(), 5)
		done <- extracted{jobs, err}
	}()

	// Wait for the flush timer to be armed, then fire it.
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Minute)

	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.jobs)
}

func TestExtractBatchStopsAtBatchSize(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	s := newTestSource(t, dir, time.Second, clockwork.NewRealClock())

	jobs, err := s.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	rest, err := s.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestExtractBatchContextCanceled(t *testing.T) {
	s := newTestSource(t, t.TempDir(), time.Minute, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.ExtractBatch(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newTestSource(t, t.TempDir(), time.Second, clockwork.NewRealClock())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
