package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
	"github.com/alexkamer/Pit-Wall-Pro/internal/parser"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   int
	failing map[int]bool
}

func (f *stubFetcher) FetchDocuments(year, round int) (database.RawDocuments, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failing[round] {
		return database.RawDocuments{}, fmt.Errorf("round %d unavailable", round)
	}
	spatial := fmt.Sprintf(`{
		"trackOutline": [{"x": 0, "y": 0}, {"x": 50, "y": 0}],
		"drivers": [{
			"driverId": "VER",
			"positions": [{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 2, "y": 0}, {"x": 3, "y": 0}],
			"laps": [{"lapNumber": 1, "startIndex": 0, "classificationPosition": 1, "cumulativeTime": 0, "lapDuration": 90}]
		}]
	}`)
	return database.RawDocuments{
		LapData: []byte(`{"laps": [{"driverId": "VER", "lapNumber": 1, "compound": "soft"}]}`),
		Spatial: []byte(spatial),
	}, nil
}

func newTestPool(t *testing.T, fetcher Fetcher) *Pool {
	t.Helper()
	dbm := database.NewManager(zerolog.Nop())
	db, err := dbm.GetSqliteDB(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	dbm.DB = db
	dbm.IsValid = true
	require.NoError(t, dbm.Setup())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPool(fetcher, parser.New(logger), dbm, logger, 2)
}

func seasonJobs(rounds ...int) []Job {
	jobs := make([]Job, 0, len(rounds))
	for _, round := range rounds {
		jobs = append(jobs, Job{Info: database.RaceInfo{
			Name:       fmt.Sprintf("Round %d Grand Prix", round),
			SeasonYear: 2024,
			Round:      round,
		}})
	}
	return jobs
}

func TestPoolImportsAllJobs(t *testing.T) {
	fetcher := &stubFetcher{}
	p := newTestPool(t, fetcher)

	results := p.Run(context.Background(), seasonJobs(1, 2, 3))
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.NotZero(t, r.RaceID)
	}
	assert.Equal(t, 3, fetcher.calls)

	races, err := p.db.ListRaces()
	require.NoError(t, err)
	assert.Len(t, races, 3)
}

func TestPoolReportsPerJobFailures(t *testing.T) {
	fetcher := &stubFetcher{failing: map[int]bool{2: true}}
	p := newTestPool(t, fetcher)

	results := p.Run(context.Background(), seasonJobs(1, 2, 3))
	require.Len(t, results, 3)

	var failed, succeeded int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, 2, r.Job.Info.Round)
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, succeeded)
}

func TestPoolCanceledContext(t *testing.T) {
	fetcher := &stubFetcher{}
	p := newTestPool(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.Run(ctx, seasonJobs(1, 2))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestPoolEmptyJobs(t *testing.T) {
	p := newTestPool(t, &stubFetcher{})
	assert.Empty(t, p.Run(context.Background(), nil))
}

func TestImportRejectsMalformedSpatial(t *testing.T) {
	p := newTestPool(t, &stubFetcher{})

	_, err := p.Import(database.RaceInfo{Name: "Broken Grand Prix"}, database.RawDocuments{
		LapData: []byte(`{"laps": []}`),
		Spatial: []byte(`not json`),
	})
	require.Error(t, err)
}
