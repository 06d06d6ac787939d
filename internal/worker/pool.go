// Package worker runs batch race imports. Each job fetches the raw
// documents for one round from the timing service, parses them and
// archives the result; jobs fan out over a fixed pool of goroutines so
// a whole season can be imported in one command.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexkamer/Pit-Wall-Pro/internal/channel"
	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
	"github.com/alexkamer/Pit-Wall-Pro/internal/parser"
)

// DefaultWorkers bounds concurrent fetches against the timing service.
const DefaultWorkers = 4

// Fetcher retrieves the raw documents for one round.
type Fetcher interface {
	FetchDocuments(year, round int) (database.RawDocuments, error)
}

// Job identifies one round to import.
type Job struct {
	Info database.RaceInfo
}

// Result reports the outcome of one job.
type Result struct {
	Job    Job
	RaceID uint
	Err    error
}

// Pool imports races concurrently.
type Pool struct {
	fetcher Fetcher
	parser  *parser.Parser
	db      *database.Manager
	logger  *slog.Logger
	workers int
}

// NewPool creates an import pool. workers <= 0 uses DefaultWorkers.
func NewPool(fetcher Fetcher, p *parser.Parser, db *database.Manager, logger *slog.Logger, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{
		fetcher: fetcher,
		parser:  p,
		db:      db,
		logger:  logger,
		workers: workers,
	}
}

// Run imports all jobs and returns one result per job, in completion
// order. It blocks until every job finished or the context is canceled;
// canceled jobs report ctx.Err().
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	jobCh := channel.New[Job](len(jobs))
	for _, job := range jobs {
		jobCh.Send(job)
	}
	jobCh.Close()

	results := make([]Result, 0, len(jobs))
	resultCh := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh.Receive() {
				if err := ctx.Err(); err != nil {
					resultCh <- Result{Job: job, Err: err}
					continue
				}
				raceID, err := p.importOne(job)
				resultCh <- Result{Job: job, RaceID: raceID, Err: err}
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	for r := range resultCh {
		if r.Err != nil {
			p.logger.Error("Race import failed",
				"race", r.Job.Info.Name, "round", r.Job.Info.Round, "error", r.Err)
		} else {
			p.logger.Info("Race imported",
				"race", r.Job.Info.Name, "round", r.Job.Info.Round, "raceId", r.RaceID)
		}
		results = append(results, r)
	}
	return results
}

func (p *Pool) importOne(job Job) (uint, error) {
	docs, err := p.fetcher.FetchDocuments(job.Info.SeasonYear, job.Info.Round)
	if err != nil {
		return 0, fmt.Errorf("fetch round %d: %w", job.Info.Round, err)
	}
	return p.Import(job.Info, docs)
}

// Import parses one set of raw documents and archives the race.
func (p *Pool) Import(info database.RaceInfo, docs database.RawDocuments) (uint, error) {
	ds, err := p.parser.ParseDataset(docs.LapData, docs.Spatial, docs.RaceControl, docs.TrackStatus)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", info.Name, err)
	}
	raceID, err := p.db.SaveRace(info, ds, docs)
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", info.Name, err)
	}
	return raceID, nil
}
