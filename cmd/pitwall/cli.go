package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alexkamer/Pit-Wall-Pro/internal/api"
	"github.com/alexkamer/Pit-Wall-Pro/internal/config"
	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
	"github.com/alexkamer/Pit-Wall-Pro/internal/geo"
	"github.com/alexkamer/Pit-Wall-Pro/internal/monitor"
	"github.com/alexkamer/Pit-Wall-Pro/internal/parser"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/server"
	"github.com/alexkamer/Pit-Wall-Pro/internal/session"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
	"github.com/alexkamer/Pit-Wall-Pro/internal/worker"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory containing the config file")
	fs.Parse(args)

	if err := setup(*configDir); err != nil {
		return err
	}

	serverCfg := config.GetServerConfig()
	sessions, err := session.NewManager(Logger, InfluxManager, serverCfg.FrameInterval)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	defer sessions.Shutdown()

	mon := monitor.NewService(DBManager, sessions, Logger, config.GetString("dataDir"), monitor.DefaultInterval)
	mon.Start()
	defer mon.Stop()

	srv := server.New(Logger, DBManager, sessions, parser.New(Logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx, serverCfg.Addr)
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory containing the config file")
	year := fs.Int("year", time.Now().Year(), "season year")
	rounds := fs.String("rounds", "", "rounds to import, e.g. 1,3,5-9")
	source := fs.String("source", "", "timing service base URL")
	apiKey := fs.String("api-key", "", "timing service API key")
	workers := fs.Int("workers", worker.DefaultWorkers, "concurrent imports")

	name := fs.String("name", "", "race name (local file import)")
	round := fs.Int("round", 0, "round number (local file import)")
	circuit := fs.String("circuit", "", "circuit name (local file import)")
	country := fs.String("country", "", "circuit country (local file import)")
	lapData := fs.String("lap-data", "", "path to lap data JSON")
	spatial := fs.String("spatial", "", "path to spatial telemetry JSON")
	raceControl := fs.String("race-control", "", "path to race control JSON")
	trackStatus := fs.String("track-status", "", "path to track status JSON")
	fs.Parse(args)

	if err := setup(*configDir); err != nil {
		return err
	}
	if !DBManager.IsValid {
		return fmt.Errorf("no database available for import")
	}

	p := parser.New(Logger)

	// Local files: one race, no fetcher involved.
	if *lapData != "" {
		if *spatial == "" {
			return fmt.Errorf("-spatial is required with -lap-data")
		}
		docs, err := readDocuments(*lapData, *spatial, *raceControl, *trackStatus)
		if err != nil {
			return err
		}
		pool := worker.NewPool(nil, p, DBManager, Logger, 1)
		raceID, err := pool.Import(database.RaceInfo{
			Name:        *name,
			SeasonYear:  *year,
			Round:       *round,
			StartTime:   time.Now(),
			CircuitName: *circuit,
			Country:     *country,
		}, docs)
		if err != nil {
			return err
		}
		Logger.Info("Race imported from local files", "raceId", raceID, "name", *name)
		return nil
	}

	if *source == "" {
		return fmt.Errorf("either -source or -lap-data is required")
	}
	roundList, err := parseRounds(*rounds)
	if err != nil {
		return err
	}
	if len(roundList) == 0 {
		return fmt.Errorf("-rounds is required with -source")
	}

	client := api.New(*source, *apiKey)
	if err := client.Healthcheck(); err != nil {
		return fmt.Errorf("timing service unreachable: %w", err)
	}

	jobs := make([]worker.Job, 0, len(roundList))
	for _, r := range roundList {
		jobs = append(jobs, worker.Job{Info: database.RaceInfo{
			Name:       fmt.Sprintf("%d Round %d", *year, r),
			SeasonYear: *year,
			Round:      r,
			StartTime:  time.Now(),
		}})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(client, p, DBManager, Logger, *workers)
	var failed int
	for _, result := range pool.Run(ctx, jobs) {
		if result.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(jobs))
	}
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configDir := fs.String("config", ".", "directory containing the config file")
	raceID := fs.Uint("race", 0, "race ID to export")
	outDir := fs.String("out", ".", "output directory")
	interval := fs.Float64("interval", 10, "seconds between timeline snapshots")
	outlineStep := fs.Int("outline-step", 10, "keep every nth track outline point")
	upload := fs.Bool("upload", false, "upload the archive to the timing service")
	source := fs.String("source", "", "timing service base URL (with -upload)")
	apiKey := fs.String("api-key", "", "timing service API key (with -upload)")
	fs.Parse(args)

	if err := setup(*configDir); err != nil {
		return err
	}
	if *raceID == 0 {
		return fmt.Errorf("-race is required")
	}
	if !DBManager.IsValid {
		return fmt.Errorf("no database available for export")
	}

	race, err := DBManager.GetRace(uint(*raceID))
	if err != nil {
		return fmt.Errorf("race %d: %w", *raceID, err)
	}
	ds, err := DBManager.LoadRace(uint(*raceID), parser.New(Logger))
	if err != nil {
		return fmt.Errorf("load race %d: %w", *raceID, err)
	}

	txStart := time.Now()
	export := map[string]any{
		"name":          race.Name,
		"seasonYear":    race.SeasonYear,
		"round":         race.Round,
		"startTime":     race.StartTime,
		"circuit":       race.Circuit.Name,
		"totalDuration": ds.TotalDuration(),
		"trackOutline":  geo.Downsample(ds.Telemetry.TrackOutline, *outlineStep),
		"compounds":     ds.Compounds,
		"raceControl":   ds.RaceControl,
		"snapshots":     snapshotTimeline(ds, *interval),
	}

	outPath := filepath.Join(*outDir, exportFileName(race.Name, race.SeasonYear))
	if err := writeGzippedJSON(outPath, export); err != nil {
		return err
	}
	Logger.Info("Race exported", "path", outPath, "took", time.Since(txStart))

	if *upload {
		if *source == "" {
			return fmt.Errorf("-source is required with -upload")
		}
		client := api.New(*source, *apiKey)
		err := client.Upload(outPath, api.ExportMetadata{
			RaceName:      race.Name,
			SeasonYear:    race.SeasonYear,
			Round:         race.Round,
			TotalDuration: ds.TotalDuration(),
		})
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		Logger.Info("Race archive uploaded", "race", race.Name)
	}
	return nil
}

func readDocuments(lapData, spatial, raceControl, trackStatus string) (database.RawDocuments, error) {
	var docs database.RawDocuments
	var err error
	if docs.LapData, err = os.ReadFile(lapData); err != nil {
		return docs, err
	}
	if docs.Spatial, err = os.ReadFile(spatial); err != nil {
		return docs, err
	}
	if raceControl != "" {
		if docs.RaceControl, err = os.ReadFile(raceControl); err != nil {
			return docs, err
		}
	}
	if trackStatus != "" {
		if docs.TrackStatus, err = os.ReadFile(trackStatus); err != nil {
			return docs, err
		}
	}
	return docs, nil
}

// snapshotTimeline resolves the full race at fixed steps, ending with
// the final state exactly at total duration.
func snapshotTimeline(ds *replay.Dataset, step float64) []telemetry.RaceSnapshot {
	if step <= 0 {
		step = 10
	}
	total := ds.TotalDuration()
	snaps := make([]telemetry.RaceSnapshot, 0, int(total/step)+2)
	for t := 0.0; t < total; t += step {
		snaps = append(snaps, ds.BuildSnapshot(t))
	}
	snaps = append(snaps, ds.BuildSnapshot(total))
	return snaps
}

// parseRounds expands a round spec like "1,3,5-9" into a sorted list.
func parseRounds(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	var rounds []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid round spec %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, fmt.Errorf("invalid round spec %q", part)
			}
			for r := start; r <= end; r++ {
				rounds = append(rounds, r)
			}
			continue
		}
		r, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid round spec %q", part)
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}

func exportFileName(raceName string, seasonYear int) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raceName), " ", "_"))
	return fmt.Sprintf("%s_%d.json.gz", slug, seasonYear)
}

func writeGzippedJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	if err := json.NewEncoder(gz).Encode(v); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gz.Close()
}
