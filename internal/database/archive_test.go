package database

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/parser"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.Nop())
	db, err := m.GetSqliteDB(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	m.DB = db
	m.IsValid = true
	m.ShouldSaveLocal = true
	require.NoError(t, m.Setup())
	return m
}

func archiveDataset() *replay.Dataset {
	positions := make([]telemetry.TrackPoint, 100)
	for i := range positions {
		positions[i] = telemetry.TrackPoint{X: float64(i), Y: float64(2 * i)}
	}

	compounds := telemetry.CompoundSet{}
	compounds.Set("VER", 1, "MEDIUM")
	compounds.Set("VER", 2, "MEDIUM")
	compounds.Set("PER", 1, "HARD")

	return &replay.Dataset{
		Telemetry: &telemetry.RaceTelemetry{
			TrackOutline: []telemetry.TrackPoint{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 50}},
			Drivers: []telemetry.DriverTrack{
				{
					DriverID:  "VER",
					ColorHint: "#3671C6",
					Positions: positions,
					Laps: []telemetry.LapBoundary{
						{LapNumber: 1, StartIndex: 0, ClassificationPosition: 1, CumulativeTime: 0, LapDuration: 90},
						{LapNumber: 2, StartIndex: 50, ClassificationPosition: 1, CumulativeTime: 90, LapDuration: 88},
					},
				},
				{
					DriverID:  "PER",
					ColorHint: "#3671C6",
					Positions: positions[:50],
					Laps: []telemetry.LapBoundary{
						{LapNumber: 1, StartIndex: 0, ClassificationPosition: 2, CumulativeTime: 0, LapDuration: 95},
					},
				},
			},
		},
		Compounds: compounds,
		RaceControl: []telemetry.RaceControlEvent{
			{Time: 10, LapNumber: 1, Category: "Flag", Message: "YELLOW IN SECTOR 2", FlagHint: "YELLOW"},
		},
	}
}

func archiveInfo() RaceInfo {
	return RaceInfo{
		Name:        "Monaco Grand Prix",
		SeasonYear:  2024,
		Round:       8,
		StartTime:   time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC),
		CircuitName: "Circuit de Monaco",
		Country:     "Monaco",
		Locality:    "Monte Carlo",
		Latitude:    43.7347,
		Longitude:   7.4206,
	}
}

func archiveRaw() RawDocuments {
	return RawDocuments{
		LapData:     []byte(`{"laps": []}`),
		RaceControl: []byte(`{"messages": [{"time": 10, "lapNumber": 1, "category": "Flag", "message": "YELLOW IN SECTOR 2", "flagHint": "YELLOW"}]}`),
	}
}

func TestSaveAndLoadRace(t *testing.T) {
	m := newTestManager(t)
	ds := archiveDataset()

	raceID, err := m.SaveRace(archiveInfo(), ds, archiveRaw())
	require.NoError(t, err)
	require.NotZero(t, raceID)

	p := parser.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	loaded, err := m.LoadRace(raceID, p)
	require.NoError(t, err)

	require.Len(t, loaded.Telemetry.Drivers, 2)
	assert.Equal(t, ds.Telemetry.TotalDuration(), loaded.Telemetry.TotalDuration())
	assert.Equal(t, ds.Telemetry.TrackOutline, loaded.Telemetry.TrackOutline)

	ver := loaded.Telemetry.Driver("VER")
	require.NotNil(t, ver)
	assert.Len(t, ver.Positions, 100)
	assert.Len(t, ver.Laps, 2)

	c, ok := loaded.Compounds.Lookup("PER", 1)
	require.True(t, ok)
	assert.Equal(t, telemetry.Compound("HARD"), c)

	require.Len(t, loaded.RaceControl, 1)
	assert.Equal(t, "YELLOW IN SECTOR 2", loaded.RaceControl[0].Message)
	assert.Equal(t, 1, loaded.RaceControl[0].LapNumber)
}

func TestSaveRaceWritesResults(t *testing.T) {
	m := newTestManager(t)

	raceID, err := m.SaveRace(archiveInfo(), archiveDataset(), archiveRaw())
	require.NoError(t, err)

	var count int64
	require.NoError(t, m.DB.Table("race_results").Where("race_id = ?", raceID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSaveRaceDedupesDrivers(t *testing.T) {
	m := newTestManager(t)

	_, err := m.SaveRace(archiveInfo(), archiveDataset(), archiveRaw())
	require.NoError(t, err)

	info := archiveInfo()
	info.Name = "Monaco Grand Prix Sprint"
	_, err = m.SaveRace(info, archiveDataset(), archiveRaw())
	require.NoError(t, err)

	var drivers int64
	require.NoError(t, m.DB.Table("drivers").Count(&drivers).Error)
	assert.EqualValues(t, 2, drivers)

	var circuits int64
	require.NoError(t, m.DB.Table("circuits").Count(&circuits).Error)
	assert.EqualValues(t, 1, circuits)
}

func TestListRaces(t *testing.T) {
	m := newTestManager(t)

	first := archiveInfo()
	first.StartTime = time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC)
	_, err := m.SaveRace(first, archiveDataset(), archiveRaw())
	require.NoError(t, err)

	second := archiveInfo()
	second.Name = "Canadian Grand Prix"
	second.CircuitName = "Circuit Gilles Villeneuve"
	second.StartTime = time.Date(2024, 6, 9, 18, 0, 0, 0, time.UTC)
	_, err = m.SaveRace(second, archiveDataset(), archiveRaw())
	require.NoError(t, err)

	races, err := m.ListRaces()
	require.NoError(t, err)
	require.Len(t, races, 2)
	assert.Equal(t, "Canadian Grand Prix", races[0].Name)
	assert.Equal(t, "Circuit Gilles Villeneuve", races[0].Circuit.Name)
}

func TestLoadRaceMissing(t *testing.T) {
	m := newTestManager(t)
	p := parser.New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := m.LoadRace(999, p)
	require.Error(t, err)
}
