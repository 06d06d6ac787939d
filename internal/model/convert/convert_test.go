package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

func sampleDataset() *replay.Dataset {
	positions := make([]telemetry.TrackPoint, 100)
	for i := range positions {
		positions[i] = telemetry.TrackPoint{X: float64(i), Y: float64(-i)}
	}

	return &replay.Dataset{
		Telemetry: &telemetry.RaceTelemetry{
			TrackOutline: []telemetry.TrackPoint{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}},
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
		Compounds: telemetry.CompoundSet{},
	}
}

func TestRaceFromDataset(t *testing.T) {
	ds := sampleDataset()

	race, err := RaceFromDataset("Monaco Grand Prix", 2024, 8, time.Date(2024, 5, 26, 13, 0, 0, 0, time.UTC), ds)
	require.NoError(t, err)

	assert.Equal(t, 2024, race.SeasonYear)
	assert.Equal(t, 8, race.Round)
	assert.Equal(t, 178.0, race.TotalDuration)
	assert.Equal(t, 2, race.TotalLaps)
	assert.Equal(t, 3, race.TrackOutline.Coordinates().Length())
	assert.Equal(t, 0, race.PitLaneOutline.Coordinates().Length())
}

func TestRaceFromDataset_NoTelemetry(t *testing.T) {
	_, err := RaceFromDataset("x", 2024, 1, time.Now(), &replay.Dataset{})
	require.Error(t, err)
}

func TestEntryRoundTrip(t *testing.T) {
	ds := sampleDataset()
	track := &ds.Telemetry.Drivers[0]
	compounds := map[int]telemetry.Compound{1: "MEDIUM", 2: "HARD"}

	entry, err := EntryFromTrack(7, 3, track, compounds)
	require.NoError(t, err)
	assert.Equal(t, uint(7), entry.RaceID)

	back, comp, err := TrackFromEntry(entry, "VER", "#3671C6")
	require.NoError(t, err)
	assert.Equal(t, track.Laps, back.Laps)
	assert.Equal(t, track.Positions, back.Positions)
	assert.Equal(t, compounds, comp)
}

func TestEntryFromTrack_NilCompounds(t *testing.T) {
	ds := sampleDataset()
	entry, err := EntryFromTrack(1, 1, &ds.Telemetry.Drivers[1], nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(entry.Compounds))
}

func TestResultsFromDataset(t *testing.T) {
	ds := sampleDataset()
	ids := map[string]uint{"VER": 10, "PER": 11}

	results := ResultsFromDataset(4, ds, ids)
	require.Len(t, results, 2)

	assert.Equal(t, uint(10), results[0].DriverID)
	assert.Equal(t, 1, results[0].ClassificationPosition)
	assert.Equal(t, 2, results[0].LapsCompleted)
	assert.Equal(t, "Finished", results[0].Status)
	assert.Equal(t, 178.0, results[0].TotalTime.Float64)

	// PER's data ends at 95s, before the 178s race end
	assert.Equal(t, "Retired", results[1].Status)
	assert.Equal(t, 95.0, results[1].TotalTime.Float64)
}

func TestOutlinesFromRace(t *testing.T) {
	ds := sampleDataset()
	race, err := RaceFromDataset("x", 2024, 1, time.Now(), ds)
	require.NoError(t, err)

	track, pit := OutlinesFromRace(race)
	assert.Equal(t, ds.Telemetry.TrackOutline, track)
	assert.Nil(t, pit)
}
