package replay

import (
	"testing"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackX is the three-lap reference track used across the engine tests:
// 150 samples, laps starting at indices 0, 50 and 99, total duration 265s.
func trackX() *telemetry.DriverTrack {
	positions := make([]telemetry.TrackPoint, 150)
	for i := range positions {
		positions[i] = telemetry.TrackPoint{X: float64(i), Y: float64(2 * i)}
	}
	return &telemetry.DriverTrack{
		DriverID:  "XXX",
		ColorHint: "#3671C6",
		Positions: positions,
		Laps: []telemetry.LapBoundary{
			{LapNumber: 1, StartIndex: 0, ClassificationPosition: 1, CumulativeTime: 0, LapDuration: 90},
			{LapNumber: 2, StartIndex: 50, ClassificationPosition: 1, CumulativeTime: 90, LapDuration: 88},
			{LapNumber: 3, StartIndex: 99, ClassificationPosition: 1, CumulativeTime: 178, LapDuration: 87},
		},
	}
}

func TestLocate(t *testing.T) {
	track := trackX()

	tests := []struct {
		name       string
		t          float64
		wantLap    int
		wantNext   bool
		wantFrozen bool
	}{
		{name: "start of race", t: 0, wantLap: 1, wantNext: true},
		{name: "mid lap 1", t: 45, wantLap: 1, wantNext: true},
		{name: "exactly at lap 2 boundary", t: 90, wantLap: 2, wantNext: true},
		{name: "mid lap 2", t: 100, wantLap: 2, wantNext: true},
		{name: "final lap", t: 200, wantLap: 3, wantNext: false},
		{name: "just before end", t: 264.999, wantLap: 3, wantNext: false},
		{name: "exactly at end freezes", t: 265, wantLap: 3, wantFrozen: true},
		{name: "past end stays frozen", t: 10_000, wantLap: 3, wantFrozen: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := Locate(track, tt.t)
			require.True(t, ok)
			assert.Equal(t, tt.wantLap, loc.Boundary.LapNumber)
			assert.Equal(t, tt.wantFrozen, loc.Frozen)
			if tt.wantNext {
				require.NotNil(t, loc.Next)
				assert.Equal(t, tt.wantLap+1, loc.Next.LapNumber)
			} else if !tt.wantFrozen {
				assert.Nil(t, loc.Next)
			}
		})
	}
}

func TestLocateBeforeFirstBoundary(t *testing.T) {
	track := trackX()
	// Shift the whole record 30s into the race, as for a driver whose
	// first timing sample arrives late.
	for i := range track.Laps {
		track.Laps[i].CumulativeTime += 30
	}

	loc, ok := Locate(track, 10)
	require.True(t, ok)
	assert.Equal(t, 1, loc.Boundary.LapNumber)
	assert.False(t, loc.Frozen)
	assert.Equal(t, 0.0, loc.Progress(10))
}

func TestLocateNoLaps(t *testing.T) {
	_, ok := Locate(&telemetry.DriverTrack{DriverID: "YYY"}, 5)
	assert.False(t, ok)
	_, ok = Locate(nil, 5)
	assert.False(t, ok)
}

func TestLapProgress(t *testing.T) {
	track := trackX()

	loc, ok := Locate(track, 45)
	require.True(t, ok)
	assert.InDelta(t, 0.5, loc.Progress(45), 1e-12)

	loc, ok = Locate(track, 90)
	require.True(t, ok)
	assert.Equal(t, 0.0, loc.Progress(90))

	loc, ok = Locate(track, 265)
	require.True(t, ok)
	assert.Equal(t, 1.0, loc.Progress(265))
}
