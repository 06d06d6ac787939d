package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

func TestParseRounds(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{spec: "1", want: []int{1}},
		{spec: "1,3,5", want: []int{1, 3, 5}},
		{spec: "5-8", want: []int{5, 6, 7, 8}},
		{spec: "1, 3-5 ,24", want: []int{1, 3, 4, 5, 24}},
		{spec: "", want: nil},
		{spec: "abc", wantErr: true},
		{spec: "9-3", wantErr: true},
		{spec: "1,x-2", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseRounds(tt.spec)
		if tt.wantErr {
			assert.Error(t, err, "spec %q", tt.spec)
			continue
		}
		require.NoError(t, err, "spec %q", tt.spec)
		assert.Equal(t, tt.want, got, "spec %q", tt.spec)
	}
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "monaco_grand_prix_2024.json.gz", exportFileName("Monaco Grand Prix", 2024))
	assert.Equal(t, "sao_paulo_grand_prix_2023.json.gz", exportFileName(" Sao Paulo Grand Prix ", 2023))
}

func TestSnapshotTimeline(t *testing.T) {
	positions := make([]telemetry.TrackPoint, 10)
	for i := range positions {
		positions[i] = telemetry.TrackPoint{X: float64(i), Y: 0}
	}
	ds := &replay.Dataset{
		Telemetry: &telemetry.RaceTelemetry{
			Drivers: []telemetry.DriverTrack{
				{
					DriverID:  "VER",
					Positions: positions,
					Laps: []telemetry.LapBoundary{
						{LapNumber: 1, StartIndex: 0, ClassificationPosition: 1, LapDuration: 25},
					},
				},
			},
		},
	}

	snaps := snapshotTimeline(ds, 10)
	require.Len(t, snaps, 4) // t=0, 10, 20 and the final state at 25
	assert.InDelta(t, 0.0, snaps[0].Time, 1e-9)
	assert.InDelta(t, 25.0, snaps[len(snaps)-1].Time, 1e-9)
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	lapPath := filepath.Join(dir, "laps.json")
	spatialPath := filepath.Join(dir, "spatial.json")
	require.NoError(t, os.WriteFile(lapPath, []byte(`{"laps": []}`), 0o644))
	require.NoError(t, os.WriteFile(spatialPath, []byte(`{"drivers": []}`), 0o644))

	docs, err := readDocuments(lapPath, spatialPath, "", "")
	require.NoError(t, err)
	assert.Equal(t, `{"laps": []}`, string(docs.LapData))
	assert.Nil(t, docs.RaceControl)
	assert.Nil(t, docs.TrackStatus)

	_, err = readDocuments(filepath.Join(dir, "missing.json"), spatialPath, "", "")
	assert.Error(t, err)
}
