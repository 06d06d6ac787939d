package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

func TestCircuitLocation3857(t *testing.T) {
	// Silverstone
	p := CircuitLocation3857(-1.0169, 52.0786)
	xy, ok := p.XY()
	require.True(t, ok)
	assert.InDelta(t, -113200, xy.X, 500)
	assert.InDelta(t, 6826000, xy.Y, 5000)
}

func TestOutlineRoundTrip(t *testing.T) {
	outline := []telemetry.TrackPoint{
		{X: 0, Y: 0},
		{X: 10, Y: 5},
		{X: 20, Y: -3},
	}

	ls, err := OutlineToLineString(outline)
	require.NoError(t, err)

	back := OutlineFromLineString(ls)
	assert.Equal(t, outline, back)
}

func TestOutlineTooShort(t *testing.T) {
	_, err := OutlineToLineString([]telemetry.TrackPoint{{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestDownsample(t *testing.T) {
	points := make([]telemetry.TrackPoint, 25)
	for i := range points {
		points[i] = telemetry.TrackPoint{X: float64(i)}
	}

	out := Downsample(points, 10)
	require.Len(t, out, 4)
	assert.Equal(t, 0.0, out[0].X)
	assert.Equal(t, 10.0, out[1].X)
	assert.Equal(t, 20.0, out[2].X)
	// last point retained even though 24 is not a multiple of 10
	assert.Equal(t, 24.0, out[3].X)
}

func TestDownsampleNoOp(t *testing.T) {
	points := []telemetry.TrackPoint{{X: 1}, {X: 2}}
	assert.Equal(t, points, Downsample(points, 10))
	assert.Equal(t, points, Downsample(points, 1))
}
