package influx

import (
	"context"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/config"
)

func TestConnectDisabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.Connect(config.InfluxConfig{Enabled: false})
	require.Error(t, err)
	assert.False(t, m.IsValid)
}

func TestFramePoint(t *testing.T) {
	at := time.Date(2024, 5, 26, 13, 30, 0, 0, time.UTC)
	p := FramePoint("Monaco Grand Prix", "abc123", 2500*time.Microsecond, 3, at)

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, "frame_build")
	assert.Contains(t, line, "race=Monaco\\ Grand\\ Prix")
	assert.Contains(t, line, "session=abc123")
	assert.Contains(t, line, "build_ms=2.5")
	assert.Contains(t, line, "subscribers=3i")
}

func TestSessionPoint(t *testing.T) {
	p := SessionPoint("Monaco Grand Prix", "abc123", "created", time.Now())
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, "session_lifecycle")
	assert.Contains(t, line, `event="created"`)
}

func TestWritePointNoBackend(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.WritePoint(context.Background(), BucketReplayPerformance,
		FramePoint("x", "y", time.Millisecond, 0, time.Now()))
	require.Error(t, err)
}
