package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
	"github.com/alexkamer/Pit-Wall-Pro/pkg/streaming"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionDataset() *replay.Dataset {
	positions := make([]telemetry.TrackPoint, 100)
	for i := range positions {
		positions[i] = telemetry.TrackPoint{X: float64(i)}
	}
	return &replay.Dataset{
		Telemetry: &telemetry.RaceTelemetry{
			Drivers: []telemetry.DriverTrack{
				{
					DriverID:  "VER",
					Positions: positions,
					Laps: []telemetry.LapBoundary{
						{LapNumber: 1, StartIndex: 0, ClassificationPosition: 1, CumulativeTime: 0, LapDuration: 90},
						{LapNumber: 2, StartIndex: 50, ClassificationPosition: 1, CumulativeTime: 90, LapDuration: 88},
					},
				},
			},
		},
		Compounds: telemetry.CompoundSet{},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	ins, err := newInstruments()
	require.NoError(t, err)
	s := newSession("test01", 1, "Test Grand Prix", sessionDataset(), testLogger(), ins, nil, 0)
	t.Cleanup(s.Close)
	return s
}

// drain reads all currently buffered envelopes from a subscriber.
func drain(ch <-chan []byte) []streaming.Envelope {
	var out []streaming.Envelope
	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return out
			}
			var env streaming.Envelope
			if err := json.Unmarshal(data, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestSubscribeDeliversInitialState(t *testing.T) {
	s := newTestSession(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	envs := drain(ch)
	require.Len(t, envs, 2)
	assert.Equal(t, streaming.TypeSessionState, envs[0].Type)
	assert.Equal(t, streaming.TypeSnapshot, envs[1].Type)

	var state streaming.SessionStatePayload
	require.NoError(t, json.Unmarshal(envs[0].Payload, &state))
	assert.Equal(t, "STOPPED", state.State)
	assert.Equal(t, 0.0, state.Time)
	assert.Equal(t, 1.0, state.Speed)
	assert.Equal(t, 178.0, state.TotalDuration)
}

func TestPlayAdvancesClock(t *testing.T) {
	s := newTestSession(t)
	ch, cancel := s.Subscribe()
	defer cancel()
	drain(ch)

	s.Enqueue(Command{Op: streaming.TypePlay})
	s.Step(0.1)

	assert.InDelta(t, 0.1, s.CurrentTime(), 1e-9)

	envs := drain(ch)
	require.NotEmpty(t, envs)
	assert.Equal(t, streaming.TypeSessionState, envs[0].Type)
	assert.Equal(t, streaming.TypeSnapshot, envs[len(envs)-1].Type)

	var snap telemetry.RaceSnapshot
	require.NoError(t, json.Unmarshal(envs[len(envs)-1].Payload, &snap))
	assert.InDelta(t, 0.1, snap.Time, 1e-9)
	require.Len(t, snap.Drivers, 1)
	assert.Equal(t, "VER", snap.Drivers[0].DriverID)
}

func TestSpeedMultiplier(t *testing.T) {
	s := newTestSession(t)

	s.Enqueue(Command{Op: streaming.TypePlay})
	s.Enqueue(Command{Op: streaming.TypeSetSpeed, Value: 4})
	s.Step(1.0)

	assert.InDelta(t, 4.0, s.CurrentTime(), 1e-9)
}

func TestSeekPausesPlayback(t *testing.T) {
	s := newTestSession(t)

	s.Enqueue(Command{Op: streaming.TypePlay})
	s.Step(0.1)
	s.Enqueue(Command{Op: streaming.TypeSeek, Value: 120})
	s.Step(0.1)

	assert.Equal(t, 120.0, s.CurrentTime())
	assert.Equal(t, "STOPPED", s.StatePayload().State)

	// no further advance while paused
	s.Step(0.5)
	assert.Equal(t, 120.0, s.CurrentTime())
}

func TestSeekPastEndLandsEnded(t *testing.T) {
	s := newTestSession(t)

	s.Enqueue(Command{Op: streaming.TypeSeek, Value: 400})
	s.Step(0)

	assert.Equal(t, 178.0, s.CurrentTime())
	assert.Equal(t, "ENDED", s.StatePayload().State)
}

func TestTickClampsToEnd(t *testing.T) {
	s := newTestSession(t)
	ch, cancel := s.Subscribe()
	defer cancel()
	drain(ch)

	s.Enqueue(Command{Op: streaming.TypePlay})
	s.Enqueue(Command{Op: streaming.TypeSetSpeed, Value: 1000})
	s.Step(1.0)

	assert.Equal(t, 178.0, s.CurrentTime())
	assert.Equal(t, "ENDED", s.StatePayload().State)

	envs := drain(ch)
	var sawEnded bool
	for _, env := range envs {
		if env.Type != streaming.TypeSessionState {
			continue
		}
		var state streaming.SessionStatePayload
		require.NoError(t, json.Unmarshal(env.Payload, &state))
		if state.State == "ENDED" {
			sawEnded = true
		}
	}
	assert.True(t, sawEnded, "viewers must learn the session ended")
}

func TestInvalidSpeedBroadcastsError(t *testing.T) {
	s := newTestSession(t)
	ch, cancel := s.Subscribe()
	defer cancel()
	drain(ch)

	s.Enqueue(Command{Op: streaming.TypeSetSpeed, Value: -2})
	s.Step(0)

	envs := drain(ch)
	var sawError bool
	for _, env := range envs {
		if env.Type == streaming.TypeError {
			sawError = true
		}
	}
	assert.True(t, sawError)
	assert.Equal(t, 1.0, s.StatePayload().Speed)
}

func TestIdleStepBroadcastsNothing(t *testing.T) {
	s := newTestSession(t)
	ch, cancel := s.Subscribe()
	defer cancel()
	drain(ch)

	s.Step(0.1)
	assert.Empty(t, drain(ch))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := newTestSession(t)
	ch, cancel := s.Subscribe()
	drain(ch)
	cancel()

	assert.Equal(t, 0, s.SubscriberCount())

	s.Enqueue(Command{Op: streaming.TypePlay})
	s.Step(0.1)

	_, open := <-ch
	assert.False(t, open, "channel must be closed after unsubscribe")
}

func TestStateReadsDuringPlayback(t *testing.T) {
	ins, err := newInstruments()
	require.NoError(t, err)
	s := newSession("race01", 1, "Test Grand Prix", sessionDataset(), testLogger(), ins, nil, time.Millisecond)
	t.Cleanup(s.Close)
	go s.Run()

	s.Enqueue(Command{Op: streaming.TypePlay})

	// Hammer the handler-facing readers from several goroutines while
	// the frame loop owns the clock.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(50 * time.Millisecond)
			for time.Now().Before(deadline) {
				state := s.StatePayload()
				assert.Equal(t, "race01", state.SessionID)
				_ = s.CurrentTime()
				ch, cancel := s.Subscribe()
				drain(ch)
				cancel()
			}
		}()
	}
	wg.Wait()

	assert.Greater(t, s.CurrentTime(), 0.0)
	assert.Equal(t, "RUNNING", s.StatePayload().State)
}

func TestSlowSubscriberDropsFrames(t *testing.T) {
	s := newTestSession(t)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Enqueue(Command{Op: streaming.TypePlay})
	for i := 0; i < subscriberBuffer*3; i++ {
		s.Step(0.01)
	}

	// buffer stays bounded; no deadlock, and the session kept running
	assert.LessOrEqual(t, len(ch), subscriberBuffer)
	assert.Greater(t, s.CurrentTime(), 0.0)
}
