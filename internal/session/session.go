// Package session runs live replay sessions. Each session owns one
// playback clock that only the frame-loop goroutine touches; control
// commands from any number of viewers are queued and applied at the
// top of the next frame. Viewers and HTTP handlers never read the
// clock directly, they read the cached state and snapshot the loop
// publishes after each frame.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/alexkamer/Pit-Wall-Pro/internal/influx"
	"github.com/alexkamer/Pit-Wall-Pro/internal/queue"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/pkg/streaming"
)

// DefaultFrameInterval paces the frame loop when no interval is
// configured.
const DefaultFrameInterval = 100 * time.Millisecond

// Command is one queued control message.
type Command struct {
	Op    string
	Value float64
}

// subscriberBuffer is the per-viewer frame buffer; slow viewers drop
// frames rather than stalling the loop.
const subscriberBuffer = 16

type subscriber struct {
	ch chan []byte
}

// Session is one independent playback of a race dataset.
type Session struct {
	ID       string
	RaceID   uint
	RaceName string

	dataset  *replay.Dataset
	clock    *replay.Clock
	commands *queue.Queue[Command]

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}

	// stateMu guards the published copies of the clock state and the
	// last broadcast frame; the clock itself belongs to the frame loop.
	stateMu   sync.RWMutex
	lastState streaming.SessionStatePayload
	lastFrame []byte

	logger        *slog.Logger
	metrics       *instruments
	influxMgr     *influx.Manager
	frameInterval time.Duration

	lastBuildUs atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(id string, raceID uint, raceName string, ds *replay.Dataset, logger *slog.Logger, m *instruments, influxMgr *influx.Manager, frameInterval time.Duration) *Session {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	s := &Session{
		ID:            id,
		RaceID:        raceID,
		RaceName:      raceName,
		dataset:       ds,
		clock:         ds.NewClock(),
		commands:      queue.New[Command](),
		subscribers:   make(map[*subscriber]struct{}),
		logger:        logger.With("session", id, "race", raceName),
		metrics:       m,
		influxMgr:     influxMgr,
		frameInterval: frameInterval,
		closed:        make(chan struct{}),
	}
	s.lastState = s.currentState()
	if data, err := streaming.Marshal(streaming.TypeSnapshot, ds.BuildSnapshot(0)); err == nil {
		s.lastFrame = data
	}
	return s
}

// Enqueue queues a control command for the next frame.
func (s *Session) Enqueue(cmd Command) {
	s.commands.Push(cmd)
}

// Subscribe attaches a viewer. The returned channel carries marshaled
// envelopes; the cancel func detaches the viewer. The current session
// state and a snapshot at the current cursor are delivered immediately.
func (s *Session) Subscribe() (<-chan []byte, func()) {
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	n := len(s.subscribers)
	s.mu.Unlock()
	s.logger.Debug("Viewer attached", "subscribers", n)

	s.stateMu.RLock()
	state := s.lastState
	frame := s.lastFrame
	s.stateMu.RUnlock()
	if data, err := streaming.Marshal(streaming.TypeSessionState, state); err == nil {
		sub.ch <- data
	}
	if frame != nil {
		sub.ch <- frame
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[sub]; ok {
			delete(s.subscribers, sub)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// SubscriberCount returns the number of attached viewers.
func (s *Session) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// StatePayload reports the playback state as of the last completed
// frame. Safe to call from any goroutine.
func (s *Session) StatePayload() streaming.SessionStatePayload {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastState
}

// CurrentTime returns the playback cursor as of the last completed
// frame.
func (s *Session) CurrentTime() float64 {
	return s.StatePayload().Time
}

// currentState reads the clock directly; frame loop only.
func (s *Session) currentState() streaming.SessionStatePayload {
	return streaming.SessionStatePayload{
		SessionID:     s.ID,
		RaceID:        s.RaceID,
		State:         strings.ToUpper(s.clock.State().String()),
		Time:          s.clock.CurrentTime(),
		Speed:         s.clock.Speed(),
		TotalDuration: s.clock.TotalDuration(),
	}
}

// publish swaps the cached state, and the cached frame when one was
// built this step, so readers never touch the clock.
func (s *Session) publish(state streaming.SessionStatePayload, frame []byte) {
	s.stateMu.Lock()
	s.lastState = state
	if frame != nil {
		s.lastFrame = frame
	}
	s.stateMu.Unlock()
}

// LastFrameBuild returns how long the most recent broadcast frame took
// to assemble.
func (s *Session) LastFrameBuild() time.Duration {
	return time.Duration(s.lastBuildUs.Load()) * time.Microsecond
}

// Run drives the frame loop until Close. Ticks use measured wall deltas
// so frame pacing jitter never accumulates into replay time drift.
func (s *Session) Run() {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.closed:
			return
		case now := <-ticker.C:
			s.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Step applies pending commands, advances the clock by delta wall
// seconds if running, and broadcasts a frame when anything changed.
// It is the only place the clock is touched.
func (s *Session) Step(delta float64) {
	start := time.Now()

	dirty := false
	for _, cmd := range s.commands.GetAndEmpty() {
		s.apply(cmd)
		dirty = true
	}

	if s.clock.State() == replay.ClockRunning {
		if err := s.clock.Tick(delta); err == nil {
			dirty = true
		}
		if s.clock.State() == replay.ClockEnded {
			s.logger.Info("Replay reached end of data", "time", s.clock.CurrentTime())
			s.broadcastState()
		}
	}

	if !dirty {
		return
	}

	state := s.currentState()
	snap := s.dataset.BuildSnapshot(state.Time)
	data, err := streaming.Marshal(streaming.TypeSnapshot, snap)
	if err != nil {
		s.publish(state, nil)
		s.logger.Error("Failed to marshal snapshot", "error", err)
		return
	}
	s.publish(state, data)
	s.broadcast(data)

	buildDuration := time.Since(start)
	s.lastBuildUs.Store(buildDuration.Microseconds())
	if s.metrics != nil {
		s.metrics.framesBuilt.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("session", s.ID)))
		s.metrics.frameBuildMs.Record(context.Background(),
			float64(buildDuration.Microseconds())/1000.0,
			metric.WithAttributes(attribute.String("session", s.ID)))
	}
	if s.influxMgr != nil {
		point := influx.FramePoint(s.RaceName, s.ID, buildDuration, s.SubscriberCount(), time.Now())
		if err := s.influxMgr.WritePoint(context.Background(), influx.BucketReplayPerformance, point); err != nil {
			s.logger.Debug("Failed to write frame point", "error", err)
		}
	}
}

// apply executes one control command against the clock.
func (s *Session) apply(cmd Command) {
	var err error
	switch cmd.Op {
	case streaming.TypePlay:
		s.clock.Play()
	case streaming.TypePause:
		s.clock.Pause()
	case streaming.TypeSeek:
		s.clock.Seek(cmd.Value)
	case streaming.TypeSetSpeed:
		err = s.clock.SetSpeed(cmd.Value)
	default:
		s.logger.Warn("Ignoring unknown command", "op", cmd.Op)
		return
	}

	if err != nil {
		s.logger.Warn("Rejected command", "op", cmd.Op, "value", cmd.Value, "error", err)
		if data, mErr := streaming.Marshal(streaming.TypeError, streaming.ErrorPayload{
			Message: err.Error(),
		}); mErr == nil {
			s.broadcast(data)
		}
		return
	}

	if s.metrics != nil {
		s.metrics.commands.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("op", cmd.Op)))
	}
	s.broadcastState()
}

func (s *Session) broadcastState() {
	state := s.currentState()
	s.publish(state, nil)
	if data, err := streaming.Marshal(streaming.TypeSessionState, state); err == nil {
		s.broadcast(data)
	}
}

// broadcast fans data out to all viewers. A viewer with a full buffer
// misses the frame; the next one will carry the current state anyway.
func (s *Session) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subscribers {
		select {
		case sub.ch <- data:
		default:
			if s.metrics != nil {
				s.metrics.framesDropped.Add(context.Background(), 1,
					metric.WithAttributes(attribute.String("session", s.ID)))
			}
		}
	}
}

// Close stops the frame loop and detaches all viewers.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		for sub := range s.subscribers {
			close(sub.ch)
			delete(s.subscribers, sub)
		}
		s.mu.Unlock()
		s.logger.Info("Session closed")
	})
}
