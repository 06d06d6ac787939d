package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/alexkamer/Pit-Wall-Pro/internal/influx"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
)

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger        *slog.Logger
	metrics       *instruments
	influxMgr     *influx.Manager
	frameInterval time.Duration
}

// NewManager creates the session registry. influxMgr may be nil when
// metrics shipping is disabled.
func NewManager(logger *slog.Logger, influxMgr *influx.Manager, frameInterval time.Duration) (*Manager, error) {
	ins, err := newInstruments()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		sessions:      make(map[string]*Session),
		logger:        logger,
		metrics:       ins,
		influxMgr:     influxMgr,
		frameInterval: frameInterval,
	}

	gauge, err := meter().Int64ObservableGauge(
		"session.subscribers",
		metric.WithDescription("Attached viewers per session"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating subscriber gauge: %w", err)
	}
	_, err = meter().RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for id, s := range m.sessions {
				o.ObserveInt64(gauge, int64(s.SubscriberCount()),
					metric.WithAttributes(attribute.String("session", id)))
			}
			return nil
		},
		gauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering subscriber callback: %w", err)
	}

	return m, nil
}

// Create starts a new session over the given dataset and begins its
// frame loop.
func (m *Manager) Create(raceID uint, raceName string, ds *replay.Dataset) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	s := newSession(id, raceID, raceName, ds, m.logger, m.metrics, m.influxMgr, m.frameInterval)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	go s.Run()

	if m.influxMgr != nil {
		point := influx.SessionPoint(raceName, id, "created", time.Now())
		if err := m.influxMgr.WritePoint(context.Background(), influx.BucketSessionActivity, point); err != nil {
			m.logger.Debug("Failed to write session point", "error", err)
		}
	}
	m.logger.Info("Session created", "session", id, "race", raceName)
	return s, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Close stops a session and removes it from the registry.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()

	if m.influxMgr != nil {
		point := influx.SessionPoint(s.RaceName, id, "closed", time.Now())
		if err := m.influxMgr.WritePoint(context.Background(), influx.BucketSessionActivity, point); err != nil {
			m.logger.Debug("Failed to write session point", "error", err)
		}
	}
	return true
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func newSessionID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
