// Package monitor samples live replay sessions on an interval and
// persists the samples so replay performance can be inspected after the
// fact.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
	"github.com/alexkamer/Pit-Wall-Pro/internal/model"
	"github.com/alexkamer/Pit-Wall-Pro/internal/session"
)

// DefaultInterval between samples.
const DefaultInterval = time.Second

// Service periodically samples the session registry.
type Service struct {
	db        *database.Manager
	sessions  *session.Manager
	logger    *slog.Logger
	statusDir string
	interval  time.Duration

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
}

// NewService creates the monitor. statusDir may be empty to skip the
// status file.
func NewService(db *database.Manager, sessions *session.Manager, logger *slog.Logger, statusDir string, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		db:        db,
		sessions:  sessions,
		logger:    logger,
		statusDir: statusDir,
		interval:  interval,
	}
}

// IsRunning returns whether the monitor goroutine is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Sample captures one performance row per live session.
func (s *Service) Sample() []model.ReplayPerformance {
	sessions := s.sessions.List()
	samples := make([]model.ReplayPerformance, 0, len(sessions))
	now := time.Now()
	for _, sess := range sessions {
		samples = append(samples, model.ReplayPerformance{
			Time:            now,
			RaceID:          sess.RaceID,
			SessionCount:    uint16(len(sessions)),
			SubscriberCount: uint16(sess.SubscriberCount()),
			FrameBuildMs:    float32(sess.LastFrameBuild().Microseconds()) / 1000.0,
		})
	}
	return samples
}

// Start launches the sampling goroutine. Calling Start on a running
// monitor is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Service) tick() {
	samples := s.Sample()
	if len(samples) == 0 {
		return
	}

	if s.db != nil && s.db.IsValid {
		for _, sample := range samples {
			if err := s.db.RecordPerformance(sample); err != nil {
				s.logger.Error("Failed to record performance sample", "error", err)
			}
		}
	}

	if s.statusDir != "" {
		if err := s.writeStatusFile(samples); err != nil {
			s.logger.Error("Failed to write status file", "error", err)
		}
	}
}

func (s *Service) writeStatusFile(samples []model.ReplayPerformance) error {
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.statusDir, "status.json"), data, 0o644)
}

// Stop ends the sampling goroutine.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
