package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"gorm.io/gorm"

	"github.com/alexkamer/Pit-Wall-Pro/pkg/streaming"
)

type raceSummary struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	SeasonYear    int       `json:"seasonYear"`
	Round         int       `json:"round"`
	StartTime     time.Time `json:"startTime"`
	Circuit       string    `json:"circuit"`
	Country       string    `json:"country"`
	TotalDuration float64   `json:"totalDuration"`
	TotalLaps     int       `json:"totalLaps"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRaces(w http.ResponseWriter, r *http.Request) {
	races, err := s.db.ListRaces()
	if err != nil {
		s.logger.Error("Failed to list races", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list races")
		return
	}

	summaries := make([]raceSummary, 0, len(races))
	for _, race := range races {
		summaries = append(summaries, raceSummary{
			ID:            race.ID,
			Name:          race.Name,
			SeasonYear:    race.SeasonYear,
			Round:         race.Round,
			StartTime:     race.StartTime,
			Circuit:       race.Circuit.Name,
			Country:       race.Circuit.Country,
			TotalDuration: race.TotalDuration,
			TotalLaps:     race.TotalLaps,
		})
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

// handleSnapshot serves a stateless snapshot at an arbitrary time, for
// clients that scrub without holding a session.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	raceID, ok := s.raceIDParam(w, r)
	if !ok {
		return
	}

	t := 0.0
	if raw := r.URL.Query().Get("t"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid time parameter")
			return
		}
		t = parsed
	}

	ds, err := s.loadDataset(raceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(w, http.StatusNotFound, "race not found")
			return
		}
		s.logger.Error("Failed to load race dataset", "raceId", raceID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load race")
		return
	}

	s.writeJSON(w, http.StatusOK, ds.BuildSnapshot(t))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	raceID, ok := s.raceIDParam(w, r)
	if !ok {
		return
	}

	race, err := s.db.GetRace(raceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(w, http.StatusNotFound, "race not found")
			return
		}
		s.logger.Error("Failed to fetch race", "raceId", raceID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch race")
		return
	}

	ds, err := s.loadDataset(raceID)
	if err != nil {
		s.logger.Error("Failed to load race dataset", "raceId", raceID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load race")
		return
	}

	sess, err := s.sessions.Create(raceID, race.Name, ds)
	if err != nil {
		s.logger.Error("Failed to create session", "raceId", raceID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.writeJSON(w, http.StatusCreated, sess.StatePayload())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()
	states := make([]streaming.SessionStatePayload, 0, len(sessions))
	for _, sess := range sessions {
		states = append(states, sess.StatePayload())
	}
	s.writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, sess.StatePayload())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(chi.URLParam(r, "sessionID")) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) raceIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "raceID"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid race id")
		return 0, false
	}
	return uint(id), true
}
