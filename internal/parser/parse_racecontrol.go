package parser

import (
	"encoding/json"
	"fmt"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

type raceControlDocument struct {
	Messages []telemetry.RaceControlEvent `json:"messages"`
}

// ParseRaceControl parses the race-control log. The upstream log is
// nominally time-ordered; it is re-sorted here so later resolvers can
// rely on it. A nil document means the source had no race-control feed.
func (p *Parser) ParseRaceControl(data []byte) ([]telemetry.RaceControlEvent, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var doc raceControlDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshalling race control document: %w", err)
	}
	telemetry.SortEvents(doc.Messages)
	return doc.Messages, nil
}

// trackStatusRecord is one entry of the upstream track-status stream.
type trackStatusRecord struct {
	TimeSeconds float64 `json:"timeSeconds"`
	Status      string  `json:"status"`
	Message     string  `json:"message"`
}

type trackStatusDocument struct {
	TrackStatus []trackStatusRecord `json:"trackStatus"`
}

// trackStatusFlagHints maps upstream status codes to flag hints:
// 1=AllClear, 2=Yellow, 4=SafetyCar, 5=Red, 6=VSC deployed, 7=VSC ending.
var trackStatusFlagHints = map[string]string{
	"1": "CLEAR",
	"2": "YELLOW",
	"5": "RED",
}

// ParseTrackStatus converts the structured track-status stream into
// synthetic race-control events so the flag resolver can consume both
// sources uniformly. Safety-car phases (codes 4/6/7) become SafetyCar
// category messages; unknown codes are logged and skipped.
func (p *Parser) ParseTrackStatus(data []byte) ([]telemetry.RaceControlEvent, error) {
	var doc trackStatusDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshalling track status document: %w", err)
	}

	events := make([]telemetry.RaceControlEvent, 0, len(doc.TrackStatus))
	for _, rec := range doc.TrackStatus {
		ev := telemetry.RaceControlEvent{
			Time:     rec.TimeSeconds,
			Category: "Flag",
			Message:  rec.Message,
		}
		switch rec.Status {
		case "1", "2", "5":
			ev.FlagHint = trackStatusFlagHints[rec.Status]
		case "4":
			ev.Category = "SafetyCar"
			ev.Message = "SAFETY CAR DEPLOYED"
		case "6":
			ev.Category = "SafetyCar"
			ev.Message = "VIRTUAL SAFETY CAR DEPLOYED"
		case "7":
			ev.Category = "SafetyCar"
			ev.Message = "VIRTUAL SAFETY CAR ENDING"
		default:
			p.logger.Warn("Skipping unknown track status code",
				"status", rec.Status, "time", rec.TimeSeconds)
			continue
		}
		events = append(events, ev)
	}
	telemetry.SortEvents(events)
	return events, nil
}
