// Package parser converts the upstream JSON documents (coarse per-lap
// data, spatial telemetry, race-control log, track-status stream) into
// the read-only dataset model. Structural problems in a single driver's
// data are scoped to that driver: the offender is dropped with a logged
// error and the rest of the field loads normally.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// Parser provides pure []byte -> dataset model conversion. It has no
// dependency beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseDataset parses all upstream documents of one race into a replay
// dataset. trackStatus may be nil when the upstream source provided no
// status stream; its events are merged into the race-control log with
// lap numbers assigned from the telemetry's reference driver.
func (p *Parser) ParseDataset(lapData, spatial, raceControl, trackStatus []byte) (*replay.Dataset, error) {
	rt, err := p.ParseTelemetry(spatial)
	if err != nil {
		return nil, err
	}
	compounds, err := p.ParseLapData(lapData)
	if err != nil {
		return nil, err
	}
	events, err := p.ParseRaceControl(raceControl)
	if err != nil {
		return nil, err
	}

	if trackStatus != nil {
		statusEvents, err := p.ParseTrackStatus(trackStatus)
		if err != nil {
			return nil, err
		}
		AssignLaps(statusEvents, referenceTrack(rt))
		events = append(events, statusEvents...)
		telemetry.SortEvents(events)
	}

	return &replay.Dataset{
		Telemetry:   rt,
		Compounds:   compounds,
		RaceControl: events,
	}, nil
}

// ParseTelemetry parses the spatial telemetry document. Drivers that
// fail validation are dropped and logged; the document itself failing to
// decode is fatal.
func (p *Parser) ParseTelemetry(data []byte) (*telemetry.RaceTelemetry, error) {
	var rt telemetry.RaceTelemetry
	if err := json.Unmarshal(data, &rt); err != nil {
		return nil, fmt.Errorf("error unmarshalling telemetry document: %w", err)
	}

	kept := rt.Drivers[:0]
	seen := make(map[string]struct{}, len(rt.Drivers))
	for i := range rt.Drivers {
		d := rt.Drivers[i]
		if _, dup := seen[d.DriverID]; dup {
			p.logger.Error("Dropping duplicate driver track", "driver", d.DriverID)
			continue
		}
		if err := d.Validate(); err != nil {
			p.logger.Error("Dropping malformed driver track", "driver", d.DriverID, "error", err)
			continue
		}
		seen[d.DriverID] = struct{}{}
		kept = append(kept, d)
	}
	rt.Drivers = kept
	return &rt, nil
}

// referenceTrack picks the driver with the longest timing record, used
// for mapping times to laps when the upstream data carries none.
func referenceTrack(rt *telemetry.RaceTelemetry) *telemetry.DriverTrack {
	var ref *telemetry.DriverTrack
	for i := range rt.Drivers {
		d := &rt.Drivers[i]
		if ref == nil || d.TotalDuration() > ref.TotalDuration() {
			ref = d
		}
	}
	return ref
}

// AssignLaps fills in missing lap numbers on race-control events by
// locating each event's time on the reference driver's lap boundaries.
// Events that already carry a lap number are left alone.
func AssignLaps(events []telemetry.RaceControlEvent, ref *telemetry.DriverTrack) {
	if ref == nil {
		return
	}
	for i := range events {
		if events[i].LapNumber != 0 {
			continue
		}
		if loc, ok := replay.Locate(ref, events[i].Time); ok {
			events[i].LapNumber = loc.Boundary.LapNumber
		}
	}
}
