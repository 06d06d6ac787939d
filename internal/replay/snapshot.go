package replay

import (
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
	"github.com/alexkamer/Pit-Wall-Pro/internal/util"
)

// Dataset bundles the three read-only inputs of a replay: the spatial
// telemetry, the compound lookup table and the race-control log. It is
// loaded once per race and shared by every snapshot built from it.
type Dataset struct {
	Telemetry   *telemetry.RaceTelemetry
	Compounds   telemetry.CompoundSet
	RaceControl []telemetry.RaceControlEvent
}

// TotalDuration returns the replay length in race seconds.
func (d *Dataset) TotalDuration() float64 {
	if d.Telemetry == nil {
		return 0
	}
	return d.Telemetry.TotalDuration()
}

// NewClock creates a clock sized to this dataset.
func (d *Dataset) NewClock() *Clock {
	return NewClock(d.TotalDuration())
}

// BuildSnapshot resolves the full race state at race time t. It is a
// pure combinator over the per-driver resolvers: lap location, position
// interpolation and compound lookup per driver, order and gaps across
// all drivers, and flag state off the leader's current lap. Nothing is
// cached between calls, so an unchanged dataset and identical t always
// produce an identical snapshot.
func (d *Dataset) BuildSnapshot(t float64) telemetry.RaceSnapshot {
	snap := telemetry.RaceSnapshot{Time: t, Flag: telemetry.FlagGreen}
	if d.Telemetry == nil {
		return snap
	}

	standings := ResolveOrder(d.Telemetry, t)
	snap.Drivers = make([]telemetry.DriverSnapshot, 0, len(standings))

	for i := range standings {
		s := standings[i]
		track := d.Telemetry.Driver(s.DriverID)

		ds := telemetry.DriverSnapshot{
			DriverID:               s.DriverID,
			ColorHint:              track.ColorHint,
			LapNumber:              s.LapNumber,
			ClassificationPosition: s.ClassificationPosition,
			ElapsedTime:            s.ElapsedTime,
			GapToAhead:             s.GapToAhead,
			Frozen:                 s.Frozen,
		}
		if s.GapToAhead != nil {
			ds.GapDisplay = util.FormatGap(*s.GapToAhead)
		}

		loc, located := Locate(track, t)
		if located {
			if pt, ok := Interpolate(track, loc, t); ok {
				p := pt
				ds.Position = &p
			} else {
				// No spatial samples at all: surface as frozen with no
				// position so the renderer can skip the car.
				ds.Frozen = true
			}
			if c, ok := d.Compounds.Lookup(s.DriverID, loc.Boundary.LapNumber); ok {
				ds.Compound = c
			}
		}

		snap.Drivers = append(snap.Drivers, ds)
	}

	// Flag state follows the reference driver: the classification leader.
	if len(snap.Drivers) > 0 {
		snap.LapNumber = snap.Drivers[0].LapNumber
		snap.Flag = ResolveFlag(d.RaceControl, snap.LapNumber)
	}
	return snap
}
