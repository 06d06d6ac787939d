package replay

import (
	"sort"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// Standing is one driver's classification entry at an instant of replay
// time. GapToAhead is nil for the leader and for drivers without lap
// data.
type Standing struct {
	DriverID               string
	ClassificationPosition int
	LapNumber              int
	ElapsedTime            float64
	GapToAhead             *float64
	Frozen                 bool
}

// ResolveOrder derives the running order at race time t across all
// drivers. Classification position is read from the located lap
// boundary's metadata, never from spatial proximity; a car that is
// physically ahead mid-overtake may still classify behind until the lap
// data says otherwise.
//
// Elapsed time is the race time consumed by the driver: t while racing,
// or the fixed total once frozen. Gaps are the elapsed-time difference
// to the driver one classification place ahead, which stays well-defined
// against frozen and lapped cars.
//
// The returned slice is sorted ascending by classification position,
// with driver ID as a deterministic tie-break.
func ResolveOrder(rt *telemetry.RaceTelemetry, t float64) []Standing {
	standings := make([]Standing, 0, len(rt.Drivers))
	for i := range rt.Drivers {
		track := &rt.Drivers[i]
		loc, ok := Locate(track, t)
		if !ok {
			continue
		}
		s := Standing{
			DriverID:               track.DriverID,
			ClassificationPosition: loc.Boundary.ClassificationPosition,
			LapNumber:              loc.Boundary.LapNumber,
			Frozen:                 loc.Frozen,
			ElapsedTime:            t,
		}
		if loc.Frozen {
			s.ElapsedTime = track.TotalDuration()
		}
		standings = append(standings, s)
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].ClassificationPosition != standings[j].ClassificationPosition {
			return standings[i].ClassificationPosition < standings[j].ClassificationPosition
		}
		return standings[i].DriverID < standings[j].DriverID
	})

	for i := 1; i < len(standings); i++ {
		gap := standings[i].ElapsedTime - standings[i-1].ElapsedTime
		standings[i].GapToAhead = &gap
	}
	return standings
}
