// Package replay reconstructs continuous car motion and race state from
// sparse, lap-indexed timing and position samples. All resolvers here are
// pure functions over the telemetry dataset; the only mutable state in
// the package is the Clock.
package replay

import (
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// LapLocation is the result of bracketing a race time within a driver's
// lap boundaries. Next is nil on the driver's final recorded lap. Frozen
// marks a driver held at their final recorded position (finished or
// retired) while others keep racing.
type LapLocation struct {
	Boundary telemetry.LapBoundary
	Next     *telemetry.LapBoundary
	Frozen   bool
}

// Locate finds the lap containing race time t for the given driver.
// Laps are scanned ascending and the first interval
// [CumulativeTime, CumulativeTime+LapDuration) containing t wins;
// validation at load time guarantees the intervals do not overlap.
//
// Times past the end of the last lap return the last boundary with
// Frozen set. Times before the first boundary return the first boundary
// at zero progress. The second return is false when the driver has no
// lap data at all.
func Locate(track *telemetry.DriverTrack, t float64) (LapLocation, bool) {
	if track == nil || len(track.Laps) == 0 {
		return LapLocation{}, false
	}

	laps := track.Laps
	for i := range laps {
		b := laps[i]
		if t >= b.EndTime() {
			continue
		}
		if t >= b.CumulativeTime || i == 0 {
			loc := LapLocation{Boundary: b}
			if i+1 < len(laps) {
				loc.Next = &laps[i+1]
			}
			return loc, true
		}
		// t falls in a gap between laps; bracket it with the earlier lap.
		loc := LapLocation{Boundary: laps[i-1], Next: &laps[i]}
		return loc, true
	}

	// Past the end of the last lap: hold at the final boundary.
	return LapLocation{Boundary: laps[len(laps)-1], Frozen: true}, true
}

// Progress returns the fraction of the located lap completed at race
// time t, clamped to [0,1). Frozen locations are fixed at full progress.
func (l LapLocation) Progress(t float64) float64 {
	if l.Frozen {
		return 1
	}
	if l.Boundary.LapDuration <= 0 {
		return 0
	}
	p := (t - l.Boundary.CumulativeTime) / l.Boundary.LapDuration
	if p < 0 {
		return 0
	}
	if p >= 1 {
		// Clamp just below 1 so the fractional index stays inside the lap slice.
		return almostOne
	}
	return p
}

const almostOne = 1 - 1e-9
