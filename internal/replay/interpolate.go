package replay

import (
	"math"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// Interpolate resolves a located lap into a 2D position at race time t.
// The result is always a convex combination of two adjacent recorded
// samples (or a single sample when clamped); it never extrapolates.
//
// Within a lap the fractional index runs across the lap's slice of the
// positions array. When the index reaches the lap's last sub-interval and
// a following lap exists, the blend instead runs from the lap's final
// sample to the next lap's first sample, carrying motion smoothly across
// the lap seam. On the final lap the position clamps to the last sample.
//
// The second return is false when the driver has no position samples;
// callers surface that as a frozen car with no position rather than an
// error.
func Interpolate(track *telemetry.DriverTrack, loc LapLocation, t float64) (telemetry.TrackPoint, bool) {
	if track == nil || len(track.Positions) == 0 {
		return telemetry.TrackPoint{}, false
	}

	sliceStart := loc.Boundary.StartIndex
	sliceEnd := len(track.Positions)
	if loc.Next != nil {
		sliceEnd = loc.Next.StartIndex
	}
	if sliceStart >= len(track.Positions) {
		sliceStart = len(track.Positions) - 1
	}
	if sliceEnd <= sliceStart {
		return track.Positions[sliceStart], true
	}

	if loc.Frozen {
		return track.Positions[sliceEnd-1], true
	}

	idx := float64(sliceStart) + loc.Progress(t)*float64(sliceEnd-sliceStart)
	lo := int(math.Floor(idx))
	frac := idx - float64(lo)

	if lo >= sliceEnd-1 {
		if loc.Next != nil && loc.Next.StartIndex < len(track.Positions) {
			// Seam blend: from the lap's last sample toward the next
			// lap's first sample.
			frac = idx - float64(sliceEnd-1)
			return lerp(track.Positions[sliceEnd-1], track.Positions[loc.Next.StartIndex], frac), true
		}
		return track.Positions[sliceEnd-1], true
	}
	return lerp(track.Positions[lo], track.Positions[lo+1], frac), true
}

func lerp(a, b telemetry.TrackPoint, f float64) telemetry.TrackPoint {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	return telemetry.TrackPoint{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
	}
}
