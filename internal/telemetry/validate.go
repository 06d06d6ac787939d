package telemetry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedDataset is wrapped by every load-time validation failure.
// A track that fails validation is refused outright; the engine never
// interpolates over silently wrong data.
var ErrMalformedDataset = errors.New("malformed dataset")

// Validate checks the structural invariants of a driver track: lap
// boundaries sorted ascending by lap number, strictly increasing and
// non-overlapping lap intervals, non-negative durations, and start
// indices that are non-decreasing and within the positions array.
func (d *DriverTrack) Validate() error {
	if d.DriverID == "" {
		return fmt.Errorf("%w: driver with empty ID", ErrMalformedDataset)
	}
	for i, b := range d.Laps {
		if b.LapDuration < 0 {
			return fmt.Errorf("%w: driver %s lap %d has negative duration %.3f",
				ErrMalformedDataset, d.DriverID, b.LapNumber, b.LapDuration)
		}
		if len(d.Positions) > 0 && (b.StartIndex < 0 || b.StartIndex >= len(d.Positions)) {
			return fmt.Errorf("%w: driver %s lap %d startIndex %d out of range [0,%d)",
				ErrMalformedDataset, d.DriverID, b.LapNumber, b.StartIndex, len(d.Positions))
		}
		if i == 0 {
			continue
		}
		prev := d.Laps[i-1]
		if b.LapNumber <= prev.LapNumber {
			return fmt.Errorf("%w: driver %s laps not sorted (lap %d follows lap %d)",
				ErrMalformedDataset, d.DriverID, b.LapNumber, prev.LapNumber)
		}
		if b.CumulativeTime <= prev.CumulativeTime {
			return fmt.Errorf("%w: driver %s lap %d cumulativeTime %.3f not increasing",
				ErrMalformedDataset, d.DriverID, b.LapNumber, b.CumulativeTime)
		}
		if prev.EndTime() > b.CumulativeTime {
			return fmt.Errorf("%w: driver %s lap %d starts at %.3f before lap %d ends at %.3f",
				ErrMalformedDataset, d.DriverID, b.LapNumber, b.CumulativeTime, prev.LapNumber, prev.EndTime())
		}
		if b.StartIndex < prev.StartIndex {
			return fmt.Errorf("%w: driver %s lap %d startIndex %d decreases",
				ErrMalformedDataset, d.DriverID, b.LapNumber, b.StartIndex)
		}
	}
	return nil
}

// Validate checks every driver track. It fails on the first malformed
// driver; loaders that want per-driver error scoping call
// DriverTrack.Validate themselves and drop offenders.
func (rt *RaceTelemetry) Validate() error {
	seen := make(map[string]struct{}, len(rt.Drivers))
	for i := range rt.Drivers {
		d := &rt.Drivers[i]
		if _, dup := seen[d.DriverID]; dup {
			return fmt.Errorf("%w: duplicate driver %s", ErrMalformedDataset, d.DriverID)
		}
		seen[d.DriverID] = struct{}{}
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SortEvents orders a race-control log by time, keeping the original
// order of simultaneous events.
func SortEvents(events []RaceControlEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
}
