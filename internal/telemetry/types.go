// Package telemetry holds the read-only dataset model for a single race:
// sampled car positions, per-lap timing boundaries, tire compound records
// and the race-control log. Everything here is loaded once per race and
// never mutated during playback.
package telemetry

// TrackPoint is one sampled 2D coordinate.
type TrackPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LapBoundary anchors one lap of a driver to a contiguous slice of the
// driver's position array. The slice covered by lap N is
// [StartIndex, nextBoundary.StartIndex), or through the end of the
// positions array for the final lap.
type LapBoundary struct {
	LapNumber              int     `json:"lapNumber"`
	StartIndex             int     `json:"startIndex"`
	ClassificationPosition int     `json:"classificationPosition"`
	CumulativeTime         float64 `json:"cumulativeTime"` // seconds since race start at lap begin
	LapDuration            float64 `json:"lapDuration"`    // seconds
}

// EndTime returns the race time at which this lap ends.
func (b LapBoundary) EndTime() float64 {
	return b.CumulativeTime + b.LapDuration
}

// DriverTrack is one driver's full spatial and timing record. Retired
// drivers simply have shorter Laps/Positions; lengths are never uniform
// across drivers.
type DriverTrack struct {
	DriverID  string       `json:"driverId"`
	ColorHint string       `json:"colorHint"`
	Positions []TrackPoint `json:"positions"`
	Laps      []LapBoundary `json:"laps"`
}

// TotalDuration returns the race time at which this driver's data ends,
// or 0 if the driver has no laps.
func (d *DriverTrack) TotalDuration() float64 {
	if len(d.Laps) == 0 {
		return 0
	}
	return d.Laps[len(d.Laps)-1].EndTime()
}

// RaceTelemetry is the static reference geometry plus all driver tracks.
type RaceTelemetry struct {
	TrackOutline   []TrackPoint  `json:"trackOutline"`
	PitLaneOutline []TrackPoint  `json:"pitLaneOutline"`
	Drivers        []DriverTrack `json:"drivers"`
}

// TotalDuration returns the replay length: the latest end-of-data time
// across all drivers.
func (rt *RaceTelemetry) TotalDuration() float64 {
	var max float64
	for i := range rt.Drivers {
		if d := rt.Drivers[i].TotalDuration(); d > max {
			max = d
		}
	}
	return max
}

// Driver returns the track for the given driver ID, or nil.
func (rt *RaceTelemetry) Driver(id string) *DriverTrack {
	for i := range rt.Drivers {
		if rt.Drivers[i].DriverID == id {
			return &rt.Drivers[i]
		}
	}
	return nil
}

// Compound is a tire compound tag as reported upstream (SOFT, MEDIUM,
// HARD, INTERMEDIATE, WET).
type Compound string

// CompoundSet is the (driver, lap) -> compound lookup table. It is
// independent of spatial indices; missing records are expected data gaps.
type CompoundSet map[string]map[int]Compound

// Lookup returns the compound for the given driver and lap. The second
// return is false when no record exists; callers must not default it
// silently.
func (cs CompoundSet) Lookup(driverID string, lapNumber int) (Compound, bool) {
	laps, ok := cs[driverID]
	if !ok {
		return "", false
	}
	c, ok := laps[lapNumber]
	return c, ok
}

// Set records a compound for the given driver and lap.
func (cs CompoundSet) Set(driverID string, lapNumber int, c Compound) {
	laps, ok := cs[driverID]
	if !ok {
		laps = make(map[int]Compound)
		cs[driverID] = laps
	}
	laps[lapNumber] = c
}

// RaceControlEvent is one entry of the time-ordered race-control log.
// LapNumber is 0 when the upstream message carried no lap reference.
type RaceControlEvent struct {
	Time      float64 `json:"time"` // seconds since race start
	LapNumber int     `json:"lapNumber,omitempty"`
	Category  string  `json:"category"`
	Message   string  `json:"message"`
	FlagHint  string  `json:"flagHint,omitempty"`
}

// FlagState is the resolved track status at an instant of replay time.
type FlagState string

const (
	FlagGreen     FlagState = "GREEN"
	FlagYellow    FlagState = "YELLOW"
	FlagRed       FlagState = "RED"
	FlagSafetyCar FlagState = "SAFETY_CAR"
)

// DriverSnapshot is the fully resolved state of one car at an instant of
// replay time. Position is nil when the driver has no spatial data at all;
// renderers skip such cars.
type DriverSnapshot struct {
	DriverID               string      `json:"driverId"`
	ColorHint              string      `json:"colorHint"`
	Position               *TrackPoint `json:"position"`
	LapNumber              int         `json:"lapNumber"`
	ClassificationPosition int         `json:"classificationPosition"`
	ElapsedTime            float64     `json:"elapsedTime"`
	GapToAhead             *float64    `json:"gapToAhead"` // nil for the leader
	GapDisplay             string      `json:"gapDisplay,omitempty"`
	Compound               Compound    `json:"compound,omitempty"`
	Frozen                 bool        `json:"frozen"`
}

// RaceSnapshot is the renderer-ready race state at one instant of replay
// time. Drivers are sorted ascending by classification position.
type RaceSnapshot struct {
	Time      float64          `json:"time"`
	LapNumber int              `json:"lapNumber"`
	Flag      FlagState        `json:"flag"`
	Drivers   []DriverSnapshot `json:"drivers"`
}
