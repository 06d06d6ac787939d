// Package convert bridges replay datasets and the GORM archive schema.
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/alexkamer/Pit-Wall-Pro/internal/geo"
	"github.com/alexkamer/Pit-Wall-Pro/internal/model"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// RaceFromDataset builds the archive Race row for a parsed dataset.
// Outlines shorter than two points are left empty rather than rejected;
// some sessions ship without a pit lane trace.
func RaceFromDataset(name string, seasonYear, round int, startTime time.Time, ds *replay.Dataset) (model.Race, error) {
	race := model.Race{
		SeasonYear: seasonYear,
		Round:      round,
		Name:       name,
		StartTime:  startTime,
	}

	if ds.Telemetry == nil {
		return race, fmt.Errorf("dataset has no telemetry")
	}
	race.TotalDuration = ds.Telemetry.TotalDuration()
	race.TotalLaps = totalLaps(ds.Telemetry)

	if len(ds.Telemetry.TrackOutline) >= 2 {
		ls, err := geo.OutlineToLineString(ds.Telemetry.TrackOutline)
		if err != nil {
			return race, fmt.Errorf("track outline: %w", err)
		}
		race.TrackOutline = ls
	}
	if len(ds.Telemetry.PitLaneOutline) >= 2 {
		ls, err := geo.OutlineToLineString(ds.Telemetry.PitLaneOutline)
		if err != nil {
			return race, fmt.Errorf("pit lane outline: %w", err)
		}
		race.PitLaneOutline = ls
	}

	return race, nil
}

// EntryFromTrack packs one driver's track and compound records into an
// archive row.
func EntryFromTrack(raceID, driverID uint, track *telemetry.DriverTrack, compounds map[int]telemetry.Compound) (model.RaceEntry, error) {
	entry := model.RaceEntry{
		RaceID:   raceID,
		DriverID: driverID,
	}

	laps, err := json.Marshal(track.Laps)
	if err != nil {
		return entry, err
	}
	positions, err := json.Marshal(track.Positions)
	if err != nil {
		return entry, err
	}
	if compounds == nil {
		compounds = map[int]telemetry.Compound{}
	}
	comp, err := json.Marshal(compounds)
	if err != nil {
		return entry, err
	}

	entry.Laps = datatypes.JSON(laps)
	entry.Positions = datatypes.JSON(positions)
	entry.Compounds = datatypes.JSON(comp)
	return entry, nil
}

// TrackFromEntry unpacks an archive row back into a driver track plus its
// compound records.
func TrackFromEntry(entry model.RaceEntry, driverCode, colorHint string) (telemetry.DriverTrack, map[int]telemetry.Compound, error) {
	track := telemetry.DriverTrack{
		DriverID:  driverCode,
		ColorHint: colorHint,
	}

	if len(entry.Laps) > 0 {
		if err := json.Unmarshal(entry.Laps, &track.Laps); err != nil {
			return track, nil, fmt.Errorf("laps for %s: %w", driverCode, err)
		}
	}
	if len(entry.Positions) > 0 {
		if err := json.Unmarshal(entry.Positions, &track.Positions); err != nil {
			return track, nil, fmt.Errorf("positions for %s: %w", driverCode, err)
		}
	}

	compounds := map[int]telemetry.Compound{}
	if len(entry.Compounds) > 0 {
		if err := json.Unmarshal(entry.Compounds, &compounds); err != nil {
			return track, nil, fmt.Errorf("compounds for %s: %w", driverCode, err)
		}
	}

	return track, compounds, nil
}

// ResultsFromDataset derives the final classification from end-of-data
// lap metadata. A driver whose data ends before the race does is
// recorded as retired.
func ResultsFromDataset(raceID uint, ds *replay.Dataset, driverIDs map[string]uint) []model.RaceResult {
	if ds.Telemetry == nil {
		return nil
	}
	raceEnd := ds.Telemetry.TotalDuration()

	results := make([]model.RaceResult, 0, len(ds.Telemetry.Drivers))
	for i := range ds.Telemetry.Drivers {
		track := &ds.Telemetry.Drivers[i]
		if len(track.Laps) == 0 {
			continue
		}
		last := track.Laps[len(track.Laps)-1]

		result := model.RaceResult{
			RaceID:                 raceID,
			DriverID:               driverIDs[track.DriverID],
			ClassificationPosition: last.ClassificationPosition,
			LapsCompleted:          len(track.Laps),
			Status:                 "Finished",
		}
		if total := track.TotalDuration(); total > 0 {
			result.TotalTime = sql.NullFloat64{Float64: total, Valid: true}
			if total < raceEnd {
				result.Status = "Retired"
			}
		}
		results = append(results, result)
	}
	return results
}

// OutlinesFromRace restores the dataset outlines from the archive row.
func OutlinesFromRace(race model.Race) (track, pitLane []telemetry.TrackPoint) {
	if race.TrackOutline.Coordinates().Length() > 0 {
		track = geo.OutlineFromLineString(race.TrackOutline)
	}
	if race.PitLaneOutline.Coordinates().Length() > 0 {
		pitLane = geo.OutlineFromLineString(race.PitLaneOutline)
	}
	return track, pitLane
}

// totalLaps is the largest lap number any driver completed.
func totalLaps(rt *telemetry.RaceTelemetry) int {
	var max int
	for i := range rt.Drivers {
		laps := rt.Drivers[i].Laps
		if len(laps) == 0 {
			continue
		}
		if n := laps[len(laps)-1].LapNumber; n > max {
			max = n
		}
	}
	return max
}
