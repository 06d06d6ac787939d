package database

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/alexkamer/Pit-Wall-Pro/internal/geo"
	"github.com/alexkamer/Pit-Wall-Pro/internal/model"
	"github.com/alexkamer/Pit-Wall-Pro/internal/model/convert"
	"github.com/alexkamer/Pit-Wall-Pro/internal/parser"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// RawDocuments carries the upstream JSON payloads a race was imported
// from. They are archived alongside the parsed rows so a race can be
// re-imported after parser changes.
type RawDocuments struct {
	LapData     []byte
	Spatial     []byte
	RaceControl []byte
	TrackStatus []byte
}

// RaceInfo identifies a race being imported.
type RaceInfo struct {
	Name        string
	SeasonYear  int
	Round       int
	StartTime   time.Time
	CircuitName string
	Country     string
	Locality    string
	Latitude    float64
	Longitude   float64
}

// SaveRace writes a parsed dataset and its raw documents to the archive.
// Returns the new race ID.
func (m *Manager) SaveRace(info RaceInfo, ds *replay.Dataset, raw RawDocuments) (uint, error) {
	if !m.IsValid {
		return 0, fmt.Errorf("database not connected")
	}

	circuit := model.Circuit{
		Name:     info.CircuitName,
		Country:  info.Country,
		Locality: info.Locality,
	}
	if circuit.Name == "" {
		circuit.Name = info.Name
	}
	if info.Latitude != 0 || info.Longitude != 0 {
		circuit.Latitude = info.Latitude
		circuit.Longitude = info.Longitude
		circuit.Location = geo.CircuitLocation3857(info.Longitude, info.Latitude)
	}
	if _, err := circuit.GetOrInsert(m.DB); err != nil {
		return 0, fmt.Errorf("circuit: %w", err)
	}

	race, err := convert.RaceFromDataset(info.Name, info.SeasonYear, info.Round, info.StartTime, ds)
	if err != nil {
		return 0, err
	}
	race.CircuitID = circuit.ID
	if err := m.DB.Create(&race).Error; err != nil {
		return 0, fmt.Errorf("race: %w", err)
	}

	driverIDs := make(map[string]uint, len(ds.Telemetry.Drivers))
	for i := range ds.Telemetry.Drivers {
		track := &ds.Telemetry.Drivers[i]
		driver := model.Driver{
			Code:      track.DriverID,
			ColorHint: track.ColorHint,
		}
		if _, err := driver.GetOrInsert(m.DB); err != nil {
			return 0, fmt.Errorf("driver %s: %w", track.DriverID, err)
		}
		driverIDs[track.DriverID] = driver.ID

		entry, err := convert.EntryFromTrack(race.ID, driver.ID, track, ds.Compounds[track.DriverID])
		if err != nil {
			return 0, fmt.Errorf("entry %s: %w", track.DriverID, err)
		}
		if err := m.DB.Create(&entry).Error; err != nil {
			return 0, fmt.Errorf("entry %s: %w", track.DriverID, err)
		}
	}

	results := convert.ResultsFromDataset(race.ID, ds, driverIDs)
	if len(results) > 0 {
		if err := m.DB.Create(&results).Error; err != nil {
			return 0, fmt.Errorf("results: %w", err)
		}
	}

	imp := model.SessionImport{
		RaceID:      race.ID,
		ImportedAt:  time.Now().UTC(),
		Source:      "import",
		LapData:     datatypes.JSON(raw.LapData),
		Spatial:     datatypes.JSON(raw.Spatial),
		RaceControl: datatypes.JSON(raw.RaceControl),
		TrackStatus: datatypes.JSON(raw.TrackStatus),
	}
	if err := m.DB.Create(&imp).Error; err != nil {
		return 0, fmt.Errorf("session import: %w", err)
	}

	m.Logger.Info().Uint("raceId", race.ID).Str("name", race.Name).
		Int("drivers", len(ds.Telemetry.Drivers)).Msg("Race archived")
	return race.ID, nil
}

// LoadRace rebuilds a replay dataset from archived rows. Race control is
// re-parsed from the stored raw documents.
func (m *Manager) LoadRace(raceID uint, p *parser.Parser) (*replay.Dataset, error) {
	if !m.IsValid {
		return nil, fmt.Errorf("database not connected")
	}

	var race model.Race
	if err := m.DB.First(&race, raceID).Error; err != nil {
		return nil, fmt.Errorf("race %d: %w", raceID, err)
	}

	var entries []model.RaceEntry
	if err := m.DB.Preload("Driver").Where("race_id = ?", raceID).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("entries for race %d: %w", raceID, err)
	}

	rt := &telemetry.RaceTelemetry{}
	rt.TrackOutline, rt.PitLaneOutline = convert.OutlinesFromRace(race)

	compounds := telemetry.CompoundSet{}
	for _, entry := range entries {
		track, comp, err := convert.TrackFromEntry(entry, entry.Driver.Code, entry.Driver.ColorHint)
		if err != nil {
			return nil, err
		}
		rt.Drivers = append(rt.Drivers, track)
		for lap, c := range comp {
			compounds.Set(entry.Driver.Code, lap, c)
		}
	}

	if err := rt.Validate(); err != nil {
		return nil, fmt.Errorf("archived race %d: %w", raceID, err)
	}

	ds := &replay.Dataset{
		Telemetry: rt,
		Compounds: compounds,
	}

	var imp model.SessionImport
	err := m.DB.Where("race_id = ?", raceID).Order("imported_at DESC").First(&imp).Error
	if err == nil {
		events, err := p.ParseRaceControl([]byte(imp.RaceControl))
		if err != nil {
			return nil, err
		}
		if len(imp.TrackStatus) > 0 {
			status, err := p.ParseTrackStatus([]byte(imp.TrackStatus))
			if err != nil {
				return nil, err
			}
			events = append(events, status...)
			telemetry.SortEvents(events)
		}
		var ref *telemetry.DriverTrack
		for i := range rt.Drivers {
			d := &rt.Drivers[i]
			if ref == nil || d.TotalDuration() > ref.TotalDuration() {
				ref = d
			}
		}
		parser.AssignLaps(events, ref)
		ds.RaceControl = events
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("session import for race %d: %w", raceID, err)
	}

	return ds, nil
}

// ListRaces returns archive races newest first.
func (m *Manager) ListRaces() ([]model.Race, error) {
	if !m.IsValid {
		return nil, fmt.Errorf("database not connected")
	}
	var races []model.Race
	err := m.DB.Preload("Circuit").Order("start_time DESC").Find(&races).Error
	return races, err
}

// GetRace returns a single race with its circuit.
func (m *Manager) GetRace(raceID uint) (model.Race, error) {
	var race model.Race
	err := m.DB.Preload("Circuit").First(&race, raceID).Error
	return race, err
}

// SaveResults replaces the classification rows for a race.
func (m *Manager) SaveResults(raceID uint, results []model.RaceResult) error {
	if err := m.DB.Where("race_id = ?", raceID).Delete(&model.RaceResult{}).Error; err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	return m.DB.Create(&results).Error
}

// RecordPerformance appends a frame-loop timing sample.
func (m *Manager) RecordPerformance(sample model.ReplayPerformance) error {
	if !m.IsValid {
		return fmt.Errorf("database not connected")
	}
	return m.DB.Create(&sample).Error
}
