// Package model defines the GORM schema for the race archive.
package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent
// tables in the database schema.
var DatabaseModels = []interface{}{
	&Circuit{},
	&Race{},
	&Driver{},
	&RaceEntry{},
	&RaceResult{},
	&SessionImport{},
	&ReplayPerformance{},
}

// Circuit is a venue. Location is stored in EPSG 3857 so a plain SQLite
// backend can hold it without spatial extensions.
type Circuit struct {
	gorm.Model
	Name      string     `json:"name" gorm:"size:127;index:idx_circuit_name"`
	Country   string     `json:"country" gorm:"size:64"`
	Locality  string     `json:"locality" gorm:"size:64"`
	Latitude  float64    `json:"latitude" gorm:"-"`
	Longitude float64    `json:"longitude" gorm:"-"`
	Location  geom.Point `json:"location"`
	Races     []Race
}

func (*Circuit) TableName() string {
	return "circuits"
}

func (c *Circuit) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Circuit
	err = db.Where("name = ?", c.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(c).Error
			return true, err
		}
		return false, err
	}
	*c = existing
	return false, nil
}

// Race is one imported session at a circuit.
type Race struct {
	gorm.Model
	SeasonYear    int       `json:"seasonYear" gorm:"index:idx_race_season"`
	Round         int       `json:"round"`
	Name          string    `json:"name" gorm:"size:200"`
	StartTime     time.Time `json:"startTime" gorm:"index:idx_race_start"`
	CircuitID     uint
	Circuit       Circuit `gorm:"foreignkey:CircuitID"`
	TotalDuration float64 `json:"totalDuration"`
	TotalLaps     int     `json:"totalLaps"`

	// Outlines in telemetry coordinate space, not lat/long.
	TrackOutline   geom.LineString `json:"trackOutline"`
	PitLaneOutline geom.LineString `json:"pitLaneOutline"`

	Entries []RaceEntry
	Results []RaceResult
}

func (*Race) TableName() string {
	return "races"
}

// Driver is a participant across seasons, keyed by broadcast code.
type Driver struct {
	gorm.Model
	Code      string `json:"code" gorm:"size:8;uniqueIndex:idx_driver_code"`
	Name      string `json:"name" gorm:"size:127"`
	Team      string `json:"team" gorm:"size:127"`
	ColorHint string `json:"colorHint" gorm:"size:16"`
}

func (*Driver) TableName() string {
	return "drivers"
}

func (d *Driver) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Driver
	err = db.Where("code = ?", d.Code).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(d).Error
			return true, err
		}
		return false, err
	}
	*d = existing
	return false, nil
}

// RaceEntry ties a driver to a race and carries the per-lap payloads the
// replay dataset is rebuilt from.
type RaceEntry struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	RaceID   uint   `json:"raceId" gorm:"index:idx_raceentry_race_id"`
	Race     Race   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	DriverID uint   `json:"driverId" gorm:"index:idx_raceentry_driver_id"`
	Driver   Driver `gorm:"foreignkey:DriverID"`

	CarNumber int            `json:"carNumber"`
	Laps      datatypes.JSON `json:"laps" gorm:"default:'[]'"`
	Positions datatypes.JSON `json:"positions" gorm:"default:'[]'"`
	Compounds datatypes.JSON `json:"compounds" gorm:"default:'{}'"`
}

func (*RaceEntry) TableName() string {
	return "race_entries"
}

// RaceResult is the final classification row for one driver.
type RaceResult struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	RaceID   uint   `json:"raceId" gorm:"index:idx_raceresult_race_id"`
	Race     Race   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	DriverID uint   `json:"driverId" gorm:"index:idx_raceresult_driver_id"`
	Driver   Driver `gorm:"foreignkey:DriverID"`

	ClassificationPosition int             `json:"position"`
	LapsCompleted          int             `json:"lapsCompleted"`
	TotalTime              sql.NullFloat64 `json:"totalTime"`
	Status                 string          `json:"status" gorm:"size:32"`
}

func (*RaceResult) TableName() string {
	return "race_results"
}

// SessionImport keeps the raw upstream documents so a race can be
// re-parsed after parser changes without refetching.
type SessionImport struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RaceID     uint      `json:"raceId" gorm:"index:idx_sessionimport_race_id"`
	Race       Race      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	ImportedAt time.Time `json:"importedAt"`
	Source     string    `json:"source" gorm:"size:64"`

	LapData     datatypes.JSON `json:"lapData"`
	Spatial     datatypes.JSON `json:"spatial"`
	RaceControl datatypes.JSON `json:"raceControl"`
	TrackStatus datatypes.JSON `json:"trackStatus"`
}

func (*SessionImport) TableName() string {
	return "session_imports"
}

// ReplayPerformance records frame-loop timings per running session.
type ReplayPerformance struct {
	Time            time.Time `json:"time" gorm:"index:idx_replayperf_time"`
	RaceID          uint      `json:"raceId" gorm:"index:idx_replayperf_race_id"`
	Race            Race      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RaceID;"`
	SessionCount    uint16    `json:"sessionCount"`
	SubscriberCount uint16    `json:"subscriberCount"`
	FrameBuildMs    float32   `json:"frameBuildMs"`
}

func (*ReplayPerformance) TableName() string {
	return "replay_performances"
}
