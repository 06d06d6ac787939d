package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
	"github.com/alexkamer/Pit-Wall-Pro/internal/util"
)

// lapRecord is one row of the coarse per-lap dataset. Nullable upstream
// columns come through as pointers.
type lapRecord struct {
	DriverID               string  `json:"driverId"`
	LapNumber              int     `json:"lapNumber"`
	ClassificationPosition *int    `json:"classificationPosition"`
	LapDurationDisplay     *string `json:"lapDurationDisplay"`
	Compound               *string `json:"compound"`
	// Status is carried by some upstream sources; spatial data length
	// stays authoritative for end-of-data handling.
	Status *string `json:"status"`
}

type lapDocument struct {
	Laps []lapRecord `json:"laps"`
}

// ParseLapData parses the coarse per-lap dataset into the compound
// lookup table. Rows without a compound are expected data gaps and are
// simply absent from the table; rows without a driver or lap reference
// are logged and skipped.
func (p *Parser) ParseLapData(data []byte) (telemetry.CompoundSet, error) {
	var doc lapDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshalling lap data document: %w", err)
	}

	compounds := make(telemetry.CompoundSet)
	for _, rec := range doc.Laps {
		if rec.DriverID == "" || rec.LapNumber <= 0 {
			p.logger.Warn("Skipping lap record without driver/lap reference",
				"driver", rec.DriverID, "lap", rec.LapNumber)
			continue
		}
		if rec.LapDurationDisplay != nil && *rec.LapDurationDisplay != "" {
			if _, err := util.ParseLapTimeDisplay(*rec.LapDurationDisplay); err != nil {
				p.logger.Warn("Malformed lap duration display",
					"driver", rec.DriverID, "lap", rec.LapNumber, "error", err)
			}
		}
		if rec.Compound == nil || *rec.Compound == "" {
			continue
		}
		compounds.Set(rec.DriverID, rec.LapNumber, telemetry.Compound(strings.ToUpper(*rec.Compound)))
	}
	return compounds, nil
}
