// Package util provides small parsing and formatting helpers shared
// across the replay service.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLapTimeDisplay converts an upstream lap-time display string into
// seconds. Accepted forms are "M:SS.mmm", "H:MM:SS.mmm" and a plain
// seconds value ("92.45").
func ParseLapTimeDisplay(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty lap time")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid lap time %q", s)
	}

	var total float64
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid lap time %q: %w", s, err)
		}
		if v < 0 {
			return 0, fmt.Errorf("invalid lap time %q: negative component", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatGap renders a gap-to-ahead value the way timing screens do:
// "+1.234" for sub-minute gaps, "+1:02.500" beyond.
func FormatGap(seconds float64) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%s%.3f", sign, seconds)
	}
	mins := int(seconds) / 60
	return fmt.Sprintf("%s%d:%06.3f", sign, mins, seconds-float64(mins*60))
}
