package replay

import (
	"testing"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestResolveFlag(t *testing.T) {
	log := []telemetry.RaceControlEvent{
		{Time: 10, LapNumber: 1, Category: "Flag", Message: "GREEN LIGHT - PIT EXIT OPEN", FlagHint: "GREEN"},
		{Time: 380, LapNumber: 5, Category: "Flag", Message: "YELLOW IN TRACK SECTOR 7", FlagHint: "YELLOW"},
		{Time: 420, LapNumber: 5, Category: "Flag", Message: "CLEAR IN TRACK SECTOR 7", FlagHint: "CLEAR"},
		{Time: 900, LapNumber: 12, Category: "SafetyCar", Message: "SAFETY CAR DEPLOYED"},
		{Time: 1100, LapNumber: 14, Category: "SafetyCar", Message: "SAFETY CAR IN THIS LAP"},
		{Time: 1180, LapNumber: 15, Category: "Flag", Message: "TRACK CLEAR", FlagHint: "CLEAR"},
		{Time: 1500, LapNumber: 20, Category: "Flag", Message: "RED FLAG", FlagHint: "RED"},
	}

	tests := []struct {
		name string
		lap  int
		want telemetry.FlagState
	}{
		{name: "green at race start", lap: 1, want: telemetry.FlagGreen},
		{name: "no events in window defaults green", lap: 8, want: telemetry.FlagGreen},
		{name: "yellow cleared within same lap", lap: 5, want: telemetry.FlagGreen},
		{name: "cleared yellow stays green one lap later", lap: 6, want: telemetry.FlagGreen},
		{name: "safety car deployed", lap: 12, want: telemetry.FlagSafetyCar},
		{name: "safety car look-back", lap: 13, want: telemetry.FlagSafetyCar},
		{name: "safety car returning stays neutralized", lap: 14, want: telemetry.FlagSafetyCar},
		{name: "green restored by clear event", lap: 15, want: telemetry.FlagGreen},
		{name: "red flag", lap: 20, want: telemetry.FlagRed},
		{name: "red flag look-back", lap: 21, want: telemetry.FlagRed},
		{name: "far beyond log defaults green", lap: 40, want: telemetry.FlagGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFlag(log, tt.lap))
		})
	}
}

func TestResolveFlagMostRecentWins(t *testing.T) {
	log := []telemetry.RaceControlEvent{
		{Time: 100, LapNumber: 3, FlagHint: "YELLOW", Message: "YELLOW IN TRACK SECTOR 2"},
		{Time: 130, LapNumber: 3, FlagHint: "DOUBLE YELLOW", Message: "DOUBLE YELLOW IN TRACK SECTOR 2"},
		{Time: 160, LapNumber: 3, FlagHint: "CLEAR", Message: "CLEAR IN TRACK SECTOR 2"},
	}
	assert.Equal(t, telemetry.FlagGreen, ResolveFlag(log, 3))

	// Without the clear, the double yellow holds.
	assert.Equal(t, telemetry.FlagYellow, ResolveFlag(log[:2], 3))
}

func TestResolveFlagVirtualSafetyCar(t *testing.T) {
	log := []telemetry.RaceControlEvent{
		{Time: 700, LapNumber: 9, Category: "SafetyCar", Message: "VIRTUAL SAFETY CAR DEPLOYED"},
	}
	assert.Equal(t, telemetry.FlagSafetyCar, ResolveFlag(log, 9))

	// The ending phase keeps the track neutralized until an explicit
	// clear comes through.
	log = append(log, telemetry.RaceControlEvent{
		Time: 760, LapNumber: 10, Category: "SafetyCar", Message: "VIRTUAL SAFETY CAR ENDING",
	})
	assert.Equal(t, telemetry.FlagSafetyCar, ResolveFlag(log, 10))

	log = append(log, telemetry.RaceControlEvent{
		Time: 790, LapNumber: 10, Category: "Flag", Message: "TRACK CLEAR", FlagHint: "CLEAR",
	})
	assert.Equal(t, telemetry.FlagGreen, ResolveFlag(log, 10))
}

func TestResolveFlagUnmatchedMessages(t *testing.T) {
	log := []telemetry.RaceControlEvent{
		{Time: 50, LapNumber: 2, Category: "Other", Message: "DRS ENABLED"},
		{Time: 60, LapNumber: 2, Category: "Other", Message: "CAR 44 TIME DELETED"},
	}
	assert.Equal(t, telemetry.FlagGreen, ResolveFlag(log, 2))
	assert.Equal(t, telemetry.FlagGreen, ResolveFlag(nil, 2))
}
