package replay

import (
	"strings"

	"github.com/alexkamer/Pit-Wall-Pro/internal/telemetry"
)

// ResolveFlag derives the track status for the given lap from the
// race-control log. Events are filtered to the one-lap look-back window
// [lapNumber-1, lapNumber], which limits flicker on sparse messages; the
// most recent matching event decides. Messages are free text, so
// matching is best effort; anything unmatched resolves to GREEN.
func ResolveFlag(log []telemetry.RaceControlEvent, lapNumber int) telemetry.FlagState {
	// The log is time-ordered, so walk it backwards and stop at the
	// first event that both falls in the window and matches a pattern.
	for i := len(log) - 1; i >= 0; i-- {
		ev := log[i]
		if ev.LapNumber < lapNumber-1 || ev.LapNumber > lapNumber {
			continue
		}
		if state, ok := classifyEvent(ev); ok {
			return state
		}
	}
	return telemetry.FlagGreen
}

// classifyEvent pattern-matches one race-control event against the known
// flag hints and message phrasings.
func classifyEvent(ev telemetry.RaceControlEvent) (telemetry.FlagState, bool) {
	msg := strings.ToUpper(ev.Message)

	// Safety car phases come through as SafetyCar category messages or
	// free text; the virtual safety car collapses into SAFETY_CAR. The
	// ending and in-this-lap phases still neutralize the track, so only
	// an explicit clear or green event lifts the flag.
	if strings.EqualFold(ev.Category, "SafetyCar") || strings.Contains(msg, "SAFETY CAR") {
		return telemetry.FlagSafetyCar, true
	}

	switch strings.ToUpper(ev.FlagHint) {
	case "RED":
		return telemetry.FlagRed, true
	case "YELLOW", "DOUBLE YELLOW":
		return telemetry.FlagYellow, true
	case "CLEAR", "GREEN", "CHEQUERED":
		return telemetry.FlagGreen, true
	}

	switch {
	case strings.Contains(msg, "RED FLAG"):
		return telemetry.FlagRed, true
	case strings.Contains(msg, "YELLOW"):
		return telemetry.FlagYellow, true
	case strings.Contains(msg, "TRACK CLEAR"), strings.Contains(msg, "GREEN"):
		return telemetry.FlagGreen, true
	}
	return "", false
}
