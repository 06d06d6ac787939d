package replay

import (
	"errors"
	"fmt"
)

// Clock errors. These are local, recoverable conditions: the current
// time is never affected by a rejected call.
var (
	ErrClockNotRunning = errors.New("clock is not running")
	ErrInvalidSpeed    = errors.New("speed multiplier must be positive")
	ErrNegativeDelta   = errors.New("tick delta must not be negative")
)

// ClockState is the playback state machine.
type ClockState int

const (
	ClockStopped ClockState = iota
	ClockRunning
	ClockEnded
)

func (s ClockState) String() string {
	switch s {
	case ClockStopped:
		return "stopped"
	case ClockRunning:
		return "running"
	case ClockEnded:
		return "ended"
	default:
		return fmt.Sprintf("ClockState(%d)", int(s))
	}
}

// Clock is the single mutable time cursor of a replay session. It is
// advanced cooperatively by an external frame scheduler calling Tick, or
// moved directly by Seek. The clock itself is not goroutine safe; one
// session owns one clock.
type Clock struct {
	current float64
	speed   float64
	total   float64
	state   ClockState
}

// NewClock creates a stopped clock at time zero covering [0, totalDuration].
func NewClock(totalDuration float64) *Clock {
	if totalDuration < 0 {
		totalDuration = 0
	}
	return &Clock{speed: 1, total: totalDuration}
}

// CurrentTime returns the playback cursor in race seconds.
func (c *Clock) CurrentTime() float64 { return c.current }

// Speed returns the current wall-clock multiplier.
func (c *Clock) Speed() float64 { return c.speed }

// State returns the playback state.
func (c *Clock) State() ClockState { return c.state }

// TotalDuration returns the replay length in race seconds.
func (c *Clock) TotalDuration() float64 { return c.total }

// Play starts playback. Playing from the end of the replay rewinds to
// zero first; playing while already running is a no-op.
func (c *Clock) Play() {
	if c.state == ClockRunning {
		return
	}
	if c.current >= c.total {
		c.current = 0
	}
	c.state = ClockRunning
}

// Pause stops playback, holding the cursor in place.
func (c *Clock) Pause() {
	if c.state == ClockRunning {
		c.state = ClockStopped
	}
}

// Seek moves the cursor to t, clamped to [0, totalDuration], and always
// leaves playback paused so scrubbing stays independent of frame timing.
// A seek clamped to the very end lands in the ended state.
func (c *Clock) Seek(t float64) {
	switch {
	case t < 0:
		t = 0
	case t > c.total:
		t = c.total
	}
	c.current = t
	if c.current >= c.total && c.total > 0 {
		c.state = ClockEnded
	} else {
		c.state = ClockStopped
	}
}

// Tick advances the cursor by delta wall-clock seconds scaled by the
// speed multiplier. It is only valid while running; a tick that reaches
// the end of the replay transitions to the ended state.
func (c *Clock) Tick(delta float64) error {
	if c.state != ClockRunning {
		return ErrClockNotRunning
	}
	if delta < 0 {
		return ErrNegativeDelta
	}
	c.current += delta * c.speed
	if c.current >= c.total {
		c.current = c.total
		c.state = ClockEnded
	}
	return nil
}

// SetSpeed changes the wall-clock multiplier for future ticks. Valid in
// any state; non-positive multipliers are rejected.
func (c *Clock) SetSpeed(multiplier float64) error {
	if multiplier <= 0 {
		return ErrInvalidSpeed
	}
	c.speed = multiplier
	return nil
}
