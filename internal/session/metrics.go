package session

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/alexkamer/Pit-Wall-Pro/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments bundles the playback metrics shared by all sessions.
// The global meter provider returns no-op instruments when OTel is not
// configured.
type instruments struct {
	framesBuilt   metric.Int64Counter
	framesDropped metric.Int64Counter
	commands      metric.Int64Counter
	frameBuildMs  metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := meter()
	ins := &instruments{}
	var err error

	ins.framesBuilt, err = m.Int64Counter(
		"session.frames.built",
		metric.WithDescription("Total snapshot frames built"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	ins.framesDropped, err = m.Int64Counter(
		"session.frames.dropped",
		metric.WithDescription("Frames dropped due to slow viewers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	ins.commands, err = m.Int64Counter(
		"session.commands.processed",
		metric.WithDescription("Control commands applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	ins.frameBuildMs, err = m.Float64Histogram(
		"session.frame.build_ms",
		metric.WithDescription("Snapshot build duration in milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating build histogram: %w", err)
	}

	return ins, nil
}
