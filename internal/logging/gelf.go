package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// GelfHandler forwards slog records to a Graylog GELF writer.
type GelfHandler struct {
	writer *gelf.Writer
	level  slog.Level
	host   string
	attrs  []slog.Attr
}

// NewGelfHandler creates a handler writing records at or above level.
func NewGelfHandler(writer *gelf.Writer, level slog.Level) *GelfHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "pitwall"
	}
	return &GelfHandler{
		writer: writer,
		level:  level,
		host:   host,
	}
}

// Enabled reports whether the record level meets the handler threshold.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record into a GELF message and writes it.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+a.Key] = a.Value.Any()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(r.Level),
		Extra:    extra,
	})
}

// WithAttrs returns a handler that attaches attrs to every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &GelfHandler{
		writer: h.writer,
		level:  h.level,
		host:   h.host,
		attrs:  merged,
	}
}

// WithGroup is accepted but groups are flattened into the extra map.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	return h
}

// syslog severities used by GELF.
const (
	sevErr     int32 = 3
	sevWarning int32 = 4
	sevInfo    int32 = 6
	sevDebug   int32 = 7
)

// syslogLevel maps slog levels onto the syslog severities GELF expects.
func syslogLevel(level slog.Level) int32 {
	switch {
	case level >= slog.LevelError:
		return sevErr
	case level >= slog.LevelWarn:
		return sevWarning
	case level >= slog.LevelInfo:
		return sevInfo
	default:
		return sevDebug
	}
}
