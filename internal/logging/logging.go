// Package logging wires slog output to console, a rotating session log
// file, an optional Graylog endpoint, and the OTel log pipeline.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Manager owns the configured logger and any sinks that need flushing.
type Manager struct {
	logger *slog.Logger

	logProvider *sdklog.LoggerProvider
	gelfWriter  *gelf.Writer
}

// NewManager creates an unconfigured logging manager. Logger() falls back
// to slog.Default until Setup is called.
func NewManager() *Manager {
	return &Manager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. file, graylogAddr, and provider
// are each optional; the console handler is always installed.
func (m *Manager) Setup(file io.Writer, level, graylogAddr string, provider *sdklog.LoggerProvider) error {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	if graylogAddr != "" {
		w, err := gelf.NewWriter(graylogAddr)
		if err != nil {
			return fmt.Errorf("connecting to graylog at %s: %w", graylogAddr, err)
		}
		m.gelfWriter = w
		handlers = append(handlers, NewGelfHandler(w, lvl))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("pitwall",
			otelslog.WithLoggerProvider(provider)))
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", level)
	return nil
}

// Logger returns the configured slog.Logger.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of the OTel log pipeline if one is attached.
func (m *Manager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// LogFilePath builds a per-run log file path under logsDir.
func LogFilePath(logsDir string, startedAt time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("pitwall.%s.log", startedAt.Format("20060102_150405")),
	)
}
