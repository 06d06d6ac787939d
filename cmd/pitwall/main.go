package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/alexkamer/Pit-Wall-Pro/internal/config"
	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
	"github.com/alexkamer/Pit-Wall-Pro/internal/influx"
	"github.com/alexkamer/Pit-Wall-Pro/internal/logging"
	intOtel "github.com/alexkamer/Pit-Wall-Pro/internal/otel"
)

// CurrentVersion and BuildDate can be set at build time via ldflags.
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

var (
	SessionStartTime time.Time = time.Now()

	LogManager *logging.Manager
	Logger     *slog.Logger

	OTelProvider *intOtel.Provider

	DBManager     *database.Manager
	InfluxManager *influx.Manager

	logFile *os.File
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "version":
		fmt.Printf("pitwall %s (built %s)\n", CurrentVersion, BuildDate)
	default:
		usage()
		os.Exit(2)
	}

	teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: pitwall <command> [flags]

commands:
  serve    run the replay server
  import   import races from the timing service or local files
  export   export an archived race as gzipped JSON
  version  print version`)
}

// setup loads config and brings up logging, OTel and the database in
// that order. It is called by every command before doing work.
func setup(configDir string) error {
	LogManager = logging.NewManager()
	if err := LogManager.Setup(os.Stdout, "info", "", nil); err != nil {
		return fmt.Errorf("initial logging setup: %w", err)
	}
	Logger = LogManager.Logger()

	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0o755)
	}

	logFilePath := logging.LogFilePath(logsDir, SessionStartTime)
	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", logFilePath)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	graylogAddr := ""
	if config.GetBool("graylog.enabled") {
		graylogAddr = config.GetString("graylog.address")
	}
	if err := LogManager.Setup(logFile, config.GetString("logLevel"), graylogAddr, otelLogProvider); err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}
	Logger = LogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath, "version", CurrentVersion)

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	DBManager = database.NewManager(zlog)
	if err := DBManager.Connect(config.GetDBConfig()); err != nil {
		Logger.Error("Failed to connect to any database", "error", err)
	} else if err := DBManager.Setup(); err != nil {
		return fmt.Errorf("database setup: %w", err)
	}

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backupPath := filepath.Join(viper.GetString("dataDir"),
			fmt.Sprintf("influx_backup_%s.gz", SessionStartTime.Format("20060102_150405")))
		InfluxManager = influx.NewManager(zlog, backupPath)
		if err := InfluxManager.Connect(influxCfg); err != nil {
			Logger.Warn("Influx unavailable, points go to local backup", "error", err)
		}
	}

	return nil
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if InfluxManager != nil {
		InfluxManager.Flush()
	}
	if LogManager != nil {
		LogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		OTelProvider.Shutdown(ctx)
	}
	if logFile != nil {
		logFile.Close()
	}
}
