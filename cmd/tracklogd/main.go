// Command tracklogd runs the track logging daemon: it consumes a
// position provider, records decimated track logs into Postgres or
// SQLite and publishes state snapshots.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/geopaparazzi/tracklog/internal/config"
	"github.com/geopaparazzi/tracklog/internal/database"
	"github.com/geopaparazzi/tracklog/internal/gps"
	"github.com/geopaparazzi/tracklog/internal/influx"
	"github.com/geopaparazzi/tracklog/internal/logging"
	"github.com/geopaparazzi/tracklog/internal/monitor"
	"github.com/geopaparazzi/tracklog/internal/notify"
	"github.com/geopaparazzi/tracklog/internal/provider"
	"github.com/geopaparazzi/tracklog/internal/recorder"
	"github.com/geopaparazzi/tracklog/internal/storage/gormstore"
)

var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

func main() {
	configDir := flag.String("config", ".", "directory containing tracklog.cfg.json")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tracklogd %s (built %s)\n", Version, BuildDate)
		return
	}

	if err := run(*configDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	cfgErr := config.Load(configDir)

	logFile, err := logging.OpenLogFile()
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log := logging.Setup(logFile)

	log.Info().Str("version", Version).Str("buildDate", BuildDate).Msg("tracklogd starting")
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("config file not loaded, using defaults")
	}

	// database and store
	db := database.NewManager(log)
	if err := db.Connect(); err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	if err := db.Setup(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	store := gormstore.New(db.DB, log)

	dumpStop := make(chan struct{})
	defer close(dumpStop)
	if db.ShouldSaveLocal && db.SqliteFilePath == "" {
		// in-memory SQLite: dump periodically so a crash loses minutes,
		// not the whole session
		dumpPath := filepath.Join(viper.GetString("logsDir"), "tracklog.db")
		db.StartDumpLoop(dumpPath, config.GetDumpInterval(), dumpStop)
	}

	// snapshot fan-out
	bus := notify.NewBus()
	defer bus.Close()

	notifyCfg := config.GetNotifyConfig()
	if notifyCfg.WebsocketEnabled {
		pub, err := notify.NewWebsocketPublisher(log, bus, notifyCfg.WebsocketURL)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot publisher unavailable")
		} else {
			defer pub.Close()
		}
	}

	// metrics
	var influxMgr *influx.Manager
	if config.GetBool("influx.enabled") {
		influxMgr = influx.NewManager(log, filepath.Join(viper.GetString("logsDir"), "metrics_backup.gz"))
		if err := influxMgr.Connect(); err != nil {
			log.Warn().Err(err).Msg("influx unavailable, metrics disabled")
			influxMgr = nil
		} else {
			defer influxMgr.Close()
		}
	}

	mon := monitor.NewService(monitor.Dependencies{
		Bus:        bus,
		Influx:     influxMgr,
		StatusPath: filepath.Join(viper.GetString("logsDir"), "status.json"),
		Logger:     log,
	})
	if err := mon.Start(); err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}
	defer mon.Stop()

	// positioning
	gpsCfg := config.GetGpsConfig()
	svc, err := gps.New(log, gpsCfg, newProvider(log, gpsCfg), store, bus)
	if err != nil {
		return fmt.Errorf("creating gps service: %w", err)
	}
	if err := svc.Open(); err != nil {
		return fmt.Errorf("opening gps service: %w", err)
	}
	defer svc.Close()

	if viper.GetBool("logging.autoStart") {
		opts := recorder.Options{
			Text:         viper.GetString("logging.name"),
			Width:        float32(viper.GetFloat64("logging.width")),
			Color:        viper.GetString("logging.color"),
			ContinueLast: viper.GetBool("logging.continueLast"),
		}
		if err := svc.StartLogging(opts); err != nil {
			log.Error().Err(err).Msg("could not auto-start logging")
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Stringer("signal", s).Msg("shutting down")

	svc.StopLogging()
	return nil
}

func newProvider(log zerolog.Logger, cfg config.GpsConfig) provider.Provider {
	if cfg.MockMode {
		return provider.NewMock(log, provider.MockConfig{
			StartLat: viper.GetFloat64("gps.mock.startLat"),
			StartLon: viper.GetFloat64("gps.mock.startLon"),
			StartAlt: viper.GetFloat64("gps.mock.startAlt"),
			Interval: cfg.MockInterval,
		})
	}
	return provider.NewRemote(log, cfg.RemoteURL)
}
