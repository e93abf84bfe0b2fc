package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// GpsConfig holds the positioning engine settings read at session start.
type GpsConfig struct {
	MinDistanceMeters float64
	PollInterval      time.Duration
	FixTimeout        time.Duration
	AvgSampleCount    int
	AvgInterval       time.Duration
	MockMode          bool
	MockInterval      time.Duration
	// RemoteURL is the websocket endpoint of a live position feed,
	// used when mock mode is off.
	RemoteURL string
}

// InfluxConfig holds the metrics pump settings.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// NotifyConfig holds the websocket snapshot publisher settings.
type NotifyConfig struct {
	WebsocketEnabled bool
	WebsocketURL     string
}

// Defaults for the gps section, used as fallbacks when a configured
// value fails to parse.
const (
	DefaultMinDistanceMeters   = 1.0
	DefaultPollIntervalSeconds = 3
	DefaultFixTimeoutMillis    = 10000
	DefaultAvgSampleCount      = 30
	DefaultAvgIntervalSeconds  = 1
	DefaultMockIntervalMillis  = 1000
)

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./tracklogs")

	viper.SetDefault("gps.minDistanceMeters", DefaultMinDistanceMeters)
	viper.SetDefault("gps.pollIntervalSeconds", DefaultPollIntervalSeconds)
	viper.SetDefault("gps.fixTimeoutMillis", DefaultFixTimeoutMillis)
	viper.SetDefault("gps.avgSampleCount", DefaultAvgSampleCount)
	viper.SetDefault("gps.avgIntervalSeconds", DefaultAvgIntervalSeconds)
	viper.SetDefault("gps.mockMode", false)
	viper.SetDefault("gps.mockIntervalMillis", DefaultMockIntervalMillis)
	viper.SetDefault("gps.remoteUrl", "ws://localhost:5002/gps")
	viper.SetDefault("gps.mock.startLat", 46.066)
	viper.SetDefault("gps.mock.startLon", 11.121)
	viper.SetDefault("gps.mock.startAlt", 194.0)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tracklog")
	viper.SetDefault("db.sqlitePath", "")
	viper.SetDefault("db.dumpInterval", "3m")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "tracklog-metrics")
	viper.SetDefault("influx.bucket", "gps_sessions")

	viper.SetDefault("logging.autoStart", false)
	viper.SetDefault("logging.name", "tracklog")
	viper.SetDefault("logging.width", 3)
	viper.SetDefault("logging.color", "red")
	viper.SetDefault("logging.continueLast", false)

	viper.SetDefault("notify.websocket.enabled", false)
	viper.SetDefault("notify.websocket.url", "ws://localhost:5001/status")

	viper.SetConfigName("tracklog.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetGpsConfig returns the gps section as a typed struct. A value that
// fails to parse falls back to its documented default rather than
// aborting the caller: a broken preference must never stop a session
// from starting.
func GetGpsConfig() GpsConfig {
	return GpsConfig{
		MinDistanceMeters: positiveFloat("gps.minDistanceMeters", DefaultMinDistanceMeters),
		PollInterval:      time.Duration(positiveInt("gps.pollIntervalSeconds", DefaultPollIntervalSeconds)) * time.Second,
		FixTimeout:        time.Duration(positiveInt("gps.fixTimeoutMillis", DefaultFixTimeoutMillis)) * time.Millisecond,
		AvgSampleCount:    positiveInt("gps.avgSampleCount", DefaultAvgSampleCount),
		AvgInterval:       time.Duration(positiveInt("gps.avgIntervalSeconds", DefaultAvgIntervalSeconds)) * time.Second,
		MockMode:          viper.GetBool("gps.mockMode"),
		MockInterval:      time.Duration(positiveInt("gps.mockIntervalMillis", DefaultMockIntervalMillis)) * time.Millisecond,
		RemoteURL:         viper.GetString("gps.remoteUrl"),
	}
}

// GetInfluxConfig returns the influx section as a typed struct.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetNotifyConfig returns the notify section as a typed struct.
func GetNotifyConfig() NotifyConfig {
	return NotifyConfig{
		WebsocketEnabled: viper.GetBool("notify.websocket.enabled"),
		WebsocketURL:     viper.GetString("notify.websocket.url"),
	}
}

// GetDumpInterval returns the in-memory DB disk dump interval.
func GetDumpInterval() time.Duration {
	d, err := time.ParseDuration(viper.GetString("db.dumpInterval"))
	if err != nil || d <= 0 {
		return 3 * time.Minute
	}
	return d
}

func positiveFloat(key string, fallback float64) float64 {
	v := viper.GetFloat64(key)
	if v <= 0 {
		return fallback
	}
	return v
}

func positiveInt(key string, fallback int) int {
	v := viper.GetInt(key)
	if v <= 0 {
		return fallback
	}
	return v
}
