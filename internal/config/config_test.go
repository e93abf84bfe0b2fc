package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracklog.cfg.json"), []byte(content), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"gps": { "minDistanceMeters": 5.0, "pollIntervalSeconds": 10 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 5.0, viper.GetFloat64("gps.minDistanceMeters"))
	assert.Equal(t, 10, viper.GetInt("gps.pollIntervalSeconds"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./tracklogs", viper.GetString("logsDir"))
	assert.Equal(t, 1.0, viper.GetFloat64("gps.minDistanceMeters"))
	assert.Equal(t, 3, viper.GetInt("gps.pollIntervalSeconds"))
	assert.Equal(t, 10000, viper.GetInt("gps.fixTimeoutMillis"))
	assert.Equal(t, false, viper.GetBool("gps.mockMode"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "tracklog", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("notify.websocket.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetGpsConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{}`)
	require.NoError(t, Load(dir))

	cfg := GetGpsConfig()
	assert.Equal(t, 1.0, cfg.MinDistanceMeters)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.FixTimeout)
	assert.Equal(t, 30, cfg.AvgSampleCount)
	assert.Equal(t, time.Second, cfg.AvgInterval)
	assert.Equal(t, false, cfg.MockMode)
	assert.Equal(t, time.Second, cfg.MockInterval)
}

func TestGetGpsConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"gps": {
			"minDistanceMeters": 2.5,
			"pollIntervalSeconds": 5,
			"fixTimeoutMillis": 20000,
			"avgSampleCount": 60,
			"mockMode": true
		}
	}`)
	require.NoError(t, Load(dir))

	cfg := GetGpsConfig()
	assert.Equal(t, 2.5, cfg.MinDistanceMeters)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 20*time.Second, cfg.FixTimeout)
	assert.Equal(t, 60, cfg.AvgSampleCount)
	assert.Equal(t, true, cfg.MockMode)
}

func TestGetGpsConfig_UnparsableFallsBack(t *testing.T) {
	t.Cleanup(viper.Reset)

	// non-numeric and negative values degrade to the documented defaults
	dir := writeConfig(t, `{
		"gps": {
			"minDistanceMeters": "not-a-number",
			"pollIntervalSeconds": -4,
			"fixTimeoutMillis": 0
		}
	}`)
	require.NoError(t, Load(dir))

	cfg := GetGpsConfig()
	assert.Equal(t, 1.0, cfg.MinDistanceMeters)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.FixTimeout)
}

func TestGetInfluxConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"influx": {
			"enabled": true,
			"host": "influx.local",
			"token": "secret",
			"bucket": "tracks"
		}
	}`)
	require.NoError(t, Load(dir))

	ic := GetInfluxConfig()
	assert.Equal(t, true, ic.Enabled)
	assert.Equal(t, "influx.local", ic.Host)
	assert.Equal(t, "secret", ic.Token)
	assert.Equal(t, "tracks", ic.Bucket)
}

func TestGetDumpInterval(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{ "db": { "dumpInterval": "10m" } }`)
	require.NoError(t, Load(dir))

	assert.Equal(t, 10*time.Minute, GetDumpInterval())
}

func TestGetDumpInterval_InvalidFallsBack(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{ "db": { "dumpInterval": "soon" } }`)
	require.NoError(t, Load(dir))

	assert.Equal(t, 3*time.Minute, GetDumpInterval())
}
