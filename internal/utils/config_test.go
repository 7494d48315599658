package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/fleet-locator/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://broker:1883
  username: locator
services:
  ingest:
    enabled: true
    qos: 1
  location_service:
    enabled: true
    topic: fleet/locations
    interval: 15s
    workers: 8
api:
  enabled: true
  allowed_origins: ["http://localhost:5173"]
`)
	t.Setenv("MQTT_PASSWORD", "from-env")

	cfg, err := LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "from-env", cfg.MQTT.Password)
	assert.Equal(t, "fleet-locator", cfg.MQTT.ClientID)
	assert.Equal(t, "telemetry/#", cfg.Services.Ingest.TelemetryTopic)
	assert.Equal(t, 1, cfg.Services.Ingest.QOS)
	assert.Equal(t, "fleet/locations", cfg.Services.Location.Topic)
	assert.Equal(t, 15*time.Second, cfg.Services.Location.Interval)
	assert.Equal(t, 8, cfg.Services.Location.Workers)
	assert.Equal(t, ":8081", cfg.API.ListenAddress)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
services:
  ingest:
    enabled: true
    qos: 3
  geolocation:
    enabled: true
  gps:
    enabled: true
influxdb:
  enabled: true
`)
	t.Setenv("MAPS_API_KEY", "")

	_, err := LoadConfig(path, file.NewFileService())
	require.Error(t, err)
	assert.ErrorContains(t, err, "mqtt.broker is required")
	assert.ErrorContains(t, err, "qos must be 0, 1 or 2")
	assert.ErrorContains(t, err, "maps_api_key is required")
	assert.ErrorContains(t, err, "gps_device_port is required")
	assert.ErrorContains(t, err, "influxdb.url and influxdb.bucket")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), file.NewFileService())
	assert.Error(t, err)
}

func TestConfig_ApplyEnv(t *testing.T) {
	var cfg Config
	cfg.InfluxDB.Token = "yaml-token"
	env := map[string]string{"MAPS_API_KEY": "key", "INFLUXDB_TOKEN": "env-token"}

	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "key", cfg.Services.Geolocation.MapsAPIKey)
	assert.Equal(t, "env-token", cfg.InfluxDB.Token)
	assert.Empty(t, cfg.MQTT.Password)
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FLEET_LOCATOR_TEST_VAR=hello\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("FLEET_LOCATOR_TEST_VAR") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("FLEET_LOCATOR_TEST_VAR"))
}
