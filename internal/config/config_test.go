package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "scan-gateway", cfg.Service.Name)
	assert.Equal(t, ":8030", cfg.Service.ListenAddr)
	assert.Equal(t, "passthrough", cfg.Routing.Mode)
	assert.Equal(t, "TAG-", cfg.Routing.TagPrefix)
	assert.Equal(t, "LPN-", cfg.Routing.LookupPrefix)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout.Std())
	assert.Equal(t, 3*time.Second, cfg.Remote.LookupTimeout.Std())
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Mongo.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
service:
  stationId: STATION-07
  listenAddr: ":9000"
serial:
  port: /dev/ttyUSB0
  baudRate: 115200
  readTimeout: 100ms
routing:
  mode: pairing
  tagPrefix: XR-
remote:
  baseUrl: http://wes:8020
  lookupTimeout: 1500ms
kafka:
  enabled: true
  brokers: [kafka-1:9092, kafka-2:9092]
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "STATION-07", cfg.Service.StationID)
	assert.Equal(t, ":9000", cfg.Service.ListenAddr)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout.Std())
	assert.Equal(t, "pairing", cfg.Routing.Mode)
	assert.Equal(t, "XR-", cfg.Routing.TagPrefix)
	assert.Equal(t, "http://wes:8020", cfg.Remote.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Remote.LookupTimeout.Std())
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)

	// Untouched sections keep their defaults
	assert.Equal(t, "LPN-", cfg.Routing.LookupPrefix)
	assert.Equal(t, 5*time.Second, cfg.Remote.LinkTimeout.Std())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
routing:
  mode: lookup
serial:
  port: /dev/ttyUSB0
`)

	t.Setenv("ROUTING_MODE", "pairing")
	t.Setenv("SERIAL_PORT", "COM3")
	t.Setenv("REMOTE_LOOKUP_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "pairing", cfg.Routing.Mode)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Remote.LookupTimeout.Std())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsMalformedEnvOverride(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "baud rate not a number", key: "SERIAL_BAUD_RATE", value: "fast"},
		{name: "timeout not a duration", key: "REMOTE_LOOKUP_TIMEOUT", value: "soon"},
		{name: "enabled flag not a bool", key: "KAFKA_ENABLED", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			// A bad override must fail loudly, not fall back to the default
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	path := writeConfig(t, "routing:\n  mode: turbo\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid routing mode")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := writeConfig(t, "serial:\n  readTimeout: soon\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
