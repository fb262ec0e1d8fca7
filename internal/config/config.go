// Package config loads gateway configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "250ms"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the full gateway configuration
type Config struct {
	Service struct {
		Name       string `yaml:"name"`
		StationID  string `yaml:"stationId"`
		ListenAddr string `yaml:"listenAddr"`
	} `yaml:"service"`

	Serial struct {
		Port        string   `yaml:"port"`
		BaudRate    int      `yaml:"baudRate"`
		ReadTimeout Duration `yaml:"readTimeout"`
		AutoConnect bool     `yaml:"autoConnect"`
	} `yaml:"serial"`

	Routing struct {
		Mode         string `yaml:"mode"`
		TagPrefix    string `yaml:"tagPrefix"`
		LookupPrefix string `yaml:"lookupPrefix"`
	} `yaml:"routing"`

	Remote struct {
		BaseURL         string   `yaml:"baseUrl"`
		LookupTimeout   Duration `yaml:"lookupTimeout"`
		ClassifyTimeout Duration `yaml:"classifyTimeout"`
		LinkTimeout     Duration `yaml:"linkTimeout"`
	} `yaml:"remote"`

	Keyboard struct {
		InterKeyDelay    Duration `yaml:"interKeyDelay"`
		AppendTerminator bool     `yaml:"appendTerminator"`
	} `yaml:"keyboard"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Mongo struct {
		Enabled  bool   `yaml:"enabled"`
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Tracing struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`
}

// Default returns the built-in defaults
func Default() *Config {
	cfg := &Config{}

	cfg.Service.Name = "scan-gateway"
	cfg.Service.StationID = "STATION-01"
	cfg.Service.ListenAddr = ":8030"

	cfg.Serial.Port = ""
	cfg.Serial.BaudRate = 9600
	cfg.Serial.ReadTimeout = Duration(250 * time.Millisecond)
	cfg.Serial.AutoConnect = false

	cfg.Routing.Mode = "passthrough"
	cfg.Routing.TagPrefix = "TAG-"
	cfg.Routing.LookupPrefix = "LPN-"

	cfg.Remote.BaseURL = "http://localhost:8020"
	cfg.Remote.LookupTimeout = Duration(3 * time.Second)
	cfg.Remote.ClassifyTimeout = Duration(2 * time.Second)
	cfg.Remote.LinkTimeout = Duration(5 * time.Second)

	cfg.Keyboard.InterKeyDelay = Duration(10 * time.Millisecond)
	cfg.Keyboard.AppendTerminator = true

	cfg.Kafka.Enabled = false
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topic = "wms.scan.events"

	cfg.Mongo.Enabled = false
	cfg.Mongo.URI = "mongodb://localhost:27017"
	cfg.Mongo.Database = "scan_gateway"

	cfg.Log.Level = "info"

	cfg.Tracing.Enabled = false
	cfg.Tracing.Endpoint = "localhost:4317"

	return cfg
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment values. A malformed override is an error, not
// a silent fallback to the default.
func (c *Config) applyEnv() error {
	setString(&c.Service.StationID, "STATION_ID")
	setString(&c.Service.ListenAddr, "SERVER_ADDR")

	setString(&c.Serial.Port, "SERIAL_PORT")

	setString(&c.Routing.Mode, "ROUTING_MODE")
	setString(&c.Routing.TagPrefix, "TAG_PREFIX")
	setString(&c.Routing.LookupPrefix, "LOOKUP_PREFIX")

	setString(&c.Remote.BaseURL, "REMOTE_BASE_URL")

	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	setString(&c.Mongo.URI, "MONGODB_URI")
	setString(&c.Mongo.Database, "MONGODB_DATABASE")

	setString(&c.Log.Level, "LOG_LEVEL")

	setString(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	return errors.Join(
		setInt(&c.Serial.BaudRate, "SERIAL_BAUD_RATE"),
		setBool(&c.Serial.AutoConnect, "SERIAL_AUTO_CONNECT"),
		setDuration(&c.Remote.LookupTimeout, "REMOTE_LOOKUP_TIMEOUT"),
		setDuration(&c.Remote.ClassifyTimeout, "REMOTE_CLASSIFY_TIMEOUT"),
		setDuration(&c.Remote.LinkTimeout, "REMOTE_LINK_TIMEOUT"),
		setBool(&c.Kafka.Enabled, "KAFKA_ENABLED"),
		setBool(&c.Mongo.Enabled, "MONGODB_ENABLED"),
		setBool(&c.Tracing.Enabled, "TRACING_ENABLED"),
	)
}

func (c *Config) validate() error {
	switch c.Routing.Mode {
	case "passthrough", "lookup", "pairing":
	default:
		return fmt.Errorf("invalid routing mode %q", c.Routing.Mode)
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Serial.BaudRate)
	}
	return nil
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setInt(target *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", v, key, err)
	}
	*target = parsed
	return nil
}

func setBool(target *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", v, key, err)
	}
	*target = parsed
	return nil
}

func setDuration(target *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", v, key, err)
	}
	*target = Duration(parsed)
	return nil
}
