package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/jacksonchui/Social-Media-Intervention/internal/policy"
)

// Config holds all application configuration values.
type Config struct {
	// Attitude input: "mock", "mqtt", "serial" or "imu"
	AttitudeSource string

	// MQTT
	MQTTBroker   string
	MQTTClientID string
	MQTTPublish  bool // publish alpha updates and finished sessions

	// Topics
	TopicAttitude string // attitudes published by a remote producer
	TopicAlpha    string // alpha updates for overlay clients
	TopicSession  string // finished session models

	// Serial board
	SerialPort     string
	SerialBaudRate int

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// Session policy
	UpdateIntervalMS           int
	IntervalDurationSeconds    int
	ConditionCompleteThreshold float64
	PeriodCompletedRatio       float64
	IncompleteFactor           float64
	ThresholdTolerance         float64

	// Persistence
	StoreBackend   string // sqlite, mysql, postgresql or none
	StoreDSN       string
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string
	YAMLExportDir  string

	// Web Server
	WebServerPort int

	LogLevel string
}

// Keys lists every recognised configuration key. Environment variables
// with these names override the file.
var Keys = []string{
	"ATTITUDE_SOURCE",
	"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_PUBLISH",
	"TOPIC_ATTITUDE", "TOPIC_ALPHA", "TOPIC_SESSION",
	"SERIAL_PORT", "SERIAL_BAUD_RATE",
	"IMU_SPI_DEVICE", "IMU_CS_PIN",
	"UPDATE_INTERVAL_MS", "INTERVAL_DURATION_SECONDS",
	"CONDITION_COMPLETE_THRESHOLD", "PERIOD_COMPLETED_RATIO",
	"INCOMPLETE_FACTOR", "THRESHOLD_TOLERANCE",
	"STORE_BACKEND", "STORE_DSN",
	"CLICKHOUSE_ADDR", "CLICKHOUSE_DB", "CLICKHOUSE_USER", "CLICKHOUSE_PASS",
	"YAML_EXPORT_DIR",
	"WEB_SERVER_PORT",
	"LOG_LEVEL",
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns the configuration used for keys absent from both the
// file and the environment.
func Defaults() *Config {
	p := policy.Default()
	return &Config{
		AttitudeSource:             "mock",
		MQTTBroker:                 "tcp://localhost:1883",
		MQTTClientID:               "intervention",
		TopicAttitude:              "intervention/attitude",
		TopicAlpha:                 "intervention/alpha",
		TopicSession:               "intervention/session",
		SerialBaudRate:             115200,
		UpdateIntervalMS:           int(p.UpdateInterval / time.Millisecond),
		IntervalDurationSeconds:    int(p.IntervalDuration / time.Second),
		ConditionCompleteThreshold: p.ConditionCompleteThreshold,
		PeriodCompletedRatio:       p.PeriodCompletedRatio,
		IncompleteFactor:           p.IncompleteFactor,
		ThresholdTolerance:         p.ThresholdTolerance,
		StoreBackend:               "sqlite",
		StoreDSN:                   "intervention.db",
		WebServerPort:              8080,
		LogLevel:                   "info",
	}
}

// Load reads KEY=VALUE pairs from configPath, applies environment
// overrides and validates the result. A missing file is an error; pass ""
// to use defaults and the environment only.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		values, err := godotenv.Read(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			if err := cfg.setValue(key, values[key]); err != nil {
				return nil, fmt.Errorf("config file %s: %w", configPath, err)
			}
		}
	}

	for _, key := range Keys {
		if value, ok := os.LookupEnv(key); ok {
			if err := cfg.setValue(key, value); err != nil {
				return nil, fmt.Errorf("environment: %w", err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "ATTITUDE_SOURCE":
		c.AttitudeSource = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_PUBLISH":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_PUBLISH %q: %w", value, err)
		}
		c.MQTTPublish = v

	// Topics
	case "TOPIC_ATTITUDE":
		c.TopicAttitude = value
	case "TOPIC_ALPHA":
		c.TopicAlpha = value
	case "TOPIC_SESSION":
		c.TopicSession = value

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return setInt(&c.SerialBaudRate, key, value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Session policy
	case "UPDATE_INTERVAL_MS":
		return setInt(&c.UpdateIntervalMS, key, value)
	case "INTERVAL_DURATION_SECONDS":
		return setInt(&c.IntervalDurationSeconds, key, value)
	case "CONDITION_COMPLETE_THRESHOLD":
		return setFloat(&c.ConditionCompleteThreshold, key, value)
	case "PERIOD_COMPLETED_RATIO":
		return setFloat(&c.PeriodCompletedRatio, key, value)
	case "INCOMPLETE_FACTOR":
		return setFloat(&c.IncompleteFactor, key, value)
	case "THRESHOLD_TOLERANCE":
		return setFloat(&c.ThresholdTolerance, key, value)

	// Persistence
	case "STORE_BACKEND":
		c.StoreBackend = value
	case "STORE_DSN":
		c.StoreDSN = value
	case "CLICKHOUSE_ADDR":
		c.ClickHouseAddr = value
	case "CLICKHOUSE_DB":
		c.ClickHouseDB = value
	case "CLICKHOUSE_USER":
		c.ClickHouseUser = value
	case "CLICKHOUSE_PASS":
		c.ClickHousePass = value
	case "YAML_EXPORT_DIR":
		c.YAMLExportDir = value

	// Web Server
	case "WEB_SERVER_PORT":
		return setInt(&c.WebServerPort, key, value)

	case "LOG_LEVEL":
		c.LogLevel = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// validate checks that the fields required by the chosen inputs are set.
func (c *Config) validate() error {
	switch c.AttitudeSource {
	case "mock":
	case "mqtt":
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required for ATTITUDE_SOURCE=mqtt")
		}
		if c.TopicAttitude == "" {
			return fmt.Errorf("TOPIC_ATTITUDE is required for ATTITUDE_SOURCE=mqtt")
		}
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for ATTITUDE_SOURCE=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	case "imu":
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required for ATTITUDE_SOURCE=imu")
		}
	default:
		return fmt.Errorf("ATTITUDE_SOURCE must be mock, mqtt, serial or imu, got %q", c.AttitudeSource)
	}

	switch c.StoreBackend {
	case "none", "":
	case "sqlite", "mysql", "postgresql":
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for STORE_BACKEND=%s", c.StoreBackend)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be sqlite, mysql, postgresql or none, got %q", c.StoreBackend)
	}

	if c.MQTTPublish && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for MQTT_PUBLISH")
	}

	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}

	return c.Policy().Validate()
}

// Policy converts the session policy fields.
func (c *Config) Policy() policy.Policy {
	return policy.Policy{
		UpdateInterval:             time.Duration(c.UpdateIntervalMS) * time.Millisecond,
		IntervalDuration:           time.Duration(c.IntervalDurationSeconds) * time.Second,
		ConditionCompleteThreshold: c.ConditionCompleteThreshold,
		PeriodCompletedRatio:       c.PeriodCompletedRatio,
		IncompleteFactor:           c.IncompleteFactor,
		ThresholdTolerance:         c.ThresholdTolerance,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
