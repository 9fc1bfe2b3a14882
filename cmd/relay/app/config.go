package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/rf-relay/internal/hw"
	"github.com/roman-kulish/rf-relay/internal/lora"
	"github.com/roman-kulish/rf-relay/internal/logging"
	"github.com/roman-kulish/rf-relay/internal/mirror"
	"github.com/roman-kulish/rf-relay/internal/power"
	"github.com/roman-kulish/rf-relay/internal/scan"
	"github.com/roman-kulish/rf-relay/internal/telemetry"
)

const (
	LogFormatText = logging.FormatText
	LogFormatJSON = logging.FormatJSON
	LogFormatTint = logging.FormatTint
)

// Config represents the relay configuration
type Config struct {
	Settings Settings       `yaml:"settings" json:"settings"`
	Hardware hw.Config      `yaml:"hardware" json:"hardware"`
	Radio    lora.Config    `yaml:"radio" json:"radio"`
	Receiver power.Config   `yaml:"receiver" json:"receiver"`
	Scan     scan.Config    `yaml:"scan" json:"scan"`
	Attitude AttitudeConfig `yaml:"attitude" json:"attitude"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Mirror   mirror.Config  `yaml:"mirror" json:"mirror"`
}

// Settings represents global relay settings
type Settings struct {
	DeviceID  string     `yaml:"deviceID" json:"deviceID"`
	LogLevel  slog.Level `yaml:"logLevel" json:"logLevel"`
	LogFormat string     `yaml:"logFormat" json:"logFormat"`
}

// AttitudeConfig represents the attitude link. When disabled every sample carries heading 0.
type AttitudeConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	telemetry.Config `yaml:",inline"`
}

// StorageConfig represents the flight recorder settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	DataDirectory string `yaml:"dataDirectory" json:"dataDirectory"`
}

// DefaultConfig returns the reference configuration: 915 MHz at 20 dBm, 2 Hz cadence.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			DeviceID:  "relay",
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Hardware: hw.DefaultConfig(),
		Radio:    lora.DefaultConfig(),
		Receiver: power.DefaultConfig(),
		Scan:     scan.DefaultConfig(),
		Attitude: AttitudeConfig{Enabled: true, Config: telemetry.DefaultConfig()},
		Storage:  StorageConfig{Enabled: true, DataDirectory: "data"},
		Mirror:   mirror.DefaultConfig(),
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Settings.DeviceID == "" {
		return errors.New("settings: device ID is required")
	}
	if !logging.Valid(c.Settings.LogFormat) {
		return fmt.Errorf("settings: unknown log format %q", c.Settings.LogFormat)
	}

	validators := []interface{ Validate() error }{
		&c.Hardware,
		&c.Radio,
		&c.Receiver,
		&c.Scan,
		&c.Mirror,
	}
	if c.Attitude.Enabled {
		validators = append(validators, &c.Attitude.Config)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
