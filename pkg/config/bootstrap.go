package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFilename is the file looked up inside the config directory.
const BootstrapFilename = "teleop_bridge.yaml"

// BootstrapConfig holds the configuration loaded from teleop_bridge.yaml
type BootstrapConfig struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	ZeroMQ  ZeroMQConfig  `yaml:"zeromq" json:"zeromq"`
	Teleop  TeleopConfig  `yaml:"teleop" json:"teleop"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path,omitempty" json:"log_path,omitempty"`
}

// ServerConfig holds the status API settings. A zero port disables the HTTP server.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port" json:"http_port"`
}

// ZeroMQConfig holds the socket endpoints
type ZeroMQConfig struct {
	JoyConnectAddress  string `yaml:"joy_connect_address" json:"joy_connect_address"`
	CommandBindAddress string `yaml:"command_bind_address" json:"command_bind_address"`
	RequestBindAddress string `yaml:"request_bind_address" json:"request_bind_address"`
	QueueDepth         int    `yaml:"queue_depth" json:"queue_depth"`
}

// MetricsConfig toggles OpenTelemetry instrumentation
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns a BootstrapConfig populated with the documented defaults.
func Default() *BootstrapConfig {
	return &BootstrapConfig{
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{HTTPPort: 8080},
		ZeroMQ: ZeroMQConfig{
			JoyConnectAddress:  "tcp://localhost:5560",
			CommandBindAddress: "tcp://*:5561",
			RequestBindAddress: "tcp://*:5562",
			QueueDepth:         DefaultQueueDepth,
		},
		Teleop:  DefaultTeleopConfig(),
		Metrics: MetricsConfig{Enabled: true},
	}
}

// LoadBootstrapConfig loads teleop_bridge.yaml from configDir. A missing file
// yields the defaults; keys absent from the file keep their default values.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	path := filepath.Join(configDir, BootstrapFilename)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*BootstrapConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the defaults cannot repair.
func (c *BootstrapConfig) Validate() error {
	if c.ZeroMQ.QueueDepth < 1 {
		return fmt.Errorf("invalid value in bootstrap config: zeromq.queue_depth must be at least 1, got %d", c.ZeroMQ.QueueDepth)
	}
	if c.ZeroMQ.JoyConnectAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.joy_connect_address")
	}
	if c.ZeroMQ.CommandBindAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.command_bind_address")
	}
	return c.Teleop.Validate()
}
