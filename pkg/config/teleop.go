package config

import (
	"fmt"
	"time"
)

// Defaults for values that may be omitted from the config file.
const (
	DefaultVelMax           = 10.0
	DefaultMaxSteeringAngle = 40.0
	DefaultPublishPeriodMs  = 100
	DefaultQueueDepth       = 10
	DefaultJoyTopic         = "joy"
	DefaultCommandTopic     = "cmd_car"
	DefaultCodec            = CodecFlatbuffers
)

// Supported wire codecs.
const (
	CodecFlatbuffers = "flatbuffers"
	CodecJSON        = "json"
)

// TeleopConfig holds the mapping limits and the channel names.
type TeleopConfig struct {
	VelMax           float64 `yaml:"vel_max" json:"vel_max"`
	MaxSteeringAngle float64 `yaml:"max_steering_angle" json:"max_steering_angle"`
	PublishPeriodMs  int     `yaml:"publish_period_ms" json:"publish_period_ms"`
	JoyTopic         string  `yaml:"joy_topic" json:"joy_topic"`
	CommandTopic     string  `yaml:"command_topic" json:"command_topic"`
	Codec            string  `yaml:"codec" json:"codec"`
}

// DefaultTeleopConfig returns the teleop section defaults.
func DefaultTeleopConfig() TeleopConfig {
	return TeleopConfig{
		VelMax:           DefaultVelMax,
		MaxSteeringAngle: DefaultMaxSteeringAngle,
		PublishPeriodMs:  DefaultPublishPeriodMs,
		JoyTopic:         DefaultJoyTopic,
		CommandTopic:     DefaultCommandTopic,
		Codec:            DefaultCodec,
	}
}

// PublishPeriod returns the publish tick interval.
func (c TeleopConfig) PublishPeriod() time.Duration {
	return time.Duration(c.PublishPeriodMs) * time.Millisecond
}

// Validate rejects settings the bridge cannot run with.
func (c TeleopConfig) Validate() error {
	if c.PublishPeriodMs <= 0 {
		return fmt.Errorf("invalid value in bootstrap config: teleop.publish_period_ms must be positive, got %d", c.PublishPeriodMs)
	}
	switch c.Codec {
	case CodecFlatbuffers, CodecJSON:
	default:
		return fmt.Errorf("invalid value in bootstrap config: teleop.codec %q (want %q or %q)", c.Codec, CodecFlatbuffers, CodecJSON)
	}
	if c.CommandTopic == "" {
		return fmt.Errorf("missing required field in bootstrap config: teleop.command_topic")
	}
	return nil
}
