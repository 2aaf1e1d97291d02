// Package teleop maps gamepad samples onto car control commands and
// republishes the latest command at a fixed rate.
package teleop

import (
	"errors"
	"fmt"
)

// ErrSampleTooShort is the panic value cause when a Joy sample lacks a configured axis.
var ErrSampleTooShort = errors.New("joy sample has too few axes")

// Joy is one input device sample.
type Joy struct {
	TimestampNs int64     `json:"timestamp_ns,omitempty"`
	Axes        []float64 `json:"axes"`
	Buttons     []int32   `json:"buttons,omitempty"`
}

// CarControl is the command published downstream.
type CarControl struct {
	Velocity      float64 `json:"velocity"`
	Acceleration  float64 `json:"acceleration"`
	SteeringAngle float64 `json:"steering_angle"`
}

// IsZero reports whether every field is exactly zero.
func (c CarControl) IsZero() bool {
	return c.Velocity == 0 && c.Acceleration == 0 && c.SteeringAngle == 0
}

func (c CarControl) String() string {
	return fmt.Sprintf("velocity=%.3f acceleration=%.3f steering_angle=%.3f",
		c.Velocity, c.Acceleration, c.SteeringAngle)
}

// AxisMap holds the axis indices read from each sample.
type AxisMap struct {
	Steering int `json:"steering"`
	Brake    int `json:"brake"`
	Throttle int `json:"throttle"`
}

// PS3Axes is the axis layout of a PS3 controller under the Linux joy driver.
var PS3Axes = AxisMap{Steering: 0, Brake: 12, Throttle: 13}

// MinAxes is the smallest sample length that covers every index.
func (m AxisMap) MinAxes() int {
	return max(m.Steering, m.Brake, m.Throttle) + 1
}

func (m AxisMap) validate() error {
	if m.Steering < 0 || m.Brake < 0 || m.Throttle < 0 {
		return fmt.Errorf("negative axis index in %+v", m)
	}
	return nil
}

// Params are read once at startup and never change.
type Params struct {
	VelMax           float64 `json:"vel_max"`
	MaxSteeringAngle float64 `json:"max_steering_angle"`
	Axes             AxisMap `json:"axes"`
}

// DefaultParams returns vel_max=10, max_steering_angle=40 on the PS3 layout.
func DefaultParams() Params {
	return Params{
		VelMax:           10.0,
		MaxSteeringAngle: 40.0,
		Axes:             PS3Axes,
	}
}

// Map converts a sample into a command. It panics with ErrSampleTooShort
// when the sample does not cover every configured axis.
func (p Params) Map(j Joy) CarControl {
	if len(j.Axes) < p.Axes.MinAxes() {
		panic(fmt.Errorf("%w: need %d, got %d", ErrSampleTooShort, p.Axes.MinAxes(), len(j.Axes)))
	}
	return CarControl{
		Velocity:      -j.Axes[p.Axes.Throttle] * p.VelMax,
		Acceleration:  j.Axes[p.Axes.Brake],
		SteeringAngle: -j.Axes[p.Axes.Steering] * p.MaxSteeringAngle,
	}
}
