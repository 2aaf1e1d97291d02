package codec

import (
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/config"
	"github.com/open-teleop/teleop-bridge/pkg/flatbuffers/open_teleop/control"
)

// minTableSize is a root offset plus a vtable offset.
const minTableSize = 8

// FlatbuffersCodec encodes the control.Joy and control.CarControl tables.
type FlatbuffersCodec struct {
	now func() time.Time
}

// NewFlatbuffersCodec creates the default codec.
func NewFlatbuffersCodec() *FlatbuffersCodec {
	return &FlatbuffersCodec{now: time.Now}
}

func (c *FlatbuffersCodec) Name() string { return config.CodecFlatbuffers }

func (c *FlatbuffersCodec) EncodeJoy(j teleop.Joy) ([]byte, error) {
	builder := flatbuffers.NewBuilder(64 + 8*len(j.Axes) + 4*len(j.Buttons))

	control.JoyStartButtonsVector(builder, len(j.Buttons))
	for i := len(j.Buttons) - 1; i >= 0; i-- {
		builder.PrependInt32(j.Buttons[i])
	}
	buttons := builder.EndVector(len(j.Buttons))

	control.JoyStartAxesVector(builder, len(j.Axes))
	for i := len(j.Axes) - 1; i >= 0; i-- {
		builder.PrependFloat64(j.Axes[i])
	}
	axes := builder.EndVector(len(j.Axes))

	ts := j.TimestampNs
	if ts == 0 {
		ts = c.now().UnixNano()
	}

	control.JoyStart(builder)
	control.JoyAddTimestampNs(builder, ts)
	control.JoyAddAxes(builder, axes)
	control.JoyAddButtons(builder, buttons)
	builder.Finish(control.JoyEnd(builder))

	return builder.FinishedBytes(), nil
}

func (c *FlatbuffersCodec) DecodeJoy(data []byte) (j teleop.Joy, err error) {
	if len(data) < minTableSize {
		return j, fmt.Errorf("%w: %d byte Joy buffer", ErrInvalidMessage, len(data))
	}
	defer recoverInvalid("Joy", &err)

	fb := control.GetRootAsJoy(data, 0)
	if fb.AxesLength() > len(data)/8 || fb.ButtonsLength() > len(data)/4 {
		return j, fmt.Errorf("%w: Joy vector length exceeds buffer", ErrInvalidMessage)
	}
	j.TimestampNs = fb.TimestampNs()
	j.Axes = make([]float64, fb.AxesLength())
	for i := range j.Axes {
		j.Axes[i] = fb.Axes(i)
	}
	j.Buttons = make([]int32, fb.ButtonsLength())
	for i := range j.Buttons {
		j.Buttons[i] = fb.Buttons(i)
	}
	return j, nil
}

func (c *FlatbuffersCodec) EncodeCommand(cmd teleop.CarControl) ([]byte, error) {
	builder := flatbuffers.NewBuilder(64)

	control.CarControlStart(builder)
	control.CarControlAddTimestampNs(builder, c.now().UnixNano())
	control.CarControlAddVelocity(builder, cmd.Velocity)
	control.CarControlAddAcceleration(builder, cmd.Acceleration)
	control.CarControlAddSteeringAngle(builder, cmd.SteeringAngle)
	builder.Finish(control.CarControlEnd(builder))

	return builder.FinishedBytes(), nil
}

func (c *FlatbuffersCodec) DecodeCommand(data []byte) (cmd teleop.CarControl, err error) {
	if len(data) < minTableSize {
		return cmd, fmt.Errorf("%w: %d byte CarControl buffer", ErrInvalidMessage, len(data))
	}
	defer recoverInvalid("CarControl", &err)

	fb := control.GetRootAsCarControl(data, 0)
	return teleop.CarControl{
		Velocity:      fb.Velocity(),
		Acceleration:  fb.Acceleration(),
		SteeringAngle: fb.SteeringAngle(),
	}, nil
}

// recoverInvalid turns an out-of-range read on a corrupt buffer into ErrInvalidMessage.
func recoverInvalid(table string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: corrupt %s buffer: %v", ErrInvalidMessage, table, r)
	}
}
