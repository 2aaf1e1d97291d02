package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
)

func sampleJoy() teleop.Joy {
	axes := make([]float64, 14)
	axes[0] = 0.5
	axes[12] = 0.1
	axes[13] = -0.75
	return teleop.Joy{TimestampNs: 42, Axes: axes, Buttons: []int32{0, 1, 0, 1}}
}

func TestNew(t *testing.T) {
	c, err := New("flatbuffers")
	require.NoError(t, err)
	assert.Equal(t, "flatbuffers", c.Name())

	c, err = New("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	_, err = New("msgpack")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestCodecsPreserveJoy(t *testing.T) {
	for _, c := range []Codec{NewFlatbuffersCodec(), NewJSONCodec()} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.EncodeJoy(sampleJoy())
			require.NoError(t, err)

			got, err := c.DecodeJoy(data)
			require.NoError(t, err)
			assert.Equal(t, sampleJoy(), got)
		})
	}
}

func TestCodecsPreserveCommand(t *testing.T) {
	cmd := teleop.CarControl{Velocity: -2, Acceleration: 0.1, SteeringAngle: -20}
	for _, c := range []Codec{NewFlatbuffersCodec(), NewJSONCodec()} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.EncodeCommand(cmd)
			require.NoError(t, err)

			got, err := c.DecodeCommand(data)
			require.NoError(t, err)
			assert.Equal(t, cmd, got)
		})
	}
}

func TestFlatbuffersJoyTimestampDefaultsToNow(t *testing.T) {
	c := NewFlatbuffersCodec()
	c.now = func() time.Time { return time.Unix(0, 1234) }

	data, err := c.EncodeJoy(teleop.Joy{Axes: []float64{1}})
	require.NoError(t, err)
	got, err := c.DecodeJoy(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), got.TimestampNs)
	assert.Empty(t, got.Buttons)
}

func TestFlatbuffersRejectsGarbage(t *testing.T) {
	c := NewFlatbuffersCodec()

	_, err := c.DecodeJoy([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = c.DecodeCommand(nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = c.DecodeJoy([]byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestJSONRejectsWrongEnvelope(t *testing.T) {
	c := NewJSONCodec()

	cmdData, err := c.EncodeCommand(teleop.CarControl{Velocity: 1})
	require.NoError(t, err)
	_, err = c.DecodeJoy(cmdData)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = c.DecodeJoy([]byte(`{"type":"JOY"}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = c.DecodeJoy([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestJSONEnvelopeShape(t *testing.T) {
	c := NewJSONCodec()
	c.now = func() time.Time { return time.Unix(10, 500000000) }

	data, err := c.EncodeCommand(teleop.CarControl{Velocity: -2, Acceleration: 0.5, SteeringAngle: 4})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"CAR_CONTROL","timestamp":10.5,"data":{"velocity":-2,"acceleration":0.5,"steering_angle":4}}`,
		string(data))
}
