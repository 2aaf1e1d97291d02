package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/config"
)

// Envelope types carried in the JSON codec.
const (
	MsgTypeJoy        = "JOY"
	MsgTypeCarControl = "CAR_CONTROL"
)

// Envelope is the JSON wrapper shared with the request/reply channel.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// JSONCodec wraps samples and commands in an Envelope.
type JSONCodec struct {
	now func() time.Time
}

// NewJSONCodec creates a JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{now: time.Now}
}

func (c *JSONCodec) Name() string { return config.CodecJSON }

func (c *JSONCodec) EncodeJoy(j teleop.Joy) ([]byte, error) {
	return c.wrap(MsgTypeJoy, j)
}

func (c *JSONCodec) DecodeJoy(data []byte) (teleop.Joy, error) {
	var j teleop.Joy
	if err := c.unwrap(data, MsgTypeJoy, &j); err != nil {
		return teleop.Joy{}, err
	}
	return j, nil
}

func (c *JSONCodec) EncodeCommand(cmd teleop.CarControl) ([]byte, error) {
	return c.wrap(MsgTypeCarControl, cmd)
}

func (c *JSONCodec) DecodeCommand(data []byte) (teleop.CarControl, error) {
	var cmd teleop.CarControl
	if err := c.unwrap(data, MsgTypeCarControl, &cmd); err != nil {
		return teleop.CarControl{}, err
	}
	return cmd, nil
}

func (c *JSONCodec) wrap(msgType string, v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{
		Type:      msgType,
		Timestamp: float64(c.now().UnixNano()) / 1e9,
		Data:      payload,
	})
}

func (c *JSONCodec) unwrap(data []byte, msgType string, v interface{}) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Type != msgType {
		return fmt.Errorf("%w: expected %s, got %q", ErrInvalidMessage, msgType, env.Type)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: empty %s payload", ErrInvalidMessage, msgType)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidMessage, msgType, err)
	}
	return nil
}
