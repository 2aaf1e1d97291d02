// Package codec converts Joy samples and CarControl commands to and from
// their wire representation.
package codec

import (
	"errors"
	"fmt"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/config"
)

var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownCodec   = errors.New("unknown codec")
)

// Codec is implemented by every wire format the bridge speaks.
type Codec interface {
	Name() string
	EncodeJoy(j teleop.Joy) ([]byte, error)
	DecodeJoy(data []byte) (teleop.Joy, error)
	EncodeCommand(cmd teleop.CarControl) ([]byte, error)
	DecodeCommand(data []byte) (teleop.CarControl, error)
}

// New returns the codec registered under name.
func New(name string) (Codec, error) {
	switch name {
	case config.CodecFlatbuffers:
		return NewFlatbuffersCodec(), nil
	case config.CodecJSON:
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
