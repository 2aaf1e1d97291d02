package zeromq

import (
	"encoding/json"
	"fmt"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/config"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// LatchSource exposes the latched command
type LatchSource interface {
	Latched() (LatchedCommand, bool)
}

// CommandHandler answers COMMAND_REQUEST with the latched command
type CommandHandler struct {
	source LatchSource
	logger customlog.Logger
}

// NewCommandHandler creates a new handler for latched command requests
func NewCommandHandler(source LatchSource, logger customlog.Logger) *CommandHandler {
	return &CommandHandler{source: source, logger: logger}
}

// HandleMessage processes a COMMAND_REQUEST message and returns a COMMAND_RESPONSE
func (h *CommandHandler) HandleMessage(data []byte) ([]byte, error) {
	if err := expectType(data, MsgTypeCommandRequest); err != nil {
		return nil, err
	}

	latched, ok := h.source.Latched()
	if !ok {
		return nil, ErrNoCommand
	}

	h.logger.Debugf("Serving latched command #%d", latched.Sequence)
	return marshalReply(MsgTypeCommandResponse, latched)
}

// ConfigSnapshot is the Data of a CONFIG_RESPONSE
type ConfigSnapshot struct {
	Params       teleop.Params `json:"params"`
	PublishMs    int           `json:"publish_period_ms"`
	JoyTopic     string        `json:"joy_topic"`
	CommandTopic string        `json:"command_topic"`
	Codec        string        `json:"codec"`
}

// ConfigHandler answers CONFIG_REQUEST with the effective teleop settings
type ConfigHandler struct {
	snapshot ConfigSnapshot
	logger   customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(params teleop.Params, cfg config.TeleopConfig, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{
		snapshot: ConfigSnapshot{
			Params:       params,
			PublishMs:    cfg.PublishPeriodMs,
			JoyTopic:     cfg.JoyTopic,
			CommandTopic: cfg.CommandTopic,
			Codec:        cfg.Codec,
		},
		logger: logger,
	}
}

// HandleMessage processes a CONFIG_REQUEST message and returns a CONFIG_RESPONSE
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	if err := expectType(data, MsgTypeConfigRequest); err != nil {
		return nil, err
	}

	h.logger.Debugf("Processing configuration request")
	return marshalReply(MsgTypeConfigResponse, h.snapshot)
}

// RegisterRequestHandlers wires the COMMAND and CONFIG handlers into d
func RegisterRequestHandlers(d *MessageDispatcher, source LatchSource, params teleop.Params, cfg config.TeleopConfig, logger customlog.Logger) {
	d.RegisterHandler(MsgTypeCommandRequest, NewCommandHandler(source, logger))
	d.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(params, cfg, logger))
}

func expectType(data []byte, want string) error {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type != want {
		return fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}
	return nil
}

func marshalReply(msgType string, data interface{}) ([]byte, error) {
	reply, err := json.Marshal(ZeroMQMessage{
		Type:      msgType,
		Timestamp: nowSeconds(),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", msgType, err)
	}
	return reply, nil
}
