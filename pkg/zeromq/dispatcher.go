package zeromq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// Common errors
var (
	ErrServiceClosed      = errors.New("zeromq service is closed")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrNoCommand          = errors.New("no command has been published yet")
)

// Message types on the request/reply socket
const (
	MsgTypeCommandRequest  = "COMMAND_REQUEST"
	MsgTypeCommandResponse = "COMMAND_RESPONSE"
	MsgTypeConfigRequest   = "CONFIG_REQUEST"
	MsgTypeConfigResponse  = "CONFIG_RESPONSE"
	MsgTypeError           = "ERROR"
)

// ZeroMQMessage is the JSON envelope used on the request/reply socket
type ZeroMQMessage struct {
	Type      string      `json:"type"`
	Timestamp float64     `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ErrorResponse is the Data of an ERROR reply
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// MessageHandler processes one request type and returns the serialized reply
type MessageHandler interface {
	HandleMessage(data []byte) ([]byte, error)
}

// HandlerFunc is a function type that implements MessageHandler
type HandlerFunc func(data []byte) ([]byte, error)

// HandleMessage calls the function
func (f HandlerFunc) HandleMessage(data []byte) ([]byte, error) {
	return f(data)
}

// MessageDispatcher routes requests to the handler registered for their type
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	logger   customlog.Logger
	mu       sync.RWMutex
}

// NewMessageDispatcher creates a new message dispatcher
func NewMessageDispatcher(logger customlog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		logger:   logger,
	}
}

// RegisterHandler adds a handler for a specific message type
func (d *MessageDispatcher) RegisterHandler(messageType string, handler MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[messageType] = handler
	d.logger.Debugf("Registered handler for message type: %s", messageType)
}

// Dispatch parses the envelope and calls the matching handler
func (d *MessageDispatcher) Dispatch(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	d.mu.RLock()
	handler, exists := d.handlers[msg.Type]
	d.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}

	d.logger.Debugf("Dispatching request of type: %s", msg.Type)
	return handler.HandleMessage(data)
}

// errorReply builds the ERROR envelope sent back when dispatch fails
func errorReply(err error) []byte {
	code := 500
	switch {
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrUnknownMessageType):
		code = 400
	case errors.Is(err, ErrNoCommand):
		code = 404
	}

	data, _ := json.Marshal(ZeroMQMessage{
		Type:      MsgTypeError,
		Timestamp: nowSeconds(),
		Data:      ErrorResponse{Message: err.Error(), Code: code},
	})
	return data
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
