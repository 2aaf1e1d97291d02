package zeromq

import (
	"fmt"
	"sync"
	"time"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/codec"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// MessagePublisher sends a payload under a topic
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// LatchedCommand is the most recent command handed to the transport
type LatchedCommand struct {
	Command     teleop.CarControl `json:"command"`
	PublishedAt time.Time         `json:"published_at"`
	Sequence    uint64            `json:"sequence"`
	Payload     []byte            `json:"-"`
}

// CommandPublisher encodes commands onto the command topic and keeps the
// last one so late consumers can fetch it. It implements teleop.CommandSink.
type CommandPublisher struct {
	publisher MessagePublisher
	codec     codec.Codec
	topic     string
	logger    customlog.Logger

	mu      sync.RWMutex
	latched *LatchedCommand
	seq     uint64
}

var _ teleop.CommandSink = (*CommandPublisher)(nil)

// NewCommandPublisher creates a publisher for topic
func NewCommandPublisher(publisher MessagePublisher, c codec.Codec, topic string, logger customlog.Logger) *CommandPublisher {
	return &CommandPublisher{
		publisher: publisher,
		codec:     c,
		topic:     topic,
		logger:    logger.WithField("topic", topic),
	}
}

// Publish latches cmd and sends it. The command is latched even when the
// send fails; the transport owns delivery.
func (p *CommandPublisher) Publish(cmd teleop.CarControl) error {
	payload, err := p.codec.EncodeCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	p.mu.Lock()
	p.seq++
	p.latched = &LatchedCommand{
		Command:     cmd,
		PublishedAt: time.Now(),
		Sequence:    p.seq,
		Payload:     payload,
	}
	p.mu.Unlock()

	p.logger.Debugf("Publishing command %s", cmd)
	return p.publisher.PublishMessage(p.topic, payload)
}

// Latched returns the last published command, if any
func (p *CommandPublisher) Latched() (LatchedCommand, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latched == nil {
		return LatchedCommand{}, false
	}
	return *p.latched, true
}

// Topic returns the command topic
func (p *CommandPublisher) Topic() string {
	return p.topic
}
