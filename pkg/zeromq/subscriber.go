package zeromq

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// JoyDecoder turns a wire payload into a sample
type JoyDecoder interface {
	DecodeJoy(data []byte) (teleop.Joy, error)
}

// SampleSink accepts decoded samples. It must not block.
type SampleSink interface {
	Enqueue(j teleop.Joy) bool
}

// JoySubscriber receives Joy samples from the input device gateway
type JoySubscriber struct {
	socket  *zmq4.Socket
	poller  *zmq4.Poller
	address string
	topic   string
	decoder JoyDecoder
	sink    SampleSink
	logger  customlog.Logger
	started atomic.Bool
	running atomic.Bool
	wg      *sync.WaitGroup

	received atomic.Int64
	rejected atomic.Int64
}

func newJoySubscriber(ctx *zmq4.Context, address, topic string, depth int, decoder JoyDecoder, sink SampleSink, logger customlog.Logger, wg *sync.WaitGroup) (*JoySubscriber, error) {
	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetRcvhwm(depth); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set receive high-water mark: %w", err)
	}
	if err := socket.SetSubscribe(topic); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to subscribe to %q: %w", topic, err)
	}
	if err := socket.Connect(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("JoySubscriber connected to %s (topic %q, hwm %d)", address, topic, depth)

	return &JoySubscriber{
		socket:  socket,
		poller:  poller,
		address: address,
		topic:   topic,
		decoder: decoder,
		sink:    sink,
		logger:  logger.WithField("topic", topic),
		wg:      wg,
	}, nil
}

// Start begins receiving. The loop owns the socket and closes it on exit.
func (l *JoySubscriber) Start() {
	if l.started.Swap(true) {
		return
	}
	l.running.Store(true)

	l.wg.Add(1)
	go l.receiveLoop()
}

// Stop asks the loop to exit
func (l *JoySubscriber) Stop() {
	l.running.Store(false)
}

// Counts returns how many messages were received and how many failed to decode
func (l *JoySubscriber) Counts() (received, rejected int64) {
	return l.received.Load(), l.rejected.Load()
}

func (l *JoySubscriber) receiveLoop() {
	defer l.wg.Done()
	defer l.socket.Close()

	for l.running.Load() {
		polled, err := l.poller.Poll(pollInterval)
		if err != nil {
			l.logger.Warnf("Error polling joy socket: %v", err)
			continue
		}
		if len(polled) == 0 {
			continue
		}

		parts, err := l.socket.RecvMessageBytes(0)
		if err != nil {
			l.logger.Warnf("Error receiving joy message: %v", err)
			continue
		}
		l.handleParts(parts)
	}
	l.logger.Debugf("JoySubscriber on %s stopped", l.address)
}

// handleParts expects [topic, payload] frames
func (l *JoySubscriber) handleParts(parts [][]byte) {
	l.received.Add(1)

	if len(parts) != 2 {
		l.rejected.Add(1)
		l.logger.Warnf("Dropping joy message with %d frames, expected 2", len(parts))
		return
	}

	joy, err := l.decoder.DecodeJoy(parts[1])
	if err != nil {
		l.rejected.Add(1)
		l.logger.Warnf("Dropping undecodable joy message: %v", err)
		return
	}

	l.sink.Enqueue(joy)
}
