package zeromq

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/teleop-bridge/pkg/config"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// pollInterval bounds how long a socket loop takes to notice Stop.
const pollInterval = 250 * time.Millisecond

// MessageReceiver answers requests on a REP socket
type MessageReceiver struct {
	socket     *zmq4.Socket
	dispatcher *MessageDispatcher
	poller     *zmq4.Poller
	address    string
	logger     customlog.Logger
	started    atomic.Bool
	running    atomic.Bool
	wg         *sync.WaitGroup
}

func newMessageReceiver(ctx *zmq4.Context, address string, dispatcher *MessageDispatcher, logger customlog.Logger, wg *sync.WaitGroup) (*MessageReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.REP)
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetSndtimeo(time.Second); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}
	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	logger.Infof("MessageReceiver bound on %s", address)

	return &MessageReceiver{
		socket:     socket,
		dispatcher: dispatcher,
		poller:     poller,
		address:    address,
		logger:     logger,
		wg:         wg,
	}, nil
}

// Start begins the request loop. The loop owns the socket and closes it on exit.
func (r *MessageReceiver) Start() {
	if r.started.Swap(true) {
		return
	}
	r.running.Store(true)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.socket.Close()

		for r.running.Load() {
			polled, err := r.poller.Poll(pollInterval)
			if err != nil {
				r.logger.Warnf("Error polling request socket: %v", err)
				continue
			}
			if len(polled) == 0 {
				continue
			}

			msg, err := r.socket.RecvBytes(0)
			if err != nil {
				r.logger.Warnf("Error receiving request: %v", err)
				continue
			}

			reply, err := r.dispatcher.Dispatch(msg)
			if err != nil {
				r.logger.Warnf("Error dispatching request: %v", err)
				reply = errorReply(err)
			}

			// REP must answer every request before it can receive again.
			if _, err := r.socket.SendBytes(reply, 0); err != nil {
				r.logger.Errorf("Error sending reply: %v", err)
			}
		}
		r.logger.Debugf("MessageReceiver on %s stopped", r.address)
	}()
}

// Stop asks the loop to exit; the service waits on the shared WaitGroup
func (r *MessageReceiver) Stop() {
	r.running.Store(false)
}

// MessageSender publishes topic-prefixed messages on a PUB socket
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	logger.Infof("MessageSender bound on %s", address)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends [topic, message] as a two-part message
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}

// ZeroMQService owns the ZeroMQ context and every socket of the bridge
type ZeroMQService struct {
	ctx        *zmq4.Context
	receiver   *MessageReceiver
	sender     *MessageSender
	subscriber *JoySubscriber
	dispatcher *MessageDispatcher
	logger     customlog.Logger
	mu         sync.Mutex
	running    bool
	wg         sync.WaitGroup
}

// NewZeroMQService creates the PUB, SUB and (when configured) REP sockets.
// The subscriber forwards decoded samples to sink.
func NewZeroMQService(cfg *config.BootstrapConfig, decoder JoyDecoder, sink SampleSink, logger customlog.Logger) (*ZeroMQService, error) {
	logger = logger.WithField("component", "zeromq")

	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	s := &ZeroMQService{
		ctx:        ctx,
		dispatcher: NewMessageDispatcher(logger),
		logger:     logger,
	}

	s.sender, err = newMessageSender(ctx, cfg.ZeroMQ.CommandBindAddress, logger)
	if err != nil {
		s.closeAll()
		return nil, err
	}

	s.subscriber, err = newJoySubscriber(ctx, cfg.ZeroMQ.JoyConnectAddress, cfg.Teleop.JoyTopic,
		cfg.ZeroMQ.QueueDepth, decoder, sink, logger, &s.wg)
	if err != nil {
		s.closeAll()
		return nil, err
	}

	if cfg.ZeroMQ.RequestBindAddress != "" {
		s.receiver, err = newMessageReceiver(ctx, cfg.ZeroMQ.RequestBindAddress, s.dispatcher, logger, &s.wg)
		if err != nil {
			s.closeAll()
			return nil, err
		}
	}

	return s, nil
}

// Dispatcher returns the request dispatcher so callers can register handlers
func (s *ZeroMQService) Dispatcher() *MessageDispatcher {
	return s.dispatcher
}

// RegisterHandler adds a handler for a specific message type
func (s *ZeroMQService) RegisterHandler(messageType string, handler MessageHandler) {
	s.dispatcher.RegisterHandler(messageType, handler)
}

// Start launches the subscriber and request loops
func (s *ZeroMQService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return ErrServiceClosed
	}
	if s.running {
		return nil
	}
	s.running = true
	s.logger.Infof("Starting ZeroMQ service")

	s.subscriber.Start()
	if s.receiver != nil {
		s.receiver.Start()
	}
	return nil
}

// Stop halts the loops, closes every socket and terminates the context
func (s *ZeroMQService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return
	}
	s.logger.Infof("Stopping ZeroMQ service")

	if s.running {
		s.running = false
		s.subscriber.Stop()
		if s.receiver != nil {
			s.receiver.Stop()
		}
		s.wg.Wait()
	}

	s.closeAll()
	s.logger.Infof("ZeroMQ service stopped")
}

// closeAll releases sockets that no loop owns, then the context
func (s *ZeroMQService) closeAll() {
	if s.sender != nil {
		s.sender.Close()
	}
	if s.subscriber != nil && !s.subscriber.started.Load() {
		s.subscriber.socket.Close()
	}
	if s.receiver != nil && !s.receiver.started.Load() {
		s.receiver.socket.Close()
	}
	if s.ctx != nil {
		if err := s.ctx.Term(); err != nil {
			s.logger.Warnf("Error terminating ZMQ context: %v", err)
		}
		s.ctx = nil
	}
}

// PublishMessage sends a message with the given topic
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	return s.sender.PublishMessage(topic, message)
}

// JoyCounts reports received and rejected joy messages
func (s *ZeroMQService) JoyCounts() (received, rejected int64) {
	return s.subscriber.Counts()
}
