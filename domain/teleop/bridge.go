package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// DefaultPublishPeriod is the tick interval used when Run is given zero.
const DefaultPublishPeriod = 100 * time.Millisecond

// CommandSink receives every command the bridge decides to emit.
type CommandSink interface {
	Publish(cmd CarControl) error
}

// SinkFunc adapts a function to CommandSink.
type SinkFunc func(cmd CarControl) error

// Publish calls f.
func (f SinkFunc) Publish(cmd CarControl) error {
	return f(cmd)
}

// Stats counts publish decisions since start.
type Stats struct {
	Samples    int64 `json:"samples"`
	Ticks      int64 `json:"ticks"`
	Published  int64 `json:"published"`
	Suppressed int64 `json:"suppressed"`
	SinkErrors int64 `json:"sink_errors"`
}

// Status is a consistent view of the bridge state.
type Status struct {
	Command     CarControl `json:"command"`
	PublishOnce bool       `json:"publish_once"`
	Stats       Stats      `json:"stats"`
}

// Bridge holds the latest command and decides on each tick whether to emit it.
//
// Non-zero commands are emitted on every tick. When the command becomes all
// zero, exactly one zero command is emitted and further idle ticks are silent
// until a non-zero command appears again. The first tick always emits.
type Bridge struct {
	params Params
	sink   CommandSink
	logger customlog.Logger

	// mu guards cmd, publishOnce and stats. Both the sample path and the tick
	// path take it, so a tick never sees a half-written command.
	mu          sync.Mutex
	cmd         CarControl
	publishOnce bool
	stats       Stats

	meter      metric.Meter
	ticks      metric.Int64Counter
	published  metric.Int64Counter
	suppressed metric.Int64Counter
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMeter overrides the global OTel meter.
func WithMeter(m metric.Meter) Option {
	return func(b *Bridge) {
		b.meter = m
	}
}

// NewBridge creates a bridge that emits to sink.
func NewBridge(params Params, sink CommandSink, logger customlog.Logger, opts ...Option) (*Bridge, error) {
	if sink == nil {
		return nil, errors.New("teleop bridge requires a command sink")
	}
	if logger == nil {
		return nil, errors.New("teleop bridge requires a logger")
	}
	if err := params.Axes.validate(); err != nil {
		return nil, err
	}

	b := &Bridge{
		params:      params,
		sink:        sink,
		logger:      logger.WithField("component", "bridge"),
		publishOnce: true,
		meter:       meter(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.initMetrics(b.meter); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bridge) initMetrics(m metric.Meter) error {
	var err error
	b.ticks, err = m.Int64Counter("teleop.ticks",
		metric.WithDescription("Publish ticks evaluated"))
	if err != nil {
		return fmt.Errorf("creating ticks counter: %w", err)
	}
	b.published, err = m.Int64Counter("teleop.commands.published",
		metric.WithDescription("Commands handed to the sink"))
	if err != nil {
		return fmt.Errorf("creating published counter: %w", err)
	}
	b.suppressed, err = m.Int64Counter("teleop.commands.suppressed",
		metric.WithDescription("Idle ticks that emitted nothing"))
	if err != nil {
		return fmt.Errorf("creating suppressed counter: %w", err)
	}
	return nil
}

// Params returns the immutable mapping parameters.
func (b *Bridge) Params() Params {
	return b.params
}

// OnInputSample overwrites the current command with the mapping of j.
// A sample shorter than the configured axes panics with ErrSampleTooShort.
func (b *Bridge) OnInputSample(j Joy) {
	cmd := b.params.Map(j)

	b.mu.Lock()
	b.cmd = cmd
	b.stats.Samples++
	b.mu.Unlock()
}

// PublishTick applies the emit rule to the current command and reports
// whether the sink was called.
func (b *Bridge) PublishTick() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx := context.Background()
	b.stats.Ticks++
	b.ticks.Add(ctx, 1)

	if b.cmd.IsZero() {
		if !b.publishOnce {
			b.stats.Suppressed++
			b.suppressed.Add(ctx, 1)
			return false
		}
		b.emit(ctx)
		b.publishOnce = false
		b.logger.Debugf("idle: published final zero command")
		return true
	}

	b.emit(ctx)
	b.publishOnce = true
	return true
}

// emit must be called with mu held.
func (b *Bridge) emit(ctx context.Context) {
	b.stats.Published++
	b.published.Add(ctx, 1)
	if err := b.sink.Publish(b.cmd); err != nil {
		b.stats.SinkErrors++
		b.logger.Warnf("Failed to publish command (%s): %v", b.cmd, err)
	}
}

// Run calls PublishTick every period until ctx is done.
func (b *Bridge) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = DefaultPublishPeriod
	}
	b.logger.Infof("Publishing commands every %v", period)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Infof("Publish loop stopped")
			return ctx.Err()
		case <-ticker.C:
			b.PublishTick()
		}
	}
}

// Command returns the latest computed command.
func (b *Bridge) Command() CarControl {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd
}

// Status returns the command, flag and counters under one lock.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Command:     b.cmd,
		PublishOnce: b.publishOnce,
		Stats:       b.stats,
	}
}
