package teleop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// recordingSink keeps every command it is handed.
type recordingSink struct {
	mu   sync.Mutex
	cmds []CarControl
	err  error
}

func (s *recordingSink) Publish(cmd CarControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, cmd)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmds)
}

func (s *recordingSink) last() CarControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmds[len(s.cmds)-1]
}

func newTestBridge(t *testing.T) (*Bridge, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	b, err := NewBridge(DefaultParams(), sink, customlog.NewNopLogger(),
		WithMeter(noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)
	return b, sink
}

// ps3Sample builds a 14-axis sample with the three mapped axes set.
func ps3Sample(steering, brake, throttle float64) Joy {
	axes := make([]float64, 14)
	axes[PS3Axes.Steering] = steering
	axes[PS3Axes.Brake] = brake
	axes[PS3Axes.Throttle] = throttle
	return Joy{Axes: axes, Buttons: make([]int32, 17)}
}

func TestMapScalesAxes(t *testing.T) {
	cmd := DefaultParams().Map(ps3Sample(0.5, 0.1, 0.2))

	assert.InDelta(t, -2.0, cmd.Velocity, 1e-12)
	assert.InDelta(t, -20.0, cmd.SteeringAngle, 1e-12)
	assert.Equal(t, 0.1, cmd.Acceleration)
}

func TestAccelerationPassesThroughUnscaled(t *testing.T) {
	for _, v := range []float64{-1, -0.37, 0, 0.123456789, 1} {
		cmd := DefaultParams().Map(ps3Sample(0, v, 0))
		assert.Equal(t, v, cmd.Acceleration)
	}
}

func TestFirstIdleTickPublishesOnce(t *testing.T) {
	b, sink := newTestBridge(t)
	b.OnInputSample(ps3Sample(0, 0, 0))

	assert.True(t, b.PublishTick())
	require.Equal(t, 1, sink.count())
	assert.True(t, sink.last().IsZero())

	assert.False(t, b.PublishTick())
	assert.False(t, b.PublishTick())
	assert.Equal(t, 1, sink.count())
}

func TestFirstTickPublishesWithoutAnySample(t *testing.T) {
	b, sink := newTestBridge(t)

	assert.True(t, b.PublishTick())
	assert.False(t, b.PublishTick())
	assert.Equal(t, 1, sink.count())
}

func TestActiveCommandPublishedEveryTick(t *testing.T) {
	b, sink := newTestBridge(t)
	b.OnInputSample(ps3Sample(0.5, 0.1, 0.2))

	for i := 0; i < 5; i++ {
		assert.True(t, b.PublishTick())
	}
	require.Equal(t, 5, sink.count())
	for _, cmd := range sink.cmds {
		assert.Equal(t, sink.cmds[0], cmd)
	}
}

func TestReturnToNeutralPublishesSingleZero(t *testing.T) {
	b, sink := newTestBridge(t)

	b.OnInputSample(ps3Sample(0.5, 0.1, 0.2))
	b.PublishTick()
	b.PublishTick()
	require.Equal(t, 2, sink.count())

	b.OnInputSample(ps3Sample(0, 0, 0))
	assert.True(t, b.PublishTick())
	require.Equal(t, 3, sink.count())
	assert.True(t, sink.last().IsZero())

	for i := 0; i < 10; i++ {
		assert.False(t, b.PublishTick())
	}
	assert.Equal(t, 3, sink.count())

	b.OnInputSample(ps3Sample(-0.25, 0, 0))
	assert.True(t, b.PublishTick())
	assert.Equal(t, 4, sink.count())
	assert.InDelta(t, 10.0, sink.last().SteeringAngle, 1e-12)
}

func TestPublishReadsLatestSampleOnly(t *testing.T) {
	b, sink := newTestBridge(t)

	b.OnInputSample(ps3Sample(0.5, 0, 0))
	b.OnInputSample(ps3Sample(0, 0, 0))

	// The non-zero sample was overwritten before the tick; the first tick
	// still emits because the flag starts set.
	assert.True(t, b.PublishTick())
	assert.True(t, sink.last().IsZero())
	assert.False(t, b.PublishTick())
}

func TestNegativeZeroIsIdle(t *testing.T) {
	b, sink := newTestBridge(t)
	b.PublishTick()

	// -0.0 * vel_max is -0.0, which compares equal to zero.
	b.OnInputSample(ps3Sample(0, 0, 0))
	assert.False(t, b.PublishTick())
	assert.Equal(t, 1, sink.count())
}

func TestShortSamplePanics(t *testing.T) {
	b, _ := newTestBridge(t)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrSampleTooShort)
	}()
	b.OnInputSample(Joy{Axes: make([]float64, 13)})
}

func TestSinkErrorDoesNotChangeDecision(t *testing.T) {
	sink := &recordingSink{err: errors.New("transport down")}
	b, err := NewBridge(DefaultParams(), sink, customlog.NewNopLogger())
	require.NoError(t, err)

	b.OnInputSample(ps3Sample(0.5, 0, 0))
	assert.True(t, b.PublishTick())
	b.OnInputSample(ps3Sample(0, 0, 0))
	assert.True(t, b.PublishTick())
	assert.False(t, b.PublishTick())

	st := b.Status()
	assert.Equal(t, int64(2), st.Stats.SinkErrors)
	assert.Equal(t, int64(2), st.Stats.Published)
	assert.Equal(t, int64(1), st.Stats.Suppressed)
}

func TestNewBridgeValidation(t *testing.T) {
	_, err := NewBridge(DefaultParams(), nil, customlog.NewNopLogger())
	assert.Error(t, err)

	_, err = NewBridge(DefaultParams(), &recordingSink{}, nil)
	assert.Error(t, err)

	p := DefaultParams()
	p.Axes.Brake = -1
	_, err = NewBridge(p, &recordingSink{}, customlog.NewNopLogger())
	assert.Error(t, err)
}

func TestStatusTracksCounters(t *testing.T) {
	b, _ := newTestBridge(t)

	b.OnInputSample(ps3Sample(0.5, 0.1, 0.2))
	b.PublishTick()
	b.OnInputSample(ps3Sample(0, 0, 0))
	b.PublishTick()
	b.PublishTick()

	st := b.Status()
	assert.Equal(t, int64(2), st.Stats.Samples)
	assert.Equal(t, int64(3), st.Stats.Ticks)
	assert.Equal(t, int64(2), st.Stats.Published)
	assert.Equal(t, int64(1), st.Stats.Suppressed)
	assert.False(t, st.PublishOnce)
	assert.True(t, st.Command.IsZero())
}

func TestConcurrentSamplesNeverTear(t *testing.T) {
	// Each sample sets every axis to the same value, so a consistent command
	// satisfies velocity/vel_max == steering/max_steering == -acceleration.
	sink := &recordingSink{}
	b, err := NewBridge(DefaultParams(), SinkFunc(func(cmd CarControl) error {
		v := -cmd.Velocity / 10.0
		s := -cmd.SteeringAngle / 40.0
		if v != cmd.Acceleration || s != cmd.Acceleration {
			t.Errorf("torn command: %s", cmd)
		}
		return sink.Publish(cmd)
	}), customlog.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ctx.Err() == nil; i++ {
			v := float64(i%8) / 8
			b.OnInputSample(ps3Sample(v, v, v))
		}
	}()

	for i := 0; i < 200; i++ {
		b.PublishTick()
	}
	cancel()
	wg.Wait()
}

func TestRunTicksUntilCancelled(t *testing.T) {
	b, sink := newTestBridge(t)
	b.OnInputSample(ps3Sample(0.5, 0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
