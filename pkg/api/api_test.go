package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/config"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
	"github.com/open-teleop/teleop-bridge/pkg/processing"
	"github.com/open-teleop/teleop-bridge/pkg/zeromq"
)

type stubBridge struct {
	status teleop.Status
}

func (b *stubBridge) Status() teleop.Status { return b.status }

type stubLatch struct {
	cmd *zeromq.LatchedCommand
}

func (l *stubLatch) Latched() (zeromq.LatchedCommand, bool) {
	if l.cmd == nil {
		return zeromq.LatchedCommand{}, false
	}
	return *l.cmd, true
}

type stubQueue struct {
	mu      sync.Mutex
	samples []teleop.Joy
	metrics processing.QueueMetrics
}

func (q *stubQueue) Enqueue(j teleop.Joy) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.samples = append(q.samples, j)
	return true
}

func (q *stubQueue) Metrics() processing.QueueMetrics { return q.metrics }

type stubJoy struct{}

func (stubJoy) JoyCounts() (int64, int64) { return 12, 2 }

func newTestApp(t *testing.T, latch *stubLatch) (*stubBridge, *stubQueue, func(path string) *http.Response) {
	t.Helper()
	bridge := &stubBridge{}
	queue := &stubQueue{}
	app, err := NewApp(Dependencies{
		Bridge:   bridge,
		Commands: latch,
		Queue:    queue,
		Joy:      stubJoy{},
		Params:   teleop.DefaultParams(),
	}, config.Default(), customlog.NewNopLogger())
	require.NoError(t, err)

	get := func(path string) *http.Response {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		return resp
	}
	return bridge, queue, get
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	_, _, get := newTestApp(t, &stubLatch{})

	resp := get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(readBody(t, resp)))
}

func TestCommandNotFoundBeforeFirstPublish(t *testing.T) {
	_, _, get := newTestApp(t, &stubLatch{})

	resp := get("/api/v1/teleop/command")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCommandReturnsLatched(t *testing.T) {
	latch := &stubLatch{cmd: &zeromq.LatchedCommand{
		Command:  teleop.CarControl{Velocity: -2, Acceleration: 0.1, SteeringAngle: -20},
		Sequence: 4,
	}}
	_, _, get := newTestApp(t, latch)

	resp := get("/api/v1/teleop/command")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got zeromq.LatchedCommand
	require.NoError(t, json.Unmarshal(readBody(t, resp), &got))
	assert.Equal(t, latch.cmd.Command, got.Command)
	assert.Equal(t, uint64(4), got.Sequence)
}

func TestStatusCombinesSources(t *testing.T) {
	bridge, queue, get := newTestApp(t, &stubLatch{})
	bridge.status = teleop.Status{
		Command:     teleop.CarControl{Velocity: 1},
		PublishOnce: true,
		Stats:       teleop.Stats{Ticks: 7, Published: 5, Suppressed: 2},
	}
	queue.metrics = processing.QueueMetrics{EnqueuedCount: 9, DroppedCount: 1, QueueCapacity: 10}

	resp := get("/api/v1/teleop/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(readBody(t, resp), &got))
	assert.Equal(t, bridge.status, got.Bridge)
	assert.Equal(t, queue.metrics, got.Queue)
	require.NotNil(t, got.Joy)
	assert.Equal(t, JoyCounts{Received: 12, Rejected: 2}, *got.Joy)
}

func TestConfigServedAsYAML(t *testing.T) {
	_, _, get := newTestApp(t, &stubLatch{})

	resp := get("/api/v1/config/teleop")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-yaml", resp.Header.Get("Content-Type"))

	var doc effectiveConfig
	require.NoError(t, yaml.Unmarshal(readBody(t, resp), &doc))
	assert.Equal(t, 10.0, doc.Teleop.VelMax)
	assert.Equal(t, 40.0, doc.Teleop.MaxSteeringAngle)
	assert.Equal(t, "cmd_car", doc.Teleop.CommandTopic)
	assert.Equal(t, teleop.PS3Axes, doc.Axes)
}

func TestJoyRouteRequiresUpgrade(t *testing.T) {
	_, _, get := newTestApp(t, &stubLatch{})

	resp := get("/ws/joy")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestNewAppRequiresDependencies(t *testing.T) {
	_, err := NewApp(Dependencies{}, config.Default(), customlog.NewNopLogger())
	assert.Error(t, err)
}

func TestDecodeJoyMessage(t *testing.T) {
	minAxes := teleop.PS3Axes.MinAxes()

	tests := []struct {
		name    string
		msg     string
		wantErr bool
	}{
		{"full ps3 sample", `{"axes":[0.5,0,0,0,0,0,0,0,0,0,0,0,0.1,0.2],"buttons":[0,1]}`, false},
		{"too few axes", `{"axes":[0.5,0,0]}`, true},
		{"no axes", `{"buttons":[1]}`, true},
		{"not json", `axes=1`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joy, err := decodeJoyMessage([]byte(tt.msg), minAxes)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadJoyMessage)
				return
			}
			require.NoError(t, err)
			assert.Len(t, joy.Axes, 14)
			assert.Equal(t, 0.2, joy.Axes[13])
			assert.Equal(t, []int32{0, 1}, joy.Buttons)
		})
	}
}
