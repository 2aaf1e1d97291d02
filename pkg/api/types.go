package api

import (
	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/processing"
	"github.com/open-teleop/teleop-bridge/pkg/zeromq"
)

// BridgeStatus exposes the bridge state
type BridgeStatus interface {
	Status() teleop.Status
}

// SampleQueue is the input queue as seen by the API
type SampleQueue interface {
	Enqueue(j teleop.Joy) bool
	Metrics() processing.QueueMetrics
}

// JoyCounter reports transport-level counts for the joy topic
type JoyCounter interface {
	JoyCounts() (received, rejected int64)
}

// Dependencies are the components the routes read from.
// Joy may be nil when the ZeroMQ input is not running.
type Dependencies struct {
	Bridge   BridgeStatus
	Commands zeromq.LatchSource
	Queue    SampleQueue
	Joy      JoyCounter
	Params   teleop.Params
}

// JoyCounts mirrors JoyCounter in the status response
type JoyCounts struct {
	Received int64 `json:"received"`
	Rejected int64 `json:"rejected"`
}

// StatusResponse is the body of GET /api/v1/teleop/status
type StatusResponse struct {
	Bridge teleop.Status           `json:"bridge"`
	Queue  processing.QueueMetrics `json:"queue"`
	Joy    *JoyCounts              `json:"joy,omitempty"`
}
