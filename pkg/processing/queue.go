package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

const instrumentationName = "github.com/open-teleop/teleop-bridge/pkg/processing"

// SampleHandler consumes samples in arrival order.
type SampleHandler func(j teleop.Joy)

// QueueMetrics tracks counters for a SampleQueue
type QueueMetrics struct {
	EnqueuedCount     int64 `json:"enqueued"`
	ProcessedCount    int64 `json:"processed"`
	DroppedCount      int64 `json:"dropped"`
	LastProcessedTime int64 `json:"last_processed_ns"`
	ProcessingTimeMax int64 `json:"processing_time_max_us"`
	QueueLength       int   `json:"queue_length"`
	QueueCapacity     int   `json:"queue_capacity"`
}

// SampleQueue is a bounded FIFO between input sources and the bridge.
// Enqueue never blocks; when the buffer is full the oldest sample is evicted.
// A single worker delivers samples so the handler sees them in order.
type SampleQueue struct {
	name    string
	logger  customlog.Logger
	handler SampleHandler
	queue   chan teleop.Joy

	// mu is read-held by producers and write-held by Stop so the channel
	// is never closed under a pending send.
	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup

	metricsMu sync.Mutex
	metrics   QueueMetrics

	processed metric.Int64Counter
	dropped   metric.Int64Counter
	attrs     metric.MeasurementOption
}

// NewSampleQueue creates a queue holding at most depth samples.
func NewSampleQueue(name string, depth int, handler SampleHandler, logger customlog.Logger) (*SampleQueue, error) {
	if depth < 1 {
		return nil, fmt.Errorf("sample queue depth must be at least 1, got %d", depth)
	}
	if handler == nil {
		return nil, fmt.Errorf("sample queue %s requires a handler", name)
	}

	q := &SampleQueue{
		name:    name,
		logger:  logger.WithField("queue", name),
		handler: handler,
		queue:   make(chan teleop.Joy, depth),
		attrs:   metric.WithAttributes(attribute.String("queue", name)),
	}
	q.metrics.QueueCapacity = depth

	m := otel.Meter(instrumentationName)
	var err error
	q.processed, err = m.Int64Counter("teleop.samples.processed",
		metric.WithDescription("Samples delivered to the bridge"))
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	q.dropped, err = m.Int64Counter("teleop.samples.dropped",
		metric.WithDescription("Samples evicted because the queue was full"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return q, nil
}

// Enqueue adds a sample, evicting the oldest one if the queue is full.
// It returns false only when the queue is not running.
func (q *SampleQueue) Enqueue(j teleop.Joy) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running {
		q.logger.Warnf("%s queue not running, discarding sample", q.name)
		return false
	}

	q.metricsMu.Lock()
	q.metrics.EnqueuedCount++
	q.metricsMu.Unlock()

	for {
		select {
		case q.queue <- j:
			return true
		default:
		}

		// Full: make room by discarding the oldest sample. Another producer
		// or the worker may win the race, in which case we simply retry.
		select {
		case <-q.queue:
			q.recordDrop()
		default:
		}
	}
}

func (q *SampleQueue) recordDrop() {
	q.metricsMu.Lock()
	q.metrics.DroppedCount++
	q.metricsMu.Unlock()
	q.dropped.Add(context.Background(), 1, q.attrs)
	q.logger.Debugf("%s queue full, dropped oldest sample", q.name)
}

// Start launches the worker.
func (q *SampleQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.logger.Infof("Starting %s queue (depth %d)", q.name, cap(q.queue))

	q.wg.Add(1)
	go q.worker()
}

// Stop closes the queue and waits for the worker to drain it.
func (q *SampleQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.queue)
	q.mu.Unlock()

	q.logger.Infof("Stopping %s queue", q.name)
	q.wg.Wait()

	m := q.Metrics()
	q.logger.Infof("%s queue metrics: enqueued=%d, processed=%d, dropped=%d, max_time=%dµs",
		q.name, m.EnqueuedCount, m.ProcessedCount, m.DroppedCount, m.ProcessingTimeMax)
}

// worker must stay single: the handler relies on in-order delivery.
func (q *SampleQueue) worker() {
	defer q.wg.Done()

	for j := range q.queue {
		start := time.Now()
		q.handler(j)
		elapsed := time.Since(start).Microseconds()

		q.metricsMu.Lock()
		q.metrics.ProcessedCount++
		q.metrics.LastProcessedTime = time.Now().UnixNano()
		if elapsed > q.metrics.ProcessingTimeMax {
			q.metrics.ProcessingTimeMax = elapsed
		}
		q.metricsMu.Unlock()

		q.processed.Add(context.Background(), 1, q.attrs)
	}
}

// Metrics returns a copy of the current counters.
func (q *SampleQueue) Metrics() QueueMetrics {
	q.metricsMu.Lock()
	m := q.metrics
	q.metricsMu.Unlock()
	m.QueueLength = len(q.queue)
	return m
}

// Name returns the queue name
func (q *SampleQueue) Name() string {
	return q.name
}
