// Package stream implements the back-pressured stream processor
// (component C5): a bounded, single-reader queue that batches DataPoints
// by size or time.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// processorMetrics holds OTel instruments shared by every Processor,
// registered against the global provider (a no-op until a real one is
// installed), grounded on the teacher's doltMetrics/doltTracer pattern.
var processorMetrics struct {
	received metric.Int64Counter
	batched  metric.Int64Counter
	dropped  metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/thomassorensen2650/unsinfra/stream")
	processorMetrics.received, _ = m.Int64Counter("uns.stream.received",
		metric.WithDescription("DataPoints accepted by the stream processor"),
		metric.WithUnit("{datapoint}"))
	processorMetrics.batched, _ = m.Int64Counter("uns.stream.batched",
		metric.WithDescription("DataPoints emitted in a batch"),
		metric.WithUnit("{datapoint}"))
	processorMetrics.dropped, _ = m.Int64Counter("uns.stream.dropped",
		metric.WithDescription("DataPoints dropped due to queue overflow"),
		metric.WithUnit("{datapoint}"))
}

// Config tunes queue capacity and batching thresholds.
type Config struct {
	Capacity        int
	BatchSize       int
	BatchIntervalMs int
}

// DefaultConfig returns the spec's defaults (capacity 10000, batch size
// 1000, interval 2000ms).
func DefaultConfig() Config {
	return Config{Capacity: 10_000, BatchSize: 1_000, BatchIntervalMs: 2_000}
}

// Batch is what the reader hands off once it has enough DataPoints or
// enough time has elapsed. BatchReady is not one of the closed-set bus
// events in spec §4.1 — it is a direct, internal handoff from the stream
// processor to whoever consumes it (the bulk persister), wired by
// component C8.
type Batch struct {
	ID         string
	DataPoints []model.DataPoint
	Timestamp  time.Time
}

// Stats are the operational counters spec §4.5 requires.
type Stats struct {
	TotalReceived     int64
	TotalBatched      int64
	CurrentBufferSize int
	DropCount         int64
	LastBatchTime     time.Time
}

// Processor is the bounded, single-reader queue.
type Processor struct {
	cfg Config
	log *logging.Logger

	handler func(ctx context.Context, b Batch)

	mu    sync.Mutex
	queue []model.DataPoint

	totalReceived atomic.Int64
	totalBatched  atomic.Int64
	dropCount     atomic.Int64
	lastBatchMu   sync.Mutex
	lastBatchTime time.Time

	emitGroup singleflight.Group

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New creates a Processor. handler is invoked synchronously, once per
// emitted batch, from the single reader goroutine — it must not be called
// concurrently with itself, matching §4.5's "only one batch emitted at a
// time".
func New(cfg Config, handler func(ctx context.Context, b Batch), log *logging.Logger) *Processor {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BatchIntervalMs <= 0 {
		cfg.BatchIntervalMs = DefaultConfig().BatchIntervalMs
	}
	if log == nil {
		log = logging.New("stream.processor")
	}
	return &Processor{
		cfg:     cfg,
		log:     log,
		handler: handler,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the reader goroutine. ctx is passed through to every
// handler invocation.
func (p *Processor) Start(ctx context.Context) {
	go p.run(ctx)
}

// Enqueue is non-blocking. If the queue is at capacity, the oldest pending
// item is dropped to make room; accepted is still true (overload is
// telemetry, not an error — spec §7).
func (p *Processor) Enqueue(dp model.DataPoint) (accepted bool) {
	p.mu.Lock()
	if len(p.queue) >= p.cfg.Capacity {
		p.queue = p.queue[1:]
		p.dropCount.Add(1)
		processorMetrics.dropped.Add(context.Background(), 1)
	}
	p.queue = append(p.queue, dp)
	size := len(p.queue)
	p.mu.Unlock()

	p.totalReceived.Add(1)
	processorMetrics.received.Add(context.Background(), 1)

	if size >= p.cfg.BatchSize {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return true
}

func (p *Processor) run(ctx context.Context) {
	interval := time.Duration(p.cfg.BatchIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.maybeEmit(ctx)
		case <-p.wake:
			p.maybeEmit(ctx)
		case <-p.stop:
			p.maybeEmit(ctx) // final drain into a last batch
			close(p.done)
			return
		}
	}
}

// maybeEmit coalesces a timer-triggered emission with an in-flight
// size-triggered one (spec §4.5) via singleflight: concurrent callers join
// the single in-progress emission rather than each running their own.
func (p *Processor) maybeEmit(ctx context.Context) {
	_, _, _ = p.emitGroup.Do("emit", func() (interface{}, error) {
		p.doEmit(ctx)
		return nil, nil
	})
}

func (p *Processor) doEmit(ctx context.Context) {
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return // P7: never emit an empty batch
	}
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()

	now := time.Now()
	p.totalBatched.Add(int64(len(batch)))
	processorMetrics.batched.Add(ctx, int64(len(batch)))

	p.lastBatchMu.Lock()
	p.lastBatchTime = now
	p.lastBatchMu.Unlock()

	if p.handler != nil {
		p.handler(ctx, Batch{ID: uuid.NewString(), DataPoints: batch, Timestamp: now})
	}
}

// Stop signals the reader to stop, drains remaining items into a final
// batch, and waits for it to exit.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.done
}

// Stats returns a point-in-time snapshot of the processor's counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	bufSize := len(p.queue)
	p.mu.Unlock()

	p.lastBatchMu.Lock()
	last := p.lastBatchTime
	p.lastBatchMu.Unlock()

	return Stats{
		TotalReceived:     p.totalReceived.Load(),
		TotalBatched:      p.totalBatched.Load(),
		CurrentBufferSize: bufSize,
		DropCount:         p.dropCount.Load(),
		LastBatchTime:     last,
	}
}
