// Package pipeline implements the ingestion pipeline façade (component C8):
// it owns the stream processor and bulk persister, wires the handoff
// between them, and exposes the public Ingest surface. Grounded on the
// teacher's daemon lifecycle (internal/daemon) for the Created/Running/
// Draining/Stopped state machine and bounded-drain shutdown.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/model"
	"github.com/thomassorensen2650/unsinfra/internal/persist"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

var tracer = otel.Tracer("github.com/thomassorensen2650/unsinfra/pipeline")

// State is the pipeline's lifecycle state. Transitions are one-way:
// Created -> Running -> Draining -> Stopped.
type State int32

const (
	Created State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// DefaultDrainTimeout bounds how long Stop waits for in-flight batches.
const DefaultDrainTimeout = 10 * time.Second

// Statistics is the composite view spec §4.8 requires: upstream (stream)
// and bulk (persister) statistics plus throughput.
type Statistics struct {
	Stream       stream.Stats
	Bulk         persist.Stats
	StartedAt    time.Time
	Uptime       time.Duration
	ThroughputPS float64 // received / uptime seconds
}

// Pipeline is the top-level façade.
type Pipeline struct {
	log *logging.Logger

	processor *stream.Processor
	persister *persist.Persister

	state     atomic.Int32
	startedAt time.Time

	drainTimeout time.Duration
	stopOnce     sync.Once
}

// New wires a stream.Processor to the persister's Process method and
// returns a Pipeline ready for Start.
func New(cfg stream.Config, persister *persist.Persister, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.New("pipeline")
	}
	p := &Pipeline{log: log, persister: persister, drainTimeout: DefaultDrainTimeout}
	p.processor = stream.New(cfg, p.handleBatch, log)
	return p
}

func (p *Pipeline) handleBatch(ctx context.Context, b stream.Batch) {
	ctx, span := tracer.Start(ctx, "pipeline.persist_batch")
	defer span.End()
	p.persister.Process(ctx, b)
}

// Start transitions Created -> Running and launches the stream processor.
// Idempotent: calling it again once Running is a no-op.
func (p *Pipeline) Start(ctx context.Context) {
	if !p.state.CompareAndSwap(int32(Created), int32(Running)) {
		return
	}
	p.startedAt = time.Now()
	p.processor.Start(ctx)
}

// Ingest delegates to the stream processor. Returns false once the
// pipeline has entered Draining or Stopped (spec §4.8, §7).
func (p *Pipeline) Ingest(ctx context.Context, dp model.DataPoint) bool {
	if State(p.state.Load()) != Running {
		return false
	}
	_, span := tracer.Start(ctx, "pipeline.ingest")
	defer span.End()
	return p.processor.Enqueue(dp)
}

// IngestMany enqueues every point, returning how many were accepted.
func (p *Pipeline) IngestMany(ctx context.Context, dps []model.DataPoint) int {
	var accepted int
	for _, dp := range dps {
		if p.Ingest(ctx, dp) {
			accepted++
		}
	}
	return accepted
}

// Stop transitions Running -> Draining -> Stopped, flushing pending batches
// with a bounded deadline. Idempotent and safe to call from any state.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		for {
			cur := State(p.state.Load())
			if cur == Stopped || cur == Draining {
				return
			}
			if p.state.CompareAndSwap(int32(cur), int32(Draining)) {
				break
			}
		}

		done := make(chan struct{})
		go func() {
			p.processor.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(p.drainTimeout):
			p.log.Warnf("drain deadline (%s) exceeded; stopping with batches still in flight", p.drainTimeout)
		}

		p.state.Store(int32(Stopped))
	})
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Statistics returns the composite operational snapshot.
func (p *Pipeline) Statistics() Statistics {
	s := p.processor.Stats()
	uptime := time.Since(p.startedAt)
	var throughput float64
	if uptime > 0 {
		throughput = float64(s.TotalReceived) / uptime.Seconds()
	}
	return Statistics{
		Stream:       s,
		Bulk:         p.persister.Stats(),
		StartedAt:    p.startedAt,
		Uptime:       uptime,
		ThroughputPS: throughput,
	}
}

// String implements fmt.Stringer for convenient logging.
func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline[state=%s]", p.State())
}
