package automapper

import (
	"context"
	"sync"
	"time"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
)

const (
	// BatchSize is the maximum number of topics flushed per tick.
	BatchSize = 50
	// BatchInterval is how often pending topics are flushed even if
	// BatchSize has not been reached.
	BatchInterval = 2 * time.Second
)

// Worker consumes TopicAdded events whose binding is empty, batches them,
// and emits TopicAutoMapped or TopicAutoMappingFailed for each (spec §4.4).
type Worker struct {
	mapper *Mapper
	bus    *event.Bus
	log    *logging.Logger

	mu    sync.Mutex
	queue []string

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	unsubTopicAdded       event.CancelFunc
	unsubStructureChanged event.CancelFunc
}

// NewWorker creates a Worker reading TopicAdded events off bus.
func NewWorker(mapper *Mapper, bus *event.Bus, log *logging.Logger) *Worker {
	if log == nil {
		log = logging.New("automapper.worker")
	}
	return &Worker{
		mapper: mapper,
		bus:    bus,
		log:    log,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the bus and begins the batching loop.
func (w *Worker) Start(ctx context.Context) {
	w.unsubTopicAdded = event.Subscribe(w.bus, w.onTopicAdded)
	w.unsubStructureChanged = w.mapper.Subscribe(w.bus)
	go w.run(ctx)
}

// Stop drains the queue once (flushing everything pending) and
// unsubscribes from the bus. Blocks until the drain completes.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
	if w.unsubTopicAdded != nil {
		w.unsubTopicAdded()
	}
	if w.unsubStructureChanged != nil {
		w.unsubStructureChanged()
	}
}

func (w *Worker) onTopicAdded(_ context.Context, e event.TopicAdded) {
	if e.NSPath != "" {
		return // already bound, nothing to map
	}
	if !w.mapper.ShouldAttempt(e.Topic) {
		return
	}

	w.mu.Lock()
	w.queue = append(w.queue, e.Topic)
	full := len(w.queue) >= BatchSize
	w.mu.Unlock()

	if full {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx, BatchSize)
		case <-w.wake:
			w.flush(ctx, BatchSize)
		case <-w.stop:
			w.drainAll(ctx)
			close(w.done)
			return
		}
	}
}

// drainAll flushes the queue to completion, used on shutdown.
func (w *Worker) drainAll(ctx context.Context) {
	for {
		w.mu.Lock()
		empty := len(w.queue) == 0
		w.mu.Unlock()
		if empty {
			return
		}
		w.flush(ctx, BatchSize)
	}
}

func (w *Worker) flush(ctx context.Context, max int) {
	w.mu.Lock()
	n := max
	if n > len(w.queue) {
		n = len(w.queue)
	}
	batch := w.queue[:n]
	w.queue = w.queue[n:]
	w.mu.Unlock()

	for _, topic := range batch {
		if nspath, ok := w.mapper.Map(topic); ok {
			w.bus.Publish(ctx, event.TopicAutoMapped{
				Meta:       event.NewMeta(),
				Topic:      topic,
				NSPath:     nspath,
				Confidence: 1.0,
			})
		} else {
			w.bus.Publish(ctx, event.TopicAutoMappingFailed{
				Meta:   event.NewMeta(),
				Topic:  topic,
				Reason: "No matching namespace found in UNS structure",
			})
		}
	}
}
