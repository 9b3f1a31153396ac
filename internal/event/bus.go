package event

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/thomassorensen2650/unsinfra/internal/logging"
)

// Bus is a typed, in-process publish/subscribe fan-out. Subscribe is a
// package-level generic function (Go has no generic methods) so that
// handlers are registered with their concrete event type and never need a
// type assertion.
//
// Each subscriber owns its own ordered delivery queue and goroutine, so a
// slow handler only ever delays delivery to itself, never to sibling
// subscribers — matching the spec's "a slow handler must not starve other
// subscribers" requirement. Publish returns once every matching
// subscriber's event has been enqueued, not once every handler has
// finished running.
type Bus struct {
	mu     sync.RWMutex
	subs   map[reflect.Type][]*subscriber
	nextID uint64
	log    *logging.Logger
	sink   Sink // optional external fan-out, e.g. the NATS JetStream sink
}

// Sink is an optional external fan-out target for bus events (see
// natssink.go). It never gates in-process delivery.
type Sink interface {
	Publish(e Event)
}

// New creates an empty Bus.
func New(log *logging.Logger) *Bus {
	if log == nil {
		log = logging.New("event")
	}
	return &Bus{subs: make(map[reflect.Type][]*subscriber), log: log}
}

// SetSink attaches an optional external sink. Errors publishing to it are
// logged and never block or fail in-process delivery.
func (b *Bus) SetSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = s
}

// CancelFunc unsubscribes the handler it was returned for. Calling it more
// than once is a no-op (idempotent, per spec §4.1).
type CancelFunc func()

// Subscribe registers handler for events of type E. The returned CancelFunc
// unsubscribes it.
func Subscribe[E Event](b *Bus, handler func(ctx context.Context, e E)) CancelFunc {
	var zero E
	t := reflect.TypeOf(zero)

	id := atomic.AddUint64(&b.nextID, 1)
	sub := newSubscriber(id, b.log, func(ctx context.Context, e Event) {
		typed, ok := e.(E)
		if !ok {
			return
		}
		handler(ctx, typed)
	})

	b.mu.Lock()
	b.subs[t] = append(b.subs[t], sub)
	b.mu.Unlock()

	var done int32
	return func() {
		if !atomic.CompareAndSwapInt32(&done, 0, 1) {
			return
		}
		b.removeSubscriber(t, id)
		sub.close()
	}
}

// SubscribeMulti registers one handler across several event types, all
// routed through a single ordered queue and goroutine. Unlike independent
// Subscribe calls (one queue per type), this gives the caller delivery
// ordering across those types too — needed by consumers like the
// topic-browser cache that must observe TopicAdded before TopicDataUpdated
// for the same topic (spec §5, property P5). zeros are only used to derive
// each type's reflect.Type; their field values are ignored.
func SubscribeMulti(b *Bus, handler func(ctx context.Context, e Event), zeros ...Event) CancelFunc {
	id := atomic.AddUint64(&b.nextID, 1)
	sub := newSubscriber(id, b.log, handler)

	types := make([]reflect.Type, len(zeros))
	b.mu.Lock()
	for i, z := range zeros {
		t := reflect.TypeOf(z)
		types[i] = t
		b.subs[t] = append(b.subs[t], sub)
	}
	b.mu.Unlock()

	var done int32
	return func() {
		if !atomic.CompareAndSwapInt32(&done, 0, 1) {
			return
		}
		for _, t := range types {
			b.removeSubscriber(t, id)
		}
		sub.close()
	}
}

func (b *Bus) removeSubscriber(t reflect.Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[t]
	for i, s := range list {
		if s.id == id {
			b.subs[t] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Publish fans event out to every current subscriber of its concrete type.
// It returns once every subscriber's event has been scheduled (enqueued),
// not once handlers have completed.
func (b *Bus) Publish(ctx context.Context, e Event) {
	t := reflect.TypeOf(e)

	b.mu.RLock()
	subs := make([]*subscriber, len(b.subs[t]))
	copy(subs, b.subs[t])
	sink := b.sink
	b.mu.RUnlock()

	for _, s := range subs {
		s.enqueue(ctx, e)
	}

	if sink != nil {
		sink.Publish(e)
	}
}
