package event

import (
	"context"
	"sync"

	"github.com/thomassorensen2650/unsinfra/internal/logging"
)

// subscriber owns an unbounded FIFO queue and a single consumer goroutine,
// guaranteeing that events of the same type reach this subscriber in
// publish order while never blocking delivery to any other subscriber.
type subscriber struct {
	id      uint64
	log     *logging.Logger
	handler func(ctx context.Context, e Event)

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []queuedEvent
	closed bool
}

type queuedEvent struct {
	ctx context.Context
	ev  Event
}

func newSubscriber(id uint64, log *logging.Logger, handler func(ctx context.Context, e Event)) *subscriber {
	s := &subscriber{id: id, log: log, handler: handler}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

func (s *subscriber) enqueue(ctx context.Context, e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, queuedEvent{ctx: ctx, ev: e})
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *subscriber) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.invoke(next.ctx, next.ev)
	}
}

// invoke runs the handler with panic recovery: a handler failure is logged
// and must never prevent delivery to other handlers or subsequent events
// (spec §4.1, §7).
func (s *subscriber) invoke(ctx context.Context, e Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("handler panic for %T: %v", e, r)
		}
	}()
	s.handler(ctx, e)
}
