// Package memstore provides in-memory RealtimeStore and HistoricalStore
// implementations (spec §6) for standalone runs and tests. Grounded on the
// teacher's internal/storage memory-backend shape: plain maps/slices behind
// a single RWMutex, no external I/O.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// Realtime holds exactly one record per topic: its latest value.
type Realtime struct {
	mu     sync.RWMutex
	latest map[string]model.DataPoint
}

// NewRealtime creates an empty Realtime store.
func NewRealtime() *Realtime {
	return &Realtime{latest: make(map[string]model.DataPoint)}
}

func (s *Realtime) Put(ctx context.Context, dp model.DataPoint) error {
	s.mu.Lock()
	s.latest[dp.Topic] = dp
	s.mu.Unlock()
	return nil
}

func (s *Realtime) GetLatest(ctx context.Context, topic string) (model.DataPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dp, ok := s.latest[topic]
	return dp, ok, nil
}

// Historical is an append-only in-memory log of every DataPoint written,
// indexed by topic for Query.
type Historical struct {
	mu     sync.RWMutex
	byTopic map[string][]model.DataPoint
}

// NewHistorical creates an empty Historical store.
func NewHistorical() *Historical {
	return &Historical{byTopic: make(map[string][]model.DataPoint)}
}

func (s *Historical) Put(ctx context.Context, dp model.DataPoint) error {
	s.mu.Lock()
	s.byTopic[dp.Topic] = append(s.byTopic[dp.Topic], dp)
	s.mu.Unlock()
	return nil
}

func (s *Historical) PutBulk(ctx context.Context, dps []model.DataPoint) error {
	s.mu.Lock()
	for _, dp := range dps {
		s.byTopic[dp.Topic] = append(s.byTopic[dp.Topic], dp)
	}
	s.mu.Unlock()
	return nil
}

// Query streams every point for topic within [from, to], in the order they
// were written. The returned channel is closed once exhausted or ctx is
// cancelled.
func (s *Historical) Query(ctx context.Context, topic string, from, to time.Time) <-chan model.DataPoint {
	out := make(chan model.DataPoint)
	s.mu.RLock()
	points := append([]model.DataPoint(nil), s.byTopic[topic]...)
	s.mu.RUnlock()

	go func() {
		defer close(out)
		for _, dp := range points {
			if dp.Timestamp.Before(from) || dp.Timestamp.After(to) {
				continue
			}
			select {
			case out <- dp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
