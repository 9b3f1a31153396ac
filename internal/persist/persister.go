// Package persist implements the bulk persister (component C6): it takes a
// stream.Batch, groups it by source system, writes the realtime and
// historical stores, and publishes TopicDiscovery/TopicAdded/
// TopicDataUpdated for whatever it wrote. Grounded on the teacher's
// internal/storage/batch.go grouping-and-flush shape, generalized from a
// single store to the realtime/historical pair this spec requires.
package persist

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/model"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

// persisterMetrics holds OTel instruments shared by every Persister,
// registered against the global provider (a no-op until a real one is
// installed), matching the same pattern as internal/stream's
// processorMetrics and grounded on the teacher's doltMetrics/doltTracer use
// in internal/storage/dolt/access_lock.go.
var persisterMetrics struct {
	batchesProcessed metric.Int64Counter
	realtimeFailures metric.Int64Counter
	historyFailures  metric.Int64Counter
	topicsDiscovered metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/thomassorensen2650/unsinfra/persist")
	persisterMetrics.batchesProcessed, _ = m.Int64Counter("uns.persist.batches_processed",
		metric.WithDescription("Source-system groups persisted"),
		metric.WithUnit("{group}"))
	persisterMetrics.realtimeFailures, _ = m.Int64Counter("uns.persist.realtime_failures",
		metric.WithDescription("RealtimeStore.Put calls that returned an error"),
		metric.WithUnit("{failure}"))
	persisterMetrics.historyFailures, _ = m.Int64Counter("uns.persist.historical_failures",
		metric.WithDescription("HistoricalStore.PutBulk calls that returned an error"),
		metric.WithUnit("{failure}"))
	persisterMetrics.topicsDiscovered, _ = m.Int64Counter("uns.persist.topics_discovered",
		metric.WithDescription("New topics announced via TopicAdded"),
		metric.WithUnit("{topic}"))
}

// Stats is the operational counter snapshot spec §4.6/§4.8 require as part
// of the pipeline's composite Statistics.
type Stats struct {
	BatchesProcessed int64
	RealtimeFailures int64
	HistoryFailures  int64
	TopicsDiscovered int64
}

// Persister writes a stream.Batch to the realtime and historical stores,
// discovering and announcing new topics along the way.
type Persister struct {
	realtime   RealtimeStore
	historical HistoricalStore
	known      TopicKnown
	bus        *event.Bus
	log        *logging.Logger

	knownMu     sync.Mutex
	knownTopics map[string]bool

	batchesProcessed atomic.Int64
	realtimeFailures atomic.Int64
	historyFailures  atomic.Int64
	topicsDiscovered atomic.Int64
}

// New creates a Persister. known may be nil, in which case every topic is
// treated as new exactly once (no cache to consult).
func New(realtime RealtimeStore, historical HistoricalStore, known TopicKnown, bus *event.Bus, log *logging.Logger) *Persister {
	if log == nil {
		log = logging.New("persist")
	}
	return &Persister{
		realtime:    realtime,
		historical:  historical,
		known:       known,
		bus:         bus,
		log:         log,
		knownTopics: make(map[string]bool),
	}
}

// Process is the handoff target wired to stream.Processor's handler
// (component C8). Groups are processed concurrently via errgroup; order is
// preserved within each group since grouping only partitions, never
// reorders.
func (p *Persister) Process(ctx context.Context, batch stream.Batch) {
	groups := groupBySource(batch.DataPoints)

	var g errgroup.Group
	for _, group := range groups {
		group := group
		g.Go(func() error {
			p.processGroup(ctx, group)
			return nil
		})
	}
	_ = g.Wait() // processGroup never returns an error; failures are handled and logged per substep
}

func (p *Persister) processGroup(ctx context.Context, group []model.DataPoint) {
	p.batchesProcessed.Add(1)
	persisterMetrics.batchesProcessed.Add(ctx, 1)

	newTopics := p.discoverNewTopics(group)
	for _, topic := range newTopics {
		p.bus.Publish(ctx, event.TopicAdded{Meta: event.NewMeta(), Topic: topic})
	}
	if len(newTopics) > 0 {
		p.topicsDiscovered.Add(int64(len(newTopics)))
		persisterMetrics.topicsDiscovered.Add(ctx, int64(len(newTopics)))
		p.bus.Publish(ctx, event.TopicDiscovery{Meta: event.NewMeta(), Topics: newTopics})
	}

	latest := dedupeLatestPerTopic(group)
	for _, dp := range latest {
		if p.realtime == nil {
			continue
		}
		if err := p.realtime.Put(ctx, dp); err != nil {
			p.realtimeFailures.Add(1)
			persisterMetrics.realtimeFailures.Add(ctx, 1)
			p.log.Warnf("realtime store put failed for %s: %v", dp.Topic, err)
		}
	}

	if p.historical != nil {
		if err := p.historical.PutBulk(ctx, group); err != nil {
			p.historyFailures.Add(1)
			persisterMetrics.historyFailures.Add(ctx, 1)
			p.log.Warnf("historical store bulk put failed for %d points: %v", len(group), err)
		}
	}

	// Writes above are independent: a realtime failure never skips the
	// historical write or vice versa (§7, no retries).
	for _, dp := range latest {
		p.bus.Publish(ctx, event.TopicDataUpdated{
			Meta:   event.NewMeta(),
			Topic:  dp.Topic,
			Value:  dp.Value,
			Ts:     dp.Timestamp,
			Source: dp.Source,
		})
	}
}

// Stats returns a point-in-time snapshot of the persister's counters.
func (p *Persister) Stats() Stats {
	return Stats{
		BatchesProcessed: p.batchesProcessed.Load(),
		RealtimeFailures: p.realtimeFailures.Load(),
		HistoryFailures:  p.historyFailures.Load(),
		TopicsDiscovered: p.topicsDiscovered.Load(),
	}
}

// discoverNewTopics returns, in first-seen order, the topics in group that
// are neither in the local known-set nor already known to the topic-browser
// cache. Access to the local known-set is serialized by knownMu so
// concurrent groups (different source systems, possibly sharing a topic)
// never double-announce.
func (p *Persister) discoverNewTopics(group []model.DataPoint) []string {
	p.knownMu.Lock()
	defer p.knownMu.Unlock()

	var newTopics []string
	seenThisGroup := make(map[string]bool)
	for _, dp := range group {
		if seenThisGroup[dp.Topic] {
			continue
		}
		seenThisGroup[dp.Topic] = true

		if p.knownTopics[dp.Topic] {
			continue
		}
		p.knownTopics[dp.Topic] = true

		if p.known != nil {
			if _, ok := p.known.Get(dp.Topic); ok {
				continue
			}
		}
		newTopics = append(newTopics, dp.Topic)
	}
	return newTopics
}

// groupBySource partitions points by Source, preserving each point's
// relative order within its group and iterating groups in first-seen
// source order (determinism for tests; errgroup already makes cross-group
// order unobservable to callers).
func groupBySource(dps []model.DataPoint) [][]model.DataPoint {
	index := make(map[string]int)
	var buckets [][]model.DataPoint

	for _, dp := range dps {
		i, ok := index[dp.Source]
		if !ok {
			i = len(buckets)
			index[dp.Source] = i
			buckets = append(buckets, nil)
		}
		buckets[i] = append(buckets[i], dp)
	}
	return buckets
}

// dedupeLatestPerTopic keeps, for each topic, the DataPoint with the latest
// Timestamp; ties are broken by keeping the last one encountered (preserves
// original order otherwise).
func dedupeLatestPerTopic(dps []model.DataPoint) []model.DataPoint {
	var topics []string
	kept := make(map[string]model.DataPoint)

	for _, dp := range dps {
		cur, ok := kept[dp.Topic]
		if !ok {
			topics = append(topics, dp.Topic)
			kept[dp.Topic] = dp
			continue
		}
		if !dp.Timestamp.Before(cur.Timestamp) {
			kept[dp.Topic] = dp
		}
	}

	out := make([]model.DataPoint, 0, len(topics))
	for _, t := range topics {
		out = append(out, kept[t])
	}
	return out
}
