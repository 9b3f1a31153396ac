package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/model"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

type fakeRealtime struct {
	mu   sync.Mutex
	puts []model.DataPoint
	err  error
}

func (f *fakeRealtime) Put(ctx context.Context, dp model.DataPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, dp)
	return f.err
}
func (f *fakeRealtime) GetLatest(ctx context.Context, topic string) (model.DataPoint, bool, error) {
	return model.DataPoint{}, false, nil
}

type fakeHistorical struct {
	mu   sync.Mutex
	bulk [][]model.DataPoint
	err  error
}

func (f *fakeHistorical) Put(ctx context.Context, dp model.DataPoint) error { return nil }
func (f *fakeHistorical) PutBulk(ctx context.Context, dps []model.DataPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]model.DataPoint(nil), dps...)
	f.bulk = append(f.bulk, cp)
	return f.err
}

type fakeKnown struct{ known map[string]bool }

func (f *fakeKnown) Get(topic string) (model.TopicInfo, bool) {
	if f.known[topic] {
		return model.TopicInfo{Topic: topic}, true
	}
	return model.TopicInfo{}, false
}

func dp(topic, source string, value int, ts time.Time) model.DataPoint {
	return model.DataPoint{Topic: topic, Source: source, Value: value, Timestamp: ts}
}

func TestPersister_DedupesToLatestPerTopicForRealtime(t *testing.T) {
	rt := &fakeRealtime{}
	hist := &fakeHistorical{}
	p := New(rt, hist, &fakeKnown{known: map[string]bool{}}, event.New(nil), nil)

	now := time.Now()
	batch := stream.Batch{DataPoints: []model.DataPoint{
		dp("t1", "plc1", 1, now),
		dp("t1", "plc1", 2, now.Add(time.Second)),
		dp("t1", "plc1", 3, now.Add(500 * time.Millisecond)),
	}}
	p.Process(context.Background(), batch)

	require.Len(t, rt.puts, 1)
	assert.Equal(t, 2, rt.puts[0].Value) // latest timestamp wins

	require.Len(t, hist.bulk, 1)
	assert.Len(t, hist.bulk[0], 3) // historical keeps every point
}

func TestPersister_DiscoversNewTopicsOnlyOnce(t *testing.T) {
	rt := &fakeRealtime{}
	hist := &fakeHistorical{}
	bus := event.New(nil)
	p := New(rt, hist, &fakeKnown{known: map[string]bool{}}, bus, nil)

	discoveries := make(chan event.TopicDiscovery, 10)
	cancel := event.Subscribe(bus, func(_ context.Context, e event.TopicDiscovery) { discoveries <- e })
	defer cancel()

	now := time.Now()
	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{dp("new1", "plc1", 1, now)}})
	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{dp("new1", "plc1", 2, now)}})

	select {
	case e := <-discoveries:
		assert.Equal(t, []string{"new1"}, e.Topics)
	case <-time.After(time.Second):
		t.Fatal("expected a TopicDiscovery for the first batch")
	}

	select {
	case e := <-discoveries:
		t.Fatalf("unexpected second TopicDiscovery: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPersister_TopicAddedPrecedesTopicDataUpdated(t *testing.T) {
	rt := &fakeRealtime{}
	hist := &fakeHistorical{}
	bus := event.New(nil)
	p := New(rt, hist, &fakeKnown{known: map[string]bool{}}, bus, nil)

	var mu sync.Mutex
	var seenAdded, seenUpdated bool
	var orderOK bool

	cancel := event.SubscribeMulti(bus, func(_ context.Context, e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch e.(type) {
		case event.TopicAdded:
			seenAdded = true
		case event.TopicDataUpdated:
			if seenAdded {
				orderOK = true
			}
			seenUpdated = true
		}
	}, event.TopicAdded{}, event.TopicDataUpdated{})
	defer cancel()

	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{dp("t1", "plc1", 1, time.Now())}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seenUpdated
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seenAdded)
	assert.True(t, orderOK)
}

func TestPersister_KnownTopicIsNotRediscovered(t *testing.T) {
	rt := &fakeRealtime{}
	hist := &fakeHistorical{}
	bus := event.New(nil)
	p := New(rt, hist, &fakeKnown{known: map[string]bool{"existing": true}}, bus, nil)

	discoveries := make(chan event.TopicDiscovery, 10)
	cancel := event.Subscribe(bus, func(_ context.Context, e event.TopicDiscovery) { discoveries <- e })
	defer cancel()

	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{dp("existing", "plc1", 1, time.Now())}})

	select {
	case e := <-discoveries:
		t.Fatalf("unexpected TopicDiscovery for an already-known topic: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPersister_StatsCountBatchesTopicsAndFailures(t *testing.T) {
	rt := &fakeRealtime{err: errors.New("realtime boom")}
	hist := &fakeHistorical{err: errors.New("history boom")}
	p := New(rt, hist, &fakeKnown{known: map[string]bool{}}, event.New(nil), nil)

	now := time.Now()
	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{
		dp("a", "plcA", 1, now),
		dp("b", "plcB", 1, now),
	}})

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.BatchesProcessed) // two source groups, each one batch
	assert.Equal(t, int64(2), stats.TopicsDiscovered)
	assert.Equal(t, int64(2), stats.RealtimeFailures)
	assert.Equal(t, int64(2), stats.HistoryFailures)
}

func TestPersister_RealtimeFailureDoesNotSkipHistoricalWrite(t *testing.T) {
	rt := &fakeRealtime{err: errors.New("boom")}
	hist := &fakeHistorical{}
	p := New(rt, hist, &fakeKnown{known: map[string]bool{}}, event.New(nil), nil)

	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{dp("t1", "plc1", 1, time.Now())}})

	assert.Len(t, rt.puts, 1)
	require.Len(t, hist.bulk, 1)
	assert.Len(t, hist.bulk[0], 1)
}

func TestPersister_GroupsBySourcePreservingWithinGroupOrder(t *testing.T) {
	rt := &fakeRealtime{}
	hist := &fakeHistorical{}
	p := New(rt, hist, &fakeKnown{known: map[string]bool{}}, event.New(nil), nil)

	now := time.Now()
	p.Process(context.Background(), stream.Batch{DataPoints: []model.DataPoint{
		dp("a", "plcA", 1, now),
		dp("b", "plcB", 1, now),
		dp("a", "plcA", 2, now.Add(time.Millisecond)),
		dp("b", "plcB", 2, now.Add(time.Millisecond)),
	}})

	require.Len(t, hist.bulk, 2)
	for _, group := range hist.bulk {
		require.Len(t, group, 2)
		assert.Equal(t, group[0].Source, group[1].Source)
		assert.True(t, group[1].Timestamp.After(group[0].Timestamp) || group[1].Timestamp.Equal(group[0].Timestamp))
	}
}
