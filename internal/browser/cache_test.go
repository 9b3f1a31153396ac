package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/model"
)

type fakeRepo struct {
	byTopic map[string]model.TopicConfiguration
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byTopic: make(map[string]model.TopicConfiguration)} }

func (f *fakeRepo) GetByTopic(ctx context.Context, topic string) (model.TopicConfiguration, bool, error) {
	cfg, ok := f.byTopic[topic]
	return cfg, ok, nil
}
func (f *fakeRepo) GetAll(ctx context.Context) ([]model.TopicConfiguration, error) {
	out := make([]model.TopicConfiguration, 0, len(f.byTopic))
	for _, cfg := range f.byTopic {
		out = append(out, cfg)
	}
	return out, nil
}
func (f *fakeRepo) Save(ctx context.Context, cfg model.TopicConfiguration) error {
	f.byTopic[cfg.Topic] = cfg
	return nil
}
func (f *fakeRepo) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeRepo) Verify(ctx context.Context, id, by string) error { return nil }

func TestCache_InitializeLoadsFromRepository(t *testing.T) {
	repo := newFakeRepo()
	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "A/B", Active: true}

	c := New(repo, nil)
	require.NoError(t, c.Initialize(context.Background()))

	info, ok := c.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "A/B", info.NSPath)
	assert.True(t, info.Configured)
}

func TestCache_InitializeIsOneShot(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo, nil)

	require.NoError(t, c.Initialize(context.Background()))
	repo.byTopic["late"] = model.TopicConfiguration{Topic: "late"}
	require.NoError(t, c.Initialize(context.Background())) // second call is a no-op

	_, ok := c.Get("late")
	assert.False(t, ok)
}

func TestCache_MergeRule_ConfiguredShadowsDiscovered(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo, nil)
	require.NoError(t, c.Initialize(context.Background()))

	c.onConnectionDataReceived("t1", time.Now(), 1)
	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "A"}
	require.NoError(t, c.UpdateTopic(context.Background(), "t1")) // promotes t1 into configured; its discovered entry stays behind it

	all := c.AllTopics()
	var count int
	for _, info := range all {
		if info.Topic == "t1" {
			count++
		}
	}
	assert.Equal(t, 1, count, "P2: no duplicates across configured/discovered")
}

func TestCache_NamespaceIndexMatchesConfigured(t *testing.T) {
	repo := newFakeRepo()
	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "A/B"}
	repo.byTopic["t2"] = model.TopicConfiguration{Topic: "t2", NSPath: "A/B"}
	c := New(repo, nil)
	require.NoError(t, c.Initialize(context.Background()))

	list := c.GetByNamespace("A/B")
	require.Len(t, list, 2)
	for _, info := range list {
		assert.Equal(t, "A/B", info.NSPath) // P1
	}
}

func TestCache_UpdateTopic_FiresAddedThenUpdated(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo, nil)
	require.NoError(t, c.Initialize(context.Background()))

	var kinds []NotificationKind
	c.SetChangeHandler(func(n Notification) { kinds = append(kinds, n.Kind) })

	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "A"}
	require.NoError(t, c.UpdateTopic(context.Background(), "t1"))

	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "B"}
	require.NoError(t, c.UpdateTopic(context.Background(), "t1"))

	require.Equal(t, []NotificationKind{TopicsAdded, TopicsUpdated}, kinds)

	info, _ := c.Get("t1")
	assert.Equal(t, "B", info.NSPath)
}

func TestCache_UpdateTopic_RemovedWhenGoneFromRepository(t *testing.T) {
	repo := newFakeRepo()
	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "A"}
	c := New(repo, nil)
	require.NoError(t, c.Initialize(context.Background()))

	var kinds []NotificationKind
	c.SetChangeHandler(func(n Notification) { kinds = append(kinds, n.Kind) })

	delete(repo.byTopic, "t1")
	require.NoError(t, c.UpdateTopic(context.Background(), "t1"))

	assert.Equal(t, []NotificationKind{TopicsRemoved}, kinds)
	_, ok := c.Get("t1")
	assert.False(t, ok)
}

func TestCache_BulkReassign_FiresOneNotification(t *testing.T) {
	repo := newFakeRepo()
	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "A"}
	repo.byTopic["t2"] = model.TopicConfiguration{Topic: "t2", NSPath: "A"}
	c := New(repo, nil)
	require.NoError(t, c.Initialize(context.Background()))

	repo.byTopic["t1"] = model.TopicConfiguration{Topic: "t1", NSPath: "B"}
	repo.byTopic["t2"] = model.TopicConfiguration{Topic: "t2", NSPath: "B"}

	var notifications []Notification
	c.SetChangeHandler(func(n Notification) { notifications = append(notifications, n) })

	require.NoError(t, c.BulkReassign(context.Background(), []string{"t1", "t2"}, "B"))

	require.Len(t, notifications, 1)
	assert.Equal(t, TopicsAutoMapped, notifications[0].Kind)
	assert.ElementsMatch(t, []string{"t1", "t2"}, notifications[0].Topics)
	assert.Len(t, c.GetByNamespace("B"), 2)
}

func TestCache_SubscribePreservesTopicAddedBeforeDataUpdated(t *testing.T) {
	bus := event.New(nil)
	c := New(newFakeRepo(), nil)
	require.NoError(t, c.Initialize(context.Background()))
	cancel := c.Subscribe(bus)
	defer cancel()

	bus.Publish(context.Background(), event.TopicAdded{Meta: event.NewMeta(), Topic: "t1"})
	bus.Publish(context.Background(), event.TopicDataUpdated{Meta: event.NewMeta(), Topic: "t1", Value: 42, Ts: time.Now()})

	require.Eventually(t, func() bool {
		info, ok := c.Get("t1")
		return ok && !info.LastDataTimestamp.IsZero()
	}, time.Second, time.Millisecond)

	v, ok := c.LastValue("t1")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}
