package browser

import (
	"context"
	"time"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// Subscribe wires the cache to the bus (spec §4.7). TopicAdded,
// TopicDataUpdated, TopicVerified, TopicConfigurationUpdated,
// BulkTopicsAdded and ConnectionDataReceived share one ordered queue via
// SubscribeMulti, so a TopicAdded for a topic is always observed here
// before any TopicDataUpdated for the same topic (P5) — independent
// per-type subscriptions would not guarantee that relative order.
// NamespaceStructureChanged is independent: it only ever triggers an index
// rebuild, which has no ordering dependency on the other six.
func (c *Cache) Subscribe(bus *event.Bus) event.CancelFunc {
	cancelGroup := event.SubscribeMulti(bus, c.dispatch,
		event.TopicAdded{}, event.TopicDataUpdated{}, event.TopicVerified{},
		event.TopicConfigurationUpdated{}, event.BulkTopicsAdded{}, event.ConnectionDataReceived{})
	cancelStructure := event.Subscribe(bus, c.onNamespaceStructureChanged)

	c.unsubs = append(c.unsubs, cancelGroup, cancelStructure)
	return func() {
		cancelGroup()
		cancelStructure()
	}
}

func (c *Cache) dispatch(ctx context.Context, e event.Event) {
	switch ev := e.(type) {
	case event.TopicAdded:
		c.onTopicAdded(ev.Topic)
	case event.TopicDataUpdated:
		c.onTopicDataUpdated(ev.Topic, ev.Ts, ev.Value)
	case event.TopicVerified:
		c.onTopicConfigurationUpdated(ctx, ev.Topic)
	case event.TopicConfigurationUpdated:
		c.onTopicConfigurationUpdated(ctx, ev.Topic)
	case event.BulkTopicsAdded:
		for _, topic := range ev.Topics {
			c.onTopicAdded(topic)
		}
	case event.ConnectionDataReceived:
		c.onConnectionDataReceived(ev.Topic, ev.Timestamp, ev.Value)
	}
}

// onTopicAdded inserts topic into configured if it has never been seen
// under either map — the persister only emits TopicAdded the first time a
// topic is discovered, so "unseen" here means absent everywhere (spec
// §4.7 literal wording: "insert into configured if unseen").
func (c *Cache) onTopicAdded(topic string) {
	c.mu.Lock()
	_, inConfigured := c.configured[topic]
	_, inDiscovered := c.discovered[topic]
	if !inConfigured && !inDiscovered {
		c.configured[topic] = model.TopicInfo{Topic: topic}
		c.rebuildNamespaceIndexLocked()
	}
	c.mu.Unlock()
}

func (c *Cache) onTopicDataUpdated(topic string, ts time.Time, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastValue[topic] = value
	if info, ok := c.configured[topic]; ok {
		info.LastDataTimestamp = ts
		c.configured[topic] = info
		return
	}
	info := c.discovered[topic]
	info.Topic = topic
	info.LastDataTimestamp = ts
	c.discovered[topic] = info
}

func (c *Cache) onConnectionDataReceived(topic string, ts time.Time, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, configured := c.configured[topic]; configured {
		return // configured shadows discovered — nothing to do here
	}
	c.lastValue[topic] = value
	info := c.discovered[topic]
	info.Topic = topic
	info.LastDataTimestamp = ts
	c.discovered[topic] = info
}

func (c *Cache) onTopicConfigurationUpdated(ctx context.Context, topic string) {
	if c.repo == nil {
		return
	}
	if err := c.UpdateTopic(ctx, topic); err != nil {
		c.log.Warnf("failed to reconcile %s after configuration change: %v", topic, err)
	}
}

func (c *Cache) onNamespaceStructureChanged(_ context.Context, _ event.NamespaceStructureChanged) {
	c.mu.Lock()
	c.rebuildNamespaceIndexLocked()
	c.mu.Unlock()
}
