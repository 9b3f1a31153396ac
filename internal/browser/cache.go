// Package browser implements the topic-browser cache (component C7): the
// authoritative in-memory projection of every known topic, its namespace
// binding, and its last value, kept current by bus events rather than
// polling. Grounded on the teacher's internal/storage read-through cache
// shape (single write permit; reads share an RWMutex read lock).
package browser

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// safetyRefreshInterval is how stale lastFullRefresh may get before the next
// read forces a reload from the repository (spec §4.7).
const safetyRefreshInterval = 60 * time.Minute

// Stats are the operational counters spec §4.7 requires.
type Stats struct {
	Hits            int64
	Misses          int64
	RepositoryCalls int64
	ConfiguredSize  int
	DiscoveredSize  int
	HitRate         float64
	LastFullRefresh time.Time
}

// Cache is the topic-browser projection.
type Cache struct {
	repo TopicConfigurationRepository
	log  *logging.Logger

	initOnce sync.Once
	initErr  error

	// mu is the single write permit; readers take RLock, which never blocks
	// a writer for longer than one handoff (spec §5 shared-resource policy).
	mu              sync.RWMutex
	configured      map[string]model.TopicInfo
	discovered      map[string]model.TopicInfo
	byNamespace     map[string][]model.TopicInfo
	lastValue       map[string]interface{}
	lastFullRefresh time.Time

	statsMu  sync.Mutex
	hits     int64
	misses   int64
	repoCall int64

	changeMu sync.Mutex
	onChange func(Notification)

	unsubs []event.CancelFunc
}

// New creates a Cache. repo may be nil only for tests that never call
// Initialize or trigger a safety refresh.
func New(repo TopicConfigurationRepository, log *logging.Logger) *Cache {
	if log == nil {
		log = logging.New("browser.cache")
	}
	return &Cache{
		repo:        repo,
		log:         log,
		configured:  make(map[string]model.TopicInfo),
		discovered:  make(map[string]model.TopicInfo),
		byNamespace: make(map[string][]model.TopicInfo),
		lastValue:   make(map[string]interface{}),
	}
}

// LastValue returns the most recent value TopicDataUpdated or
// ConnectionDataReceived recorded for topic.
func (c *Cache) LastValue(topic string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.lastValue[topic]
	return v, ok
}

// SetChangeHandler installs the callback for structural-change
// notifications (TopicsAdded/Removed/Updated/AutoMapped), replacing any
// previous one. The swap is guarded by changeMu.
func (c *Cache) SetChangeHandler(fn func(Notification)) {
	c.changeMu.Lock()
	c.onChange = fn
	c.changeMu.Unlock()
}

func (c *Cache) notify(n Notification) {
	c.changeMu.Lock()
	fn := c.onChange
	c.changeMu.Unlock()
	if fn != nil {
		fn(n)
	}
}

// Initialize loads every TopicConfiguration from the repository and builds
// both maps. Idempotent: only the first call does any work (a one-shot
// latch), matching spec §4.7.
func (c *Cache) Initialize(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.reload(ctx)
	})
	return c.initErr
}

func (c *Cache) reload(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	cfgs, err := c.repo.GetAll(ctx)
	c.statsMu.Lock()
	c.repoCall++
	c.statsMu.Unlock()
	if err != nil {
		c.log.Warnf("repository GetAll failed during refresh: %v", err)
		return err
	}

	configured := make(map[string]model.TopicInfo, len(cfgs))
	for _, cfg := range cfgs {
		configured[cfg.Topic] = topicInfoFromConfig(cfg)
	}

	c.mu.Lock()
	c.configured = configured
	c.rebuildNamespaceIndexLocked()
	c.lastFullRefresh = time.Now()
	c.mu.Unlock()
	return nil
}

func topicInfoFromConfig(cfg model.TopicConfiguration) model.TopicInfo {
	return model.TopicInfo{
		Topic:       cfg.Topic,
		NSPath:      cfg.NSPath,
		DisplayName: cfg.DisplayName,
		Active:      cfg.Active,
		Configured:  true,
	}
}

// rebuildNamespaceIndexLocked rebuilds byNamespace from configured only —
// P1 is stated over configured, and discovered topics never carry an
// NSPath until they become configured. Caller must hold mu.
func (c *Cache) rebuildNamespaceIndexLocked() {
	idx := make(map[string][]model.TopicInfo)
	topics := make([]string, 0, len(c.configured))
	for t := range c.configured {
		topics = append(topics, t)
	}
	sort.Strings(topics) // deterministic ordering within a namespace bucket
	for _, t := range topics {
		info := c.configured[t]
		if info.NSPath == "" {
			continue
		}
		idx[info.NSPath] = append(idx[info.NSPath], info)
	}
	c.byNamespace = idx
}

func (c *Cache) maybeSafetyRefresh(ctx context.Context) {
	c.mu.RLock()
	stale := time.Since(c.lastFullRefresh) > safetyRefreshInterval
	c.mu.RUnlock()
	if stale {
		_ = c.reload(ctx)
	}
}

// Get returns the merged view of topic (configured shadowing discovered).
func (c *Cache) Get(topic string) (model.TopicInfo, bool) {
	c.maybeSafetyRefresh(context.Background())

	c.mu.RLock()
	defer c.mu.RUnlock()
	if info, ok := c.configured[topic]; ok {
		c.recordHit()
		return info, true
	}
	if info, ok := c.discovered[topic]; ok {
		c.recordHit()
		return info, true
	}
	c.recordMiss()
	return model.TopicInfo{}, false
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.misses++
	c.statsMu.Unlock()
}

// GetByNamespace returns every configured topic bound to nspath.
func (c *Cache) GetByNamespace(nspath string) []model.TopicInfo {
	c.maybeSafetyRefresh(context.Background())

	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.byNamespace[nspath]
	out := make([]model.TopicInfo, len(list))
	copy(out, list)
	return out
}

// AllTopics returns configured ∪ { d ∈ discovered : d.Topic ∉ configured },
// with no duplicates (P2).
func (c *Cache) AllTopics() []model.TopicInfo {
	c.maybeSafetyRefresh(context.Background())

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.TopicInfo, 0, len(c.configured)+len(c.discovered))
	for _, info := range c.configured {
		out = append(out, info)
	}
	for topic, info := range c.discovered {
		if _, shadowed := c.configured[topic]; shadowed {
			continue
		}
		out = append(out, info)
	}
	return out
}

// UpdateTopic refetches topic from the repository and reconciles it into
// configured, firing the matching notification.
func (c *Cache) UpdateTopic(ctx context.Context, topic string) error {
	cfg, ok, err := c.repo.GetByTopic(ctx, topic)
	c.statsMu.Lock()
	c.repoCall++
	c.statsMu.Unlock()
	if err != nil {
		c.log.Warnf("repository GetByTopic(%s) failed: %v", topic, err)
		return err
	}

	c.mu.Lock()
	_, existed := c.configured[topic]
	if !ok {
		delete(c.configured, topic)
		c.rebuildNamespaceIndexLocked()
		c.mu.Unlock()
		if existed {
			c.notify(Notification{Kind: TopicsRemoved, Topics: []string{topic}})
		}
		return nil
	}
	c.configured[topic] = topicInfoFromConfig(cfg)
	c.rebuildNamespaceIndexLocked()
	c.mu.Unlock()

	if existed {
		c.notify(Notification{Kind: TopicsUpdated, Topics: []string{topic}})
	} else {
		c.notify(Notification{Kind: TopicsAdded, Topics: []string{topic}})
	}
	return nil
}

// BulkReassign refetches each topic and updates the index, then fires a
// single TopicsAutoMapped notification covering the whole batch.
func (c *Cache) BulkReassign(ctx context.Context, topics []string, nspath string) error {
	for _, topic := range topics {
		cfg, ok, err := c.repo.GetByTopic(ctx, topic)
		c.statsMu.Lock()
		c.repoCall++
		c.statsMu.Unlock()
		if err != nil {
			c.log.Warnf("repository GetByTopic(%s) failed during bulk reassign: %v", topic, err)
			continue
		}
		if !ok {
			continue
		}
		c.mu.Lock()
		c.configured[topic] = topicInfoFromConfig(cfg)
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.rebuildNamespaceIndexLocked()
	c.mu.Unlock()

	c.notify(Notification{Kind: TopicsAutoMapped, Topics: append([]string(nil), topics...)})
	return nil
}

// Stats returns a point-in-time snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	configuredSize := len(c.configured)
	discoveredSize := len(c.discovered)
	lastRefresh := c.lastFullRefresh
	c.mu.RUnlock()

	c.statsMu.Lock()
	hits, misses, repoCalls := c.hits, c.misses, c.repoCall
	c.statsMu.Unlock()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:            hits,
		Misses:          misses,
		RepositoryCalls: repoCalls,
		ConfiguredSize:  configuredSize,
		DiscoveredSize:  discoveredSize,
		HitRate:         hitRate,
		LastFullRefresh: lastRefresh,
	}
}
