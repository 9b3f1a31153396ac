// Package memrepo provides in-memory reference implementations of the §6
// external contracts (TopicConfigurationRepository, NamespaceStructureService)
// so the pipeline can run end to end without a real backing repository.
// Grounded on the teacher's in-memory storage fallback in
// internal/storage/memory (kept by value under a mutex, no external I/O).
package memrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// ErrNotFound is returned by Delete/Verify when the id does not exist.
var ErrNotFound = errors.New("memrepo: not found")

// ConfigRepo is an in-memory TopicConfigurationRepository. It publishes
// TopicConfigurationUpdated after every successful Save, the same way a
// NamespaceStructureService publishes NamespaceStructureChanged after a
// mutation (spec §6).
type ConfigRepo struct {
	bus *event.Bus

	mu      sync.RWMutex
	byTopic map[string]model.TopicConfiguration
	byID    map[string]string // id -> topic
}

// NewConfigRepo creates an empty ConfigRepo. bus may be nil in tests that
// don't care about the TopicConfigurationUpdated notification.
func NewConfigRepo(bus *event.Bus) *ConfigRepo {
	return &ConfigRepo{
		bus:     bus,
		byTopic: make(map[string]model.TopicConfiguration),
		byID:    make(map[string]string),
	}
}

func (r *ConfigRepo) GetByTopic(ctx context.Context, topic string) (model.TopicConfiguration, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byTopic[topic]
	return cfg, ok, nil
}

func (r *ConfigRepo) GetAll(ctx context.Context) ([]model.TopicConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.TopicConfiguration, 0, len(r.byTopic))
	for _, cfg := range r.byTopic {
		out = append(out, cfg)
	}
	return out, nil
}

// Save inserts or updates cfg, stamping CreatedAt on first save and
// ModifiedAt on every save. topic is the invariant unique key (spec §3).
func (r *ConfigRepo) Save(ctx context.Context, cfg model.TopicConfiguration) error {
	now := time.Now()

	r.mu.Lock()
	if existing, ok := r.byTopic[cfg.Topic]; ok {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	} else {
		if cfg.ID == "" {
			cfg.ID = uuid.NewString()
		}
		cfg.CreatedAt = now
	}
	cfg.ModifiedAt = now
	r.byTopic[cfg.Topic] = cfg
	r.byID[cfg.ID] = cfg.Topic
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(ctx, event.TopicConfigurationUpdated{Meta: event.NewMeta(), Topic: cfg.Topic})
	}
	return nil
}

func (r *ConfigRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	topic, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.byTopic, topic)
	delete(r.byID, id)
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(ctx, event.TopicConfigurationUpdated{Meta: event.NewMeta(), Topic: topic})
	}
	return nil
}

// Verify stamps the configuration's metadata with who verified it and
// publishes TopicVerified.
func (r *ConfigRepo) Verify(ctx context.Context, id, by string) error {
	r.mu.Lock()
	topic, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	cfg := r.byTopic[topic]
	if cfg.Metadata == nil {
		cfg.Metadata = make(map[string]string)
	}
	cfg.Metadata["verifiedBy"] = by
	cfg.ModifiedAt = time.Now()
	r.byTopic[topic] = cfg
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(ctx, event.TopicVerified{Meta: event.NewMeta(), Topic: topic, By: by})
	}
	return nil
}
