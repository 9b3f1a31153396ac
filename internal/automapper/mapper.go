// Package automapper implements the auto-mapper (component C4): matching a
// raw source topic to the longest suffix-prefix present in the namespace
// cache.
package automapper

import (
	"context"
	"strings"
	"sync"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/namespace"
)

// Mapper is a pure function of the namespace cache's current snapshot plus
// a topic string (property P3): re-evaluating Map for the same topic
// against an unchanged cache always returns the same result.
//
// It also tracks an "attempted" set so that a given topic is only
// considered once per namespace-cache generation (spec §4.4); the set is
// cleared whenever the cache's generation changes.
type Mapper struct {
	cache *namespace.Cache

	mu           sync.Mutex
	attempted    map[string]bool
	attemptedGen *map[string]namespace.Descriptor
}

// New creates a Mapper reading from cache.
func New(cache *namespace.Cache) *Mapper {
	return &Mapper{cache: cache, attempted: make(map[string]bool)}
}

// Subscribe clears the attempted set whenever the namespace structure
// changes, as required by spec §4.4.
func (m *Mapper) Subscribe(bus *event.Bus) event.CancelFunc {
	return event.Subscribe(bus, func(_ context.Context, _ event.NamespaceStructureChanged) {
		m.mu.Lock()
		m.attempted = make(map[string]bool)
		m.attemptedGen = nil
		m.mu.Unlock()
	})
}

// Candidates returns the suffix-prefix candidates for topic, built per the
// deterministic algorithm in spec §4.4:
//  1. split on "/", drop empties, drop the last segment (the measurement name)
//  2. for k = 1..min(2, len(parts)), candidate = parts[k:] joined by "/"
//  3. single-segment candidates are rejected as too weak
func (m *Mapper) Candidates(topic string) []string {
	var parts []string
	for _, s := range strings.Split(topic, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	parts = parts[:len(parts)-1] // drop the measurement-name segment

	maxK := 2
	if len(parts) < maxK {
		maxK = len(parts)
	}

	var candidates []string
	for k := 1; k <= maxK; k++ {
		remaining := parts[k:]
		if len(remaining) < 2 {
			continue
		}
		candidates = append(candidates, strings.Join(remaining, "/"))
	}
	return candidates
}

// Map returns the longest candidate present in the namespace cache as a
// Namespace node, or false if none match. HierarchyInstance paths (e.g.
// "Enterprise1/Site1") are kept in the cache for prefix lookup only and are
// never valid binding targets (spec §4.3), so a candidate is only accepted
// when its descriptor reports IsBindingTarget().
func (m *Mapper) Map(topic string) (string, bool) {
	best := ""
	for _, c := range m.Candidates(topic) {
		d, ok := m.cache.Lookup(c)
		if !ok || !d.IsBindingTarget() {
			continue
		}
		if len(c) > len(best) {
			best = c
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// ShouldAttempt reports whether topic has not yet been attempted against
// the current cache generation, and marks it attempted if so.
func (m *Mapper) ShouldAttempt(topic string) bool {
	gen := m.cache.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attemptedGen != gen {
		m.attemptedGen = gen
		m.attempted = make(map[string]bool)
	}
	if m.attempted[topic] {
		return false
	}
	m.attempted[topic] = true
	return true
}
