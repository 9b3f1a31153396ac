package namespace

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/hierarchy"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
)

// Cache maintains a flat map of every valid UNS path to its descriptor.
// Reads are lock-free against the current snapshot; writes (Rebuild) are
// serialized by an exclusive permit, and a rebuild requested while one is
// already running is debounced into exactly one extra pass rather than
// dropped (spec §4.3).
type Cache struct {
	svc StructureService
	log *logging.Logger

	snapshot atomic.Pointer[map[string]Descriptor]

	mu         sync.Mutex // guards rebuilding/pending below
	rebuilding bool
	pending    bool
}

// New creates a Cache backed by svc. Call Rebuild once before first use.
func New(svc StructureService, log *logging.Logger) *Cache {
	if log == nil {
		log = logging.New("namespace.cache")
	}
	c := &Cache{svc: svc, log: log}
	empty := map[string]Descriptor{}
	c.snapshot.Store(&empty)
	return c
}

// Subscribe wires NamespaceStructureChanged to Rebuild so the cache stays
// current without polling. Returns the bus CancelFunc.
func (c *Cache) Subscribe(bus *event.Bus) event.CancelFunc {
	return event.Subscribe(bus, func(ctx context.Context, _ event.NamespaceStructureChanged) {
		if err := c.Rebuild(ctx); err != nil {
			c.log.Errorf("rebuild after structure change failed: %v", err)
		}
	})
}

// Rebuild walks the composed tree in DFS order and replaces the snapshot.
// If a rebuild is already running, this call is folded into one additional
// pass executed immediately after the current one finishes.
func (c *Cache) Rebuild(ctx context.Context) error {
	c.mu.Lock()
	if c.rebuilding {
		c.pending = true
		c.mu.Unlock()
		return nil
	}
	c.rebuilding = true
	c.mu.Unlock()

	var lastErr error
	for {
		lastErr = c.doRebuild(ctx)
		if lastErr != nil {
			c.log.Warnf("namespace cache rebuild failed: %v", lastErr)
		}

		c.mu.Lock()
		if c.pending {
			c.pending = false
			c.mu.Unlock()
			continue
		}
		c.rebuilding = false
		c.mu.Unlock()
		break
	}
	return lastErr
}

func (c *Cache) doRebuild(ctx context.Context) error {
	roots, err := c.svc.GetComposedTree(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]Descriptor)

	// Iterative DFS using an explicit stack (arena-style traversal, no
	// recursion, matching Design Note "Graph traversal for namespace
	// composition").
	stack := make([]*hierarchy.NSTreeNode, len(roots))
	copy(stack, roots)

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Kind == hierarchy.NodeHierarchyInstance || n.Kind == hierarchy.NodeNamespace {
			next[n.FullPath] = Descriptor{
				Path: n.FullPath,
				Kind: n.Kind,
				ID:   n.ID,
				Name: n.Name,
			}
		}

		stack = append(stack, n.Children...)
	}

	c.snapshot.Store(&next)
	return nil
}

// Lookup is a constant-time, lock-free read against the current snapshot.
func (c *Cache) Lookup(path string) (Descriptor, bool) {
	m := *c.snapshot.Load()
	d, ok := m[path]
	return d, ok
}

// Generation-like token: callers that need to know "has the cache changed
// since I last looked" (the auto-mapper's attempted-set) can compare
// pointers returned by Snapshot.
func (c *Cache) Snapshot() *map[string]Descriptor {
	return c.snapshot.Load()
}
