package memrepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/hierarchy"
)

// StructureService is an in-memory namespace.StructureService (spec §6
// external contract). It owns one active HierarchyConfiguration, a flat set
// of HierarchyInstances, and a flat set of Namespaces, and composes them
// into the tree the NamespaceCache walks. Every mutator publishes
// NamespaceStructureChanged on success, per §6.
type StructureService struct {
	bus *event.Bus

	mu         sync.RWMutex
	cfg        hierarchy.HierarchyConfiguration
	instances  map[string]hierarchy.HierarchyInstance // id -> instance
	namespaces map[string]hierarchy.Namespace         // id -> namespace
}

// NewStructureService creates a StructureService seeded with cfg (the
// active hierarchy level template). cfg is not validated here — callers
// that load it from config.Seed already ran Validate().
func NewStructureService(cfg hierarchy.HierarchyConfiguration, bus *event.Bus) *StructureService {
	return &StructureService{
		bus:        bus,
		cfg:        cfg,
		instances:  make(map[string]hierarchy.HierarchyInstance),
		namespaces: make(map[string]hierarchy.Namespace),
	}
}

// GetComposedTree returns the current root nodes with children materialized:
// root HierarchyInstances, each carrying its descendant instances and any
// Namespaces anchored beneath them.
func (s *StructureService) GetComposedTree(ctx context.Context) ([]*hierarchy.NSTreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make(map[string]*hierarchy.NSTreeNode, len(s.instances))
	for id, inst := range s.instances {
		nodes[id] = &hierarchy.NSTreeNode{Kind: hierarchy.NodeHierarchyInstance, ID: id, Name: inst.Name}
	}

	var roots []*hierarchy.NSTreeNode
	for id, inst := range s.instances {
		node := nodes[id]
		if inst.ParentInstanceID == "" {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[inst.ParentInstanceID]
		if !ok {
			roots = append(roots, node) // dangling parent: surface as its own root rather than drop it
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	for id, ns := range s.namespaces {
		nsNode := &hierarchy.NSTreeNode{Kind: hierarchy.NodeNamespace, ID: id, Name: ns.Name}
		if parentID, ok := s.anchorInstanceID(ns.Anchor); ok {
			if parent, ok := nodes[parentID]; ok {
				parent.Children = append(parent.Children, nsNode)
				continue
			}
		}
		roots = append(roots, nsNode) // unanchored namespace surfaces at the root
	}

	setFullPaths(roots, "")
	return roots, nil
}

func setFullPaths(nodes []*hierarchy.NSTreeNode, prefix string) {
	for _, n := range nodes {
		if prefix == "" {
			n.FullPath = n.Name
		} else {
			n.FullPath = prefix + "/" + n.Name
		}
		setFullPaths(n.Children, n.FullPath)
	}
}

// anchorInstanceID resolves an ordered (levelName, instanceName) anchor to
// the id of the deepest matching instance, verifying the chain is a real
// parent/child path through the instance tree.
func (s *StructureService) anchorInstanceID(anchor []hierarchy.AnchorEntry) (string, bool) {
	var parentID string
	first := true
	for _, entry := range anchor {
		found := ""
		for id, inst := range s.instances {
			if inst.Name != entry.InstanceName {
				continue
			}
			level, ok := s.cfg.LevelByID(inst.LevelID)
			if !ok || level.Name != entry.LevelName {
				continue
			}
			if first && inst.ParentInstanceID != "" {
				continue
			}
			if !first && inst.ParentInstanceID != parentID {
				continue
			}
			found = id
			break
		}
		if found == "" {
			return "", false
		}
		parentID = found
		first = false
	}
	if parentID == "" {
		return "", false
	}
	return parentID, true
}

// CreateNamespace attaches ns under parentPath (currently unused for
// resolution — ns.Anchor is authoritative; parentPath is accepted for
// interface conformance and logged callers may use it for validation).
func (s *StructureService) CreateNamespace(ctx context.Context, parentPath string, ns hierarchy.Namespace) error {
	if ns.ID == "" {
		ns.ID = uuid.NewString()
	}

	s.mu.Lock()
	for _, existing := range s.namespaces {
		if existing.Key() == ns.Key() {
			s.mu.Unlock()
			return fmt.Errorf("memrepo: namespace with name+anchor %q already exists", ns.Key())
		}
	}
	s.namespaces[ns.ID] = ns
	s.mu.Unlock()

	s.publishChanged(ctx, "namespace created")
	return nil
}

// AddHierarchyInstance creates a new instance of levelID named name under
// parentInstanceID (empty for a root instance).
func (s *StructureService) AddHierarchyInstance(ctx context.Context, levelID, name, parentInstanceID string) error {
	s.mu.Lock()
	if _, ok := s.cfg.LevelByID(levelID); !ok {
		s.mu.Unlock()
		return fmt.Errorf("memrepo: unknown level id %q", levelID)
	}
	inst := hierarchy.HierarchyInstance{
		ID:               uuid.NewString(),
		Name:             name,
		LevelID:          levelID,
		ParentInstanceID: parentInstanceID,
		Active:           true,
	}
	s.instances[inst.ID] = inst
	s.mu.Unlock()

	s.publishChanged(ctx, "hierarchy instance added")
	return nil
}

// DeleteInstance removes the instance with id. Its descendant instances and
// any namespaces anchored beneath it are not removed: on the next
// composition GetComposedTree surfaces each of them as a root node.
func (s *StructureService) DeleteInstance(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.instances[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("memrepo: unknown instance id %q", id)
	}
	delete(s.instances, id)
	s.mu.Unlock()

	s.publishChanged(ctx, "hierarchy instance deleted")
	return nil
}

func (s *StructureService) publishChanged(ctx context.Context, reason string) {
	if s.bus != nil {
		s.bus.Publish(ctx, event.NamespaceStructureChanged{Meta: event.NewMeta(), Reason: reason})
	}
}
