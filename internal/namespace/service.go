// Package namespace implements the namespace cache (component C3): a flat
// index of every valid UNS path, rebuilt from the composed tree whenever
// the structure changes.
package namespace

import (
	"context"

	"github.com/thomassorensen2650/unsinfra/internal/hierarchy"
)

// StructureService is the external contract (spec §6) the cache reads the
// composed tree from and through which mutators publish
// NamespaceStructureChanged on success. Implementations live outside this
// package (see internal/repo for an in-memory one).
type StructureService interface {
	// GetComposedTree returns the current root nodes with children
	// materialized.
	GetComposedTree(ctx context.Context) ([]*hierarchy.NSTreeNode, error)

	CreateNamespace(ctx context.Context, parentPath string, ns hierarchy.Namespace) error
	AddHierarchyInstance(ctx context.Context, levelID, name, parentInstanceID string) error
	DeleteInstance(ctx context.Context, id string) error
}

// Descriptor is what the cache stores for each valid path.
type Descriptor struct {
	Path string
	Kind hierarchy.NodeKind
	ID   string
	Name string
}

// IsBindingTarget reports whether data may be attached to this path: only
// Namespace-terminated paths qualify (spec §4.3).
func (d Descriptor) IsBindingTarget() bool {
	return d.Kind == hierarchy.NodeNamespace
}
