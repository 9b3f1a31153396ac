// Package hierarchy implements the ISA-95-style hierarchy/namespace data
// model: pure data plus validators, with no persistence and no I/O. All
// mutation happens through the caller-owned structs; Validate() never
// panics or returns an error value, only a (possibly empty) list of
// violation strings, so callers can reject an invalid configuration without
// any cross-component exception channel.
package hierarchy

// HierarchyLevel is one node in a configurable level template, e.g.
// "Enterprise" or "Site".
type HierarchyLevel struct {
	ID                   string   `yaml:"id"`
	Name                 string   `yaml:"name"`
	Order                int      `yaml:"order"`
	Required             bool     `yaml:"required"`
	ParentLevelID        string   `yaml:"parentLevelId"` // empty => root level
	AllowedChildLevelIDs []string `yaml:"allowedChildLevelIds"`
}

// HierarchyConfiguration is an ordered set of HierarchyLevels. Exactly one
// configuration is active at any time; system-defined configurations cannot
// be deleted by callers (enforced by the owning repository, not here).
type HierarchyConfiguration struct {
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	Active        bool             `yaml:"active"`
	SystemDefined bool             `yaml:"systemDefined"`
	Levels        []HierarchyLevel `yaml:"levels"`
}

// LevelByID returns the level with the given id, or false if absent.
func (c *HierarchyConfiguration) LevelByID(id string) (HierarchyLevel, bool) {
	for _, l := range c.Levels {
		if l.ID == id {
			return l, true
		}
	}
	return HierarchyLevel{}, false
}

// OrderedLevels returns the configuration's levels sorted by Order.
func (c *HierarchyConfiguration) OrderedLevels() []HierarchyLevel {
	out := make([]HierarchyLevel, len(c.Levels))
	copy(out, c.Levels)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Order < out[j-1].Order; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// HierarchyInstance is a runtime occurrence of a HierarchyLevel, e.g.
// "Enterprise1" occurring at the Enterprise level.
type HierarchyInstance struct {
	ID               string
	Name             string
	LevelID          string
	ParentInstanceID string // empty => root instance
	Active           bool
	Metadata         map[string]string
}

// NamespaceKind classifies a Namespace's role in the UNS tree.
type NamespaceKind string

const (
	KindFunctional   NamespaceKind = "Functional"
	KindInformative  NamespaceKind = "Informative"
	KindDefinitional NamespaceKind = "Definitional"
	KindAdHoc        NamespaceKind = "AdHoc"
)

// AnchorEntry is one (levelName, instanceName) pair in a Namespace's
// hierarchical anchor. Anchor is a slice rather than a map so that ordering
// is preserved, matching the "ordered map levelName->instanceName" in the
// spec's data model.
type AnchorEntry struct {
	LevelName    string
	InstanceName string
}

// Namespace is a classifier attached at some point in the instance tree.
type Namespace struct {
	ID                string
	Name              string
	Kind              NamespaceKind
	Description       string
	Anchor            []AnchorEntry
	ParentNamespaceID string // empty => root namespace
	Active            bool
}

// Key returns the (name, anchor) uniqueness key for this namespace.
func (n *Namespace) Key() string {
	key := n.Name
	for _, a := range n.Anchor {
		key += "|" + a.LevelName + "=" + a.InstanceName
	}
	return key
}

// NodeKind distinguishes the two kinds of node the composed tree can hold.
type NodeKind string

const (
	NodeHierarchyInstance NodeKind = "HierarchyInstance"
	NodeNamespace         NodeKind = "Namespace"
)

// NSTreeNode is a derived, non-persisted union node in the composed tree:
// either a HierarchyInstance or a Namespace. FullPath is the forward-slash
// join of ancestor names from the root.
type NSTreeNode struct {
	Kind     NodeKind
	ID       string
	Name     string
	ParentID string
	Children []*NSTreeNode
	FullPath string
}
