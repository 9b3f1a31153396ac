package hierarchy

import "strings"

// HierarchicalPath is a forward-slash path through the composed tree.
// Equality is by content (unlike every other entity in this package, which
// is compared by id).
type HierarchicalPath struct {
	Segments []string
}

// String joins the segments with "/".
func (p HierarchicalPath) String() string {
	return strings.Join(p.Segments, "/")
}

// Equal compares two paths segment by segment.
func (p HierarchicalPath) Equal(o HierarchicalPath) bool {
	if len(p.Segments) != len(o.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != o.Segments[i] {
			return false
		}
	}
	return true
}

// GetFullPath walks an instance's parent chain (root to leaf) via
// instancesByID and joins names with "/", skipping empty segments.
func GetFullPath(instance HierarchyInstance, instancesByID map[string]HierarchyInstance) string {
	var chain []string
	cur := instance
	for {
		if cur.Name != "" {
			chain = append(chain, cur.Name)
		}
		if cur.ParentInstanceID == "" {
			break
		}
		parent, ok := instancesByID[cur.ParentInstanceID]
		if !ok {
			break
		}
		cur = parent
	}
	// chain is leaf-to-root; reverse to root-to-leaf.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return strings.Join(chain, "/")
}

// PathSegment pairs one path segment with the level it was assigned to.
type PathSegment struct {
	Level HierarchyLevel
	Value string
}

// FromPath splits str on "/", assigning successive non-empty segments to
// the configuration's levels in increasing Order. Excess segments (beyond
// the number of configured levels) are ignored.
func FromPath(str string, cfg *HierarchyConfiguration) []PathSegment {
	var raw []string
	for _, s := range strings.Split(str, "/") {
		if s != "" {
			raw = append(raw, s)
		}
	}

	levels := cfg.OrderedLevels()

	var out []PathSegment
	for i, seg := range raw {
		if i >= len(levels) {
			break
		}
		out = append(out, PathSegment{Level: levels[i], Value: seg})
	}
	return out
}
