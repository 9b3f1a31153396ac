package hierarchy

import "fmt"

// Validate returns every violation found in the configuration. An empty
// slice means the configuration is valid. Per spec §4.2/§7, this never
// returns an error — mutators inspect the returned list and reject the
// operation themselves.
func (c *HierarchyConfiguration) Validate() []string {
	var violations []string

	byID := make(map[string]int, len(c.Levels)) // id -> count, to find dupes
	for _, l := range c.Levels {
		byID[l.ID]++
	}
	for id, n := range byID {
		if n > 1 {
			violations = append(violations, fmt.Sprintf("duplicate level id %q", id))
		}
	}

	exists := func(id string) bool {
		_, ok := c.LevelByID(id)
		return ok
	}

	for _, l := range c.Levels {
		if l.ParentLevelID != "" && !exists(l.ParentLevelID) {
			violations = append(violations, fmt.Sprintf("level %q has dangling parent %q", l.ID, l.ParentLevelID))
		}
		for _, childID := range l.AllowedChildLevelIDs {
			if !exists(childID) {
				violations = append(violations, fmt.Sprintf("level %q has dangling allowed-child %q", l.ID, childID))
			}
		}
	}

	violations = append(violations, c.findCycles()...)

	return violations
}

// findCycles walks the parent chain of every level using an iterative,
// arena-indexed DFS (flat slice + id lookup, no owning pointers) so that a
// cyclic configuration can never cause unbounded recursion.
func (c *HierarchyConfiguration) findCycles() []string {
	var violations []string
	seen := make(map[string]bool)

	for _, start := range c.Levels {
		if seen[start.ID] {
			continue
		}
		path := make(map[string]bool)
		order := []string{}
		cur := start.ID
		for cur != "" {
			if path[cur] {
				violations = append(violations, fmt.Sprintf("cycle detected among level ids: %v", append(order, cur)))
				break
			}
			if seen[cur] {
				break
			}
			path[cur] = true
			order = append(order, cur)
			lvl, ok := c.LevelByID(cur)
			if !ok {
				break
			}
			cur = lvl.ParentLevelID
		}
		for id := range path {
			seen[id] = true
		}
	}

	return violations
}
