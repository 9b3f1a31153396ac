package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *HierarchyConfiguration {
	return &HierarchyConfiguration{
		ID: "cfg-1",
		Levels: []HierarchyLevel{
			{ID: "enterprise", Name: "Enterprise", Order: 0, AllowedChildLevelIDs: []string{"site"}},
			{ID: "site", Name: "Site", Order: 1, ParentLevelID: "enterprise", AllowedChildLevelIDs: []string{"area"}},
			{ID: "area", Name: "Area", Order: 2, ParentLevelID: "site"},
		},
	}
}

func TestValidate_ValidConfigHasNoViolations(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, cfg.Validate())
}

func TestValidate_DuplicateID(t *testing.T) {
	cfg := validConfig()
	cfg.Levels = append(cfg.Levels, HierarchyLevel{ID: "site", Name: "Site2", Order: 3})

	violations := cfg.Validate()
	assert.NotEmpty(t, violations)
	assert.Contains(t, violations[0], "duplicate level id")
}

func TestValidate_DanglingParent(t *testing.T) {
	cfg := validConfig()
	cfg.Levels[2].ParentLevelID = "missing"

	violations := cfg.Validate()
	found := false
	for _, v := range violations {
		if v == `level "area" has dangling parent "missing"` {
			found = true
		}
	}
	assert.True(t, found, "expected dangling parent violation, got %v", violations)
}

func TestValidate_DanglingAllowedChild(t *testing.T) {
	cfg := validConfig()
	cfg.Levels[0].AllowedChildLevelIDs = append(cfg.Levels[0].AllowedChildLevelIDs, "ghost")

	violations := cfg.Validate()
	assert.NotEmpty(t, violations)
}

func TestValidate_Cycle(t *testing.T) {
	cfg := &HierarchyConfiguration{
		Levels: []HierarchyLevel{
			{ID: "a", ParentLevelID: "b"},
			{ID: "b", ParentLevelID: "a"},
		},
	}

	violations := cfg.Validate()
	require := assert.New(t)
	require.NotEmpty(violations)

	hasCycle := false
	for _, v := range violations {
		if len(v) >= 5 && v[:5] == "cycle" {
			hasCycle = true
		}
	}
	require.True(hasCycle, "expected a cycle violation, got %v", violations)
}
