package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassorensen2650/unsinfra/internal/config"
	"github.com/thomassorensen2650/unsinfra/internal/hierarchy"
	"github.com/thomassorensen2650/unsinfra/internal/model"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

func seedWithKPI() config.Seed {
	return config.Seed{
		Hierarchy: hierarchy.HierarchyConfiguration{
			ID: "h1", Active: true,
			Levels: []hierarchy.HierarchyLevel{
				{ID: "enterprise", Name: "Enterprise", Order: 0, AllowedChildLevelIDs: []string{"site"}},
				{ID: "site", Name: "Site", Order: 1},
			},
		},
	}
}

func TestApp_EndToEndIngestDiscoveryAndAutoMap(t *testing.T) {
	a := New(seedWithKPI(), stream.Config{Capacity: 100, BatchSize: 1, BatchIntervalMs: 50}, nil)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer a.Stop()

	require.NoError(t, a.Structure.AddHierarchyInstance(ctx, "enterprise", "Enterprise1", ""))
	require.NoError(t, a.Structure.CreateNamespace(ctx, "Enterprise1", hierarchy.Namespace{
		Name: "KPI",
		Anchor: []hierarchy.AnchorEntry{
			{LevelName: "Enterprise", InstanceName: "Enterprise1"},
		},
	}))

	require.Eventually(t, func() bool {
		_, ok := a.NSCache.Lookup("Enterprise1/KPI")
		return ok
	}, time.Second, time.Millisecond, "namespace cache should index the new namespace")

	accepted := a.Pipeline.Ingest(ctx, model.DataPoint{
		Topic: "socket/virtualfactory/Enterprise1/KPI/value", Source: "plc1", Value: 42,
	})
	require.True(t, accepted)

	require.Eventually(t, func() bool {
		info, ok := a.Browser.Get("socket/virtualfactory/Enterprise1/KPI/value")
		return ok && !info.LastDataTimestamp.IsZero()
	}, 2*time.Second, time.Millisecond, "topic should be discovered and its last value stamped")

	require.Eventually(t, func() bool {
		cfg, ok, _ := a.ConfigRepo.GetByTopic(ctx, "socket/virtualfactory/Enterprise1/KPI/value")
		return ok && cfg.NSPath == "Enterprise1/KPI"
	}, 2*time.Second, time.Millisecond, "auto-mapper should bind the topic once the repository reconciles the mapping")
}
