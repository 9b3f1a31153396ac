package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
hierarchy:
  id: h1
  name: Default
  active: true
  levels:
    - id: enterprise
      name: Enterprise
      order: 0
      allowedChildLevelIds: [site]
    - id: site
      name: Site
      order: 1
connectors:
  - id: c1
    type: mqtt
    enabled: true
    settings:
      url: tcp://localhost:1883
`

func TestLoad_MissingFileReturnsEmptySeed(t *testing.T) {
	seed, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, seed.Hierarchy.Levels)
}

func TestLoad_ParsesHierarchyAndConnectors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	seed, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, seed.Hierarchy.Levels, 2)
	require.Len(t, seed.Connectors, 1)
	assert.Equal(t, "mqtt", seed.Connectors[0].Type)
	assert.Equal(t, "tcp://localhost:1883", seed.Connectors[0].Settings["url"])
	assert.Empty(t, seed.Validate())
}

func TestLoad_EnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	t.Setenv("UNS_HIERARCHY_ACTIVE", "false")
	t.Setenv("UNS_CONNECTOR_C1_ENABLED", "false")

	seed, err := Load(path)
	require.NoError(t, err)
	assert.False(t, seed.Hierarchy.Active)
	require.Len(t, seed.Connectors, 1)
	assert.False(t, seed.Connectors[0].Enabled)
}

func TestLoad_MalformedEnvOverrideIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	t.Setenv("UNS_HIERARCHY_ACTIVE", "not-a-bool")

	seed, err := Load(path)
	require.NoError(t, err)
	assert.True(t, seed.Hierarchy.Active) // file value kept, malformed override ignored
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	loaded := make(chan Seed, 4)
	w := NewWatcher(path, func(s Seed) { loaded <- s }, nil)
	w.Start()
	defer w.Stop()

	select {
	case s := <-loaded:
		assert.Len(t, s.Hierarchy.Levels, 2)
	case <-time.After(time.Second):
		t.Fatal("expected initial load")
	}

	updated := sampleYAML + "\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload after write")
	}
}
