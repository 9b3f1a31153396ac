// Package config loads the YAML seed data (hierarchy level template,
// connector settings) and hot-reloads it on change.
// Grounded on the teacher's internal/config/local_config.go (direct
// yaml.v3 unmarshal, tolerant of a missing file) and cmd/bd/list.go's
// fsnotify watch-with-debounce loop; environment-variable overrides use
// spf13/viper's env-binding, the same library the teacher reaches for
// whenever a config value can be overlaid by an environment variable
// (cmd/bd/main.go's "Viper handles BD_ACTOR automatically via
// AutomaticEnv()").
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thomassorensen2650/unsinfra/internal/hierarchy"
)

// ConnectorConfig is the tagged-union settings blob for one southbound
// connector. The core never interprets Settings; it is opaque pass-through
// for whatever connector implementation consumes it (spec §1: "concrete
// connector implementations" are out of scope).
type ConnectorConfig struct {
	ID       string            `yaml:"id"`
	Type     string            `yaml:"type"`
	Enabled  bool              `yaml:"enabled"`
	Settings map[string]string `yaml:"settings"`
}

// Seed is the on-disk shape of the configuration file: the active hierarchy
// plus connector definitions. Namespaces and instances are not seeded here
// — they are expected to come from a real NamespaceStructureService; Seed
// only bootstraps the level template and connector wiring for a standalone
// run.
type Seed struct {
	Hierarchy  hierarchy.HierarchyConfiguration `yaml:"hierarchy"`
	Connectors []ConnectorConfig                `yaml:"connectors"`
}

// Load reads and parses path, then applies environment variable overrides
// (spec §1.3). Returns an empty Seed (not nil, not an error) if the file
// does not exist, matching the teacher's tolerant LoadLocalConfig behavior
// (internal/config/local_config.go) — a missing seed file just means
// "start empty", though env overrides still apply on top of that empty
// Seed.
//
// Supported environment variables (UNS_ prefixed, bound key by key with
// viper's BindEnv — see applyEnvOverrides):
//   - UNS_HIERARCHY_ACTIVE: overrides Hierarchy.Active ("true"/"false")
//   - UNS_CONNECTOR_<ID>_ENABLED: overrides the Enabled flag of the
//     connector with that id ("true"/"false"); unmatched ids are ignored
func Load(path string) (Seed, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverrides(Seed{}), nil
		}
		return Seed{}, err
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, err
	}
	return applyEnvOverrides(seed), nil
}

// applyEnvOverrides mutates a copy of seed with any recognized environment
// variable values, bound through a viper instance the same way the teacher
// binds BD_ACTOR and friends: SetEnvPrefix + a "." -> "_" key replacer, so
// key "hierarchy.active" resolves to UNS_HIERARCHY_ACTIVE. Malformed bool
// values are ignored (the file/default value is kept) rather than failing
// config load outright.
func applyEnvOverrides(seed Seed) Seed {
	v := viper.New()
	v.SetEnvPrefix("UNS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	const hierarchyActiveKey = "hierarchy.active"
	_ = v.BindEnv(hierarchyActiveKey)
	if v.IsSet(hierarchyActiveKey) {
		if b, err := strconv.ParseBool(v.GetString(hierarchyActiveKey)); err == nil {
			seed.Hierarchy.Active = b
		}
	}

	for i, c := range seed.Connectors {
		key := "connector." + c.ID + ".enabled"
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			if b, err := strconv.ParseBool(v.GetString(key)); err == nil {
				seed.Connectors[i].Enabled = b
			}
		}
	}

	return seed
}

// Validate returns every violation in the seed's hierarchy configuration.
func (s Seed) Validate() []string {
	return s.Hierarchy.Validate()
}

// debounceDelay folds a burst of filesystem write events (common with
// editors that write-then-rename) into a single reload.
const debounceDelay = 250 * time.Millisecond
