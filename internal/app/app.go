// Package app wires every component into one running instance: the event
// bus, namespace cache, auto-mapper, stream processor, bulk persister,
// topic-browser cache and pipeline façade, backed by the in-memory
// reference stores/repositories. This is the composition root cmd/unsctl
// drives; kept separate from main() so it is reusable from tests.
package app

import (
	"context"

	"github.com/thomassorensen2650/unsinfra/internal/automapper"
	"github.com/thomassorensen2650/unsinfra/internal/browser"
	"github.com/thomassorensen2650/unsinfra/internal/config"
	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/hierarchy"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/namespace"
	"github.com/thomassorensen2650/unsinfra/internal/persist"
	"github.com/thomassorensen2650/unsinfra/internal/pipeline"
	"github.com/thomassorensen2650/unsinfra/internal/repo/memrepo"
	"github.com/thomassorensen2650/unsinfra/internal/store/memstore"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

// App holds every wired component an operator or test might want to reach.
type App struct {
	Bus        *event.Bus
	Structure  *memrepo.StructureService
	NSCache    *namespace.Cache
	ConfigRepo *memrepo.ConfigRepo
	Browser    *browser.Cache
	Mapper     *automapper.Mapper
	Worker     *automapper.Worker
	Persister  *persist.Persister
	Pipeline   *pipeline.Pipeline

	log    *logging.Logger
	unsubs []event.CancelFunc
}

// New wires a complete, unstarted App. seed provides the initial hierarchy
// level template. An empty Seed yields a "default" configuration with no
// levels; the StructureService has no way to add levels, so with it
// AddHierarchyInstance rejects every level id.
func New(seed config.Seed, streamCfg stream.Config, log *logging.Logger) *App {
	if log == nil {
		log = logging.New("app")
	}
	bus := event.New(log)

	cfg := seed.Hierarchy
	if cfg.ID == "" {
		cfg = hierarchy.HierarchyConfiguration{ID: "default", Active: true}
	}
	structureSvc := memrepo.NewStructureService(cfg, bus)

	nsCache := namespace.New(structureSvc, log)
	mapper := automapper.New(nsCache)
	worker := automapper.NewWorker(mapper, bus, log)

	configRepo := memrepo.NewConfigRepo(bus)
	browserCache := browser.New(configRepo, log)

	realtime := memstore.NewRealtime()
	historical := memstore.NewHistorical()
	persister := persist.New(realtime, historical, browserCache, bus, log)

	pl := pipeline.New(streamCfg, persister, log)

	a := &App{
		Bus: bus, Structure: structureSvc, NSCache: nsCache, ConfigRepo: configRepo,
		Browser: browserCache, Mapper: mapper, Worker: worker, Persister: persister, Pipeline: pl,
		log: log,
	}
	return a
}

// Start brings up every background subscriber and the pipeline itself.
func (a *App) Start(ctx context.Context) error {
	if err := a.Browser.Initialize(ctx); err != nil {
		return err
	}
	a.unsubs = append(a.unsubs, a.NSCache.Subscribe(a.Bus))
	a.unsubs = append(a.unsubs, a.Browser.Subscribe(a.Bus))
	a.unsubs = append(a.unsubs, event.Subscribe(a.Bus, a.onAutoMapped))
	a.Worker.Start(ctx)
	a.Pipeline.Start(ctx)
	return a.NSCache.Rebuild(ctx) // seed the cache from whatever structure already exists
}

// onAutoMapped is the missing link between the auto-mapper (which only
// ever announces a match over the bus) and the repository that owns the
// binding: it persists the mapping as a TopicConfiguration, which in turn
// makes ConfigRepo publish TopicConfigurationUpdated for the browser cache
// to reconcile.
func (a *App) onAutoMapped(ctx context.Context, e event.TopicAutoMapped) {
	cfg, _, err := a.ConfigRepo.GetByTopic(ctx, e.Topic)
	if err != nil {
		a.log.Warnf("could not look up %s before binding auto-mapped path: %v", e.Topic, err)
		return
	}
	cfg.Topic = e.Topic
	cfg.NSPath = e.NSPath
	cfg.Active = true
	if err := a.ConfigRepo.Save(ctx, cfg); err != nil {
		a.log.Warnf("could not save auto-mapped binding for %s: %v", e.Topic, err)
	}
}

// Stop tears down the pipeline and background workers in reverse order.
func (a *App) Stop() {
	a.Pipeline.Stop()
	a.Worker.Stop()
	for _, cancel := range a.unsubs {
		cancel()
	}
}
