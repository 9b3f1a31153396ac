package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thomassorensen2650/unsinfra/internal/logging"
)

// Watcher reloads a Seed from disk whenever the underlying file changes,
// debouncing rapid successive writes into one reload. Grounded on
// cmd/bd/list.go's fsnotify-plus-debounce-timer loop.
type Watcher struct {
	path   string
	log    *logging.Logger
	onLoad func(Seed)

	stop chan struct{}
	done chan struct{}
}

// NewWatcher creates a Watcher for path. onLoad is called with every
// successfully parsed reload, including the initial load performed by
// Start.
func NewWatcher(path string, onLoad func(Seed), log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.New("config.watcher")
	}
	return &Watcher{
		path:   path,
		log:    log,
		onLoad: onLoad,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start performs the initial load and then watches for changes until Stop
// is called. Watch failures (e.g. the directory does not exist yet) are
// logged; the initial load still happens.
func (w *Watcher) Start() {
	w.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warnf("fsnotify unavailable, hot-reload disabled: %v", err)
		close(w.done)
		return
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		w.log.Warnf("could not watch %s, hot-reload disabled: %v", dir, err)
		_ = watcher.Close()
		close(w.done)
		return
	}

	go w.run(watcher)
}

func (w *Watcher) run(watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()
	defer close(w.done)

	var debounce *time.Timer
	reloadCh := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})
		case <-reloadCh:
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("fsnotify error watching %s: %v", w.path, err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) reload() {
	seed, err := Load(w.path)
	if err != nil {
		w.log.Warnf("failed to reload %s: %v", w.path, err)
		return
	}
	if violations := seed.Validate(); len(violations) > 0 {
		w.log.Warnf("rejected reload of %s: %v", w.path, violations)
		return
	}
	w.onLoad(seed)
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
}
