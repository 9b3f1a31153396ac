package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomassorensen2650/unsinfra/internal/app"
	"github.com/thomassorensen2650/unsinfra/internal/config"
	"github.com/thomassorensen2650/unsinfra/internal/event"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var addr string
	var natsURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion pipeline and its status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr, natsURL)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a seed YAML file (hierarchy + connectors)")
	cmd.Flags().StringVar(&addr, "addr", ":8089", "status listen address")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "optional NATS URL to fan out bus events to for external observers")
	return cmd
}

func runServe(configPath, addr, natsURL string) error {
	log := logging.New("unsctl")

	var seed config.Seed
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("unsctl: loading %s: %w", configPath, err)
		}
		if violations := loaded.Validate(); len(violations) > 0 {
			return fmt.Errorf("unsctl: invalid seed config: %v", violations)
		}
		seed = loaded
	}

	a := app.New(seed, stream.DefaultConfig(), log)

	if natsURL != "" {
		sink := event.NewNATSSink(natsURL, "uns", log)
		a.Bus.SetSink(sink)
		defer sink.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if configPath != "" {
		watcher := config.NewWatcher(configPath, func(s config.Seed) {
			log.Infof("seed config reloaded from %s", configPath)
		}, log)
		watcher.Start()
		defer watcher.Stop()
	}

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("unsctl: starting pipeline: %w", err)
	}
	defer a.Stop()

	srv := &http.Server{Addr: addr, Handler: statusHandler(a)}
	go func() {
		log.Infof("status endpoint listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("status server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infof("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

// statusHandler serves a single JSON snapshot of pipeline and browser-cache
// statistics — a minimal stand-in for the teacher's SSE live-view endpoint
// (internal/rpc/http_sse.go), since a full event stream is outside what a
// demo CLI needs to exercise.
func statusHandler(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		stats := a.Pipeline.Statistics()
		browserStats := a.Browser.Stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"pipelineState": a.Pipeline.State().String(),
			"stream":        stats.Stream,
			"throughputPS":  stats.ThroughputPS,
			"browser":       browserStats,
		})
	})
	return mux
}
