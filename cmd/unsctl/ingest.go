package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomassorensen2650/unsinfra/internal/app"
	"github.com/thomassorensen2650/unsinfra/internal/config"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
	"github.com/thomassorensen2650/unsinfra/internal/model"
	"github.com/thomassorensen2650/unsinfra/internal/stream"
)

func newIngestCmd() *cobra.Command {
	var topic, source string
	var value string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a single DataPoint into a fresh in-process pipeline and print what happened",
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return fmt.Errorf("--topic is required")
			}

			log := logging.New("unsctl.ingest")
			a := app.New(config.Seed{}, stream.Config{Capacity: 100, BatchSize: 1, BatchIntervalMs: 50}, log)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := a.Start(ctx); err != nil {
				return err
			}
			defer a.Stop()

			accepted := a.Pipeline.Ingest(ctx, model.DataPoint{
				Topic: topic, Source: source, Value: value, Timestamp: time.Now(),
			})
			fmt.Printf("accepted=%v\n", accepted)

			time.Sleep(200 * time.Millisecond) // let the batch flush through persist

			info, ok := a.Browser.Get(topic)
			if !ok {
				fmt.Println("topic not yet visible in the browser cache")
				return nil
			}
			fmt.Printf("topic=%s nspath=%q lastDataTimestamp=%s\n", info.Topic, info.NSPath, info.LastDataTimestamp)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "raw source topic string")
	cmd.Flags().StringVar(&source, "source", "cli", "source system name")
	cmd.Flags().StringVar(&value, "value", "", "measurement value")
	return cmd
}
