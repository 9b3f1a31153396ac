// Command unsctl is a demonstration CLI wiring the ingestion pipeline end
// to end against the in-memory reference stores. CLI surface is explicitly
// out of scope for the core (spec §1); this binary exists only to exercise
// it. Grounded on the teacher's cmd/bd cobra root-command layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thomassorensen2650/unsinfra/internal/telemetry"
)

func main() {
	shutdown := telemetry.Configure("unsctl")
	defer shutdown()

	root := &cobra.Command{
		Use:   "unsctl",
		Short: "Run and inspect a Unified Namespace ingestion pipeline",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newStatsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
