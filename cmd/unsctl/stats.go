package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch /status from a running 'unsctl serve' instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get("http://" + addr + "/status")
			if err != nil {
				return fmt.Errorf("unsctl: fetching status: %w", err)
			}
			defer resp.Body.Close()

			var out map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("unsctl: decoding status: %w", err)
			}
			pretty, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(pretty))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8089", "status endpoint address of a running 'serve' instance")
	return cmd
}
