package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anstrom/reconai/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the server's result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and TTL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClientFromConfig()
		if err != nil {
			return err
		}

		var stats cache.Stats
		if err := client.Get(cmd.Context(), "/api/cache/stats", &stats); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, stats)
		}
		renderKeyValues(out, map[string]string{
			"entries": strconv.Itoa(stats.Size),
			"ttl":     strconv.Itoa(stats.TTL) + "s",
		})
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached tool result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClientFromConfig()
		if err != nil {
			return err
		}

		var resp struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
		if err := client.Post(cmd.Context(), "/api/cache/clear", nil, &resp); err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintln(cmd.OutOrStdout(), colorOK(resp.Message))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
