package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anstrom/reconai/internal/api/handlers"
	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/tools"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of a running server",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect local tool installation",
}

var toolsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which configured tool executables are installed locally",
	Long: `Resolve every configured tool executable on this machine's PATH.

This does not contact a server; use 'reconai health' for the view of a
running server.`,
	Args: cobra.NoArgs,
	RunE: runToolsCheck,
}

func init() {
	rootCmd.AddCommand(healthCmd, toolsCmd)
	toolsCmd.AddCommand(toolsCheckCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	client, err := newClientFromConfig()
	if err != nil {
		return err
	}

	var health handlers.HealthResponse
	if err := client.Get(cmd.Context(), "/health", &health); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, health)
	}

	renderKeyValues(out, map[string]string{
		"status":          statusText(health.Status),
		"version":         health.Version,
		"uptime":          health.Uptime,
		"active_scans":    strconv.Itoa(health.ActiveScans),
		"completed_scans": strconv.Itoa(health.CompletedScans),
		"cache_entries":   strconv.Itoa(health.Cache.Size),
	})
	renderAvailability(cmd, health.Tools, nil)
	return nil
}

func runToolsCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	available := tools.Availability(cfg.Tools)
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), available)
	}
	renderAvailability(cmd, available, &cfg.Tools)

	missing := 0
	for _, ok := range available {
		if !ok {
			missing++
		}
	}
	if missing > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d tool(s) not found\n", colorWarn("warning:"), missing)
	}
	return nil
}

// renderAvailability prints one row per tool. Paths are shown when cfg is set.
func renderAvailability(cmd *cobra.Command, available map[tools.Name]bool, cfg *config.ToolsConfig) {
	header := []string{"Tool", "Status"}
	if cfg != nil {
		header = append(header, "Executable")
	}

	rows := make([][]string, 0, len(tools.All))
	for _, name := range tools.All {
		row := []string{string(name), availableText(available[name])}
		if cfg != nil {
			row = append(row, toolPath(*cfg, name))
		}
		rows = append(rows, row)
	}
	renderTable(cmd.OutOrStdout(), header, rows)
}

func toolPath(cfg config.ToolsConfig, name tools.Name) string {
	switch name {
	case tools.Nmap:
		return cfg.Nmap.Path
	case tools.Gobuster:
		return cfg.Gobuster.Path
	case tools.Subfinder:
		return cfg.Subfinder.Path
	case tools.HTTPX:
		return cfg.HTTPX.Path
	case tools.DNS:
		return cfg.DNS.Path
	case tools.Whois:
		return cfg.Whois.Path
	}
	return ""
}
