package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/reconai/internal/api/handlers"
	"github.com/anstrom/reconai/internal/jobs"
)

var (
	scanTools    []string
	scanWait     bool
	scanInterval time.Duration
	scanTimeout  time.Duration
)

// scanCmd groups the comprehensive scan commands.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Start and inspect comprehensive scans",
	Long: `Start comprehensive multi-tool scans on a running reconai server and
inspect their status and results.

A comprehensive scan runs its tools one after another in the background.
Its results become available once every tool has finished.`,
}

var scanStartCmd = &cobra.Command{
	Use:   "start <target>",
	Short: "Start a comprehensive scan",
	Example: `  reconai scan start example.com
  reconai scan start example.com --tools nmap,dns,subfinder
  reconai scan start https://example.com --tools gobuster --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runScanStart,
}

var scanStatusCmd = &cobra.Command{
	Use:   "status <scan-id>",
	Short: "Show the status of a scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanStatus,
}

var scanResultsCmd = &cobra.Command{
	Use:   "results <scan-id>",
	Short: "Show the results of a completed scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanResults,
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known scans",
	Args:  cobra.NoArgs,
	RunE:  runScanList,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanStartCmd, scanStatusCmd, scanResultsCmd, scanListCmd)

	scanStartCmd.Flags().StringSliceVar(&scanTools, "tools", nil,
		"steps to run: nmap, dns, gobuster, subfinder (default from server config)")
	scanStartCmd.Flags().BoolVar(&scanWait, "wait", false, "wait for the scan to complete and print its results")
	scanStartCmd.Flags().DurationVar(&scanInterval, "interval", 2*time.Second, "status polling interval with --wait")
	scanStartCmd.Flags().DurationVar(&scanTimeout, "timeout", time.Hour, "give up waiting after this long")
}

// scanResult mirrors jobs.Aggregate with tool payloads left undecoded.
type scanResult struct {
	ScanID        string                  `json:"scan_id"`
	Target        string                  `json:"target"`
	Results       map[string]toolResponse `json:"results"`
	TotalDuration float64                 `json:"total_duration"`
	StartedAt     time.Time               `json:"start_time"`
	EndedAt       time.Time               `json:"end_time"`
}

func runScanStart(cmd *cobra.Command, args []string) error {
	if scanWait && scanInterval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", scanInterval)
	}

	client, err := newClientFromConfig()
	if err != nil {
		return err
	}

	req := handlers.ScanRequest{Target: args[0], Tools: scanTools}
	var started handlers.ScanStartedResponse
	if err := client.Post(cmd.Context(), "/api/scan/comprehensive", req, &started); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !scanWait {
		if jsonOutput {
			return printJSON(out, started)
		}
		fmt.Fprintf(out, "%s %s\n", colorLabel("Scan started:"), started.ScanID)
		fmt.Fprintf(out, "Check progress with: reconai scan status %s\n", started.ScanID)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()
	if err := waitForScan(ctx, client, started.ScanID, scanInterval); err != nil {
		return err
	}
	return showScanResults(cmd.Context(), client, out, started.ScanID)
}

// waitForScan polls the status endpoint until the scan completes.
func waitForScan(ctx context.Context, client *APIClient, id string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var status handlers.ScanStatusResponse
		if err := client.Get(ctx, "/api/scan/status/"+id, &status); err != nil {
			return err
		}
		if status.Status == jobs.StatusCompleted {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("scan %s still running: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func runScanStatus(cmd *cobra.Command, args []string) error {
	client, err := newClientFromConfig()
	if err != nil {
		return err
	}

	var status handlers.ScanStatusResponse
	if err := client.Get(cmd.Context(), "/api/scan/status/"+args[0], &status); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, status)
	}

	values := map[string]string{
		"scan_id":    status.ScanID,
		"status":     statusText(string(status.Status)),
		"target":     status.Target,
		"tools":      strings.Join(status.Tools, ", "),
		"start_time": status.StartTime.Format(time.RFC3339),
	}
	if status.EndTime != nil {
		values["end_time"] = status.EndTime.Format(time.RFC3339)
	}
	if status.Duration != nil {
		values["duration"] = seconds(*status.Duration)
	}
	renderKeyValues(out, values)
	return nil
}

func runScanResults(cmd *cobra.Command, args []string) error {
	client, err := newClientFromConfig()
	if err != nil {
		return err
	}
	return showScanResults(cmd.Context(), client, cmd.OutOrStdout(), args[0])
}

func showScanResults(ctx context.Context, client *APIClient, out io.Writer, id string) error {
	var raw json.RawMessage
	if err := client.Get(ctx, "/api/scan/results/"+id, &raw); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(out, raw)
	}

	var res scanResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("failed to decode scan results: %w", err)
	}

	fmt.Fprintf(out, "%s %s (%s, %s)\n", colorLabel("Scan"), res.ScanID, res.Target, seconds(res.TotalDuration))
	rows := make([][]string, 0, len(res.Results))
	for _, name := range orderedToolNames(res.Results) {
		r := res.Results[name]
		rows = append(rows, []string{name, successText(r.Success), fmt.Sprint(r.ExitCode), seconds(r.ExecutionTime), r.summary()})
	}
	renderTable(out, []string{"Tool", "Result", "Exit", "Time", "Summary"}, rows)
	return nil
}

func runScanList(cmd *cobra.Command, _ []string) error {
	client, err := newClientFromConfig()
	if err != nil {
		return err
	}

	var list handlers.ScanListResponse
	if err := client.Get(cmd.Context(), "/api/scans", &list); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, list)
	}

	rows := make([][]string, 0, len(list.Scans))
	for _, s := range list.Scans {
		duration := "-"
		if s.Duration != nil {
			duration = seconds(*s.Duration)
		}
		rows = append(rows, []string{
			s.ScanID, s.Target, statusText(string(s.Status)),
			strings.Join(s.Tools, ","), s.StartTime.Format(time.RFC3339), duration,
		})
	}
	renderTable(out, []string{"ID", "Target", "Status", "Tools", "Started", "Duration"}, rows)
	fmt.Fprintf(out, "%d running, %d completed\n", list.Running, list.Completed)
	return nil
}
