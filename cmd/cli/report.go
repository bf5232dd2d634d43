package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anstrom/reconai/internal/api/handlers"
	"github.com/anstrom/reconai/internal/report"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report <scan-id>",
	Short: "Generate a report for a completed scan",
	Long: `Ask the server to render a completed scan as a report file.

The file is written into the server's report directory; its path is
printed on success.`,
	Example: `  reconai report 3f2a9c1e
  reconai report 3f2a9c1e --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", string(report.FormatHTML),
		"report format: html, json or markdown")
}

func runReport(cmd *cobra.Command, args []string) error {
	client, err := newClientFromConfig()
	if err != nil {
		return err
	}

	req := handlers.ReportRequest{ScanID: args[0], Format: reportFormat}
	var resp handlers.ReportResponse
	if err := client.Post(cmd.Context(), "/api/report/generate", req, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", colorLabel("Report written:"), resp.ReportPath)
	return nil
}
