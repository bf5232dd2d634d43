package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/anstrom/reconai/internal/api/handlers"
	"github.com/anstrom/reconai/internal/runner"
	"github.com/anstrom/reconai/internal/tools"
)

// Tool command flags.
var (
	toolScanType   string
	toolPorts      string
	toolMode       string
	toolWordlist   string
	toolExtensions string
	toolExtraArgs  string
	toolShowOutput bool
)

// toolResponse mirrors tools.Result with the parsed payload left raw.
type toolResponse struct {
	runner.Outcome
	Tool   string          `json:"tool"`
	Cached bool            `json:"cached"`
	Parsed json.RawMessage `json:"parsed,omitempty"`
}

// summary condenses the parsed payload into one line.
func (r toolResponse) summary() string {
	if !r.Success {
		if r.Error != "" {
			return r.Error
		}
		return excerpt(strings.TrimSpace(r.Stderr), 1)
	}
	if len(r.Parsed) == 0 {
		return ""
	}

	doc := gjson.ParseBytes(r.Parsed)
	switch tools.Name(r.Tool) {
	case tools.Nmap:
		return fmt.Sprintf("%d open ports", doc.Get("open_ports.#").Int())
	case tools.Gobuster:
		return fmt.Sprintf("%d paths", doc.Get("found_paths.#").Int())
	case tools.Subfinder:
		return fmt.Sprintf("%d subdomains", doc.Get("count").Int())
	case tools.HTTPX:
		return fmt.Sprintf("%d live hosts", doc.Get("hosts.#").Int())
	case tools.DNS:
		var types []string
		doc.Get("records").ForEach(func(key, value gjson.Result) bool {
			if value.Get("output").Exists() {
				types = append(types, key.String())
			}
			return true
		})
		slices.Sort(types)
		return "records: " + strings.Join(types, ",")
	case tools.Whois:
		if registrar := doc.Get(`fields.Registrar`); registrar.Exists() {
			return "registrar: " + registrar.String()
		}
		return fmt.Sprintf("%d fields", len(doc.Get("fields").Map()))
	}
	return ""
}

// orderedToolNames returns the keys of results in tools.All order.
func orderedToolNames(results map[string]toolResponse) []string {
	names := make([]string, 0, len(results))
	for _, n := range tools.All {
		if _, ok := results[string(n)]; ok {
			names = append(names, string(n))
		}
	}
	return names
}

// toolCmd groups the ad-hoc tool commands.
var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Run a single reconnaissance tool on the server",
	Long: `Run one tool synchronously on a running reconai server.

Results for the same request are served from the server's cache until
their TTL expires; httpx results are never cached.`,
}

var toolNmapCmd = &cobra.Command{
	Use:     "nmap <target>",
	Short:   "Port scan a target",
	Example: "  reconai tool nmap scanme.nmap.org --scan-type service --ports 22,80",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, tools.Nmap, handlers.NmapRequest{
			Target:         args[0],
			ScanType:       toolScanType,
			Ports:          toolPorts,
			AdditionalArgs: toolExtraArgs,
		})
	},
}

var toolGobusterCmd = &cobra.Command{
	Use:     "gobuster <target>",
	Short:   "Brute-force paths, subdomains or virtual hosts",
	Example: "  reconai tool gobuster https://example.com --extensions php,html",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, tools.Gobuster, handlers.GobusterRequest{
			Target:         args[0],
			Mode:           toolMode,
			Wordlist:       toolWordlist,
			Extensions:     toolExtensions,
			AdditionalArgs: toolExtraArgs,
		})
	},
}

var toolSubfinderCmd = &cobra.Command{
	Use:   "subfinder <domain>",
	Short: "Enumerate subdomains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, tools.Subfinder, handlers.SubfinderRequest{
			Domain:         args[0],
			AdditionalArgs: toolExtraArgs,
		})
	},
}

var toolHTTPXCmd = &cobra.Command{
	Use:     "httpx <target>...",
	Short:   "Check HTTP endpoints with httpx",
	Example: "  reconai tool httpx example.com www.example.com",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, tools.HTTPX, handlers.HTTPXRequest{
			Targets:        args,
			AdditionalArgs: toolExtraArgs,
		})
	},
}

var toolDNSCmd = &cobra.Command{
	Use:   "dns <domain>",
	Short: "Look up A, AAAA, MX, NS, TXT and CNAME records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, tools.DNS, handlers.DomainRequest{Domain: args[0]})
	},
}

var toolWhoisCmd = &cobra.Command{
	Use:   "whois <domain>",
	Short: "Look up WHOIS registration data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, tools.Whois, handlers.DomainRequest{Domain: args[0]})
	},
}

func init() {
	rootCmd.AddCommand(toolCmd)
	toolCmd.AddCommand(toolNmapCmd, toolGobusterCmd, toolSubfinderCmd, toolHTTPXCmd, toolDNSCmd, toolWhoisCmd)

	toolCmd.PersistentFlags().BoolVar(&toolShowOutput, "output", false, "print the tool's raw stdout")

	toolNmapCmd.Flags().StringVar(&toolScanType, "scan-type", tools.ModeQuick, "scan mode: quick, full, service or vuln")
	toolNmapCmd.Flags().StringVar(&toolPorts, "ports", "", "port specification passed to -p")

	toolGobusterCmd.Flags().StringVar(&toolMode, "mode", "dir", "gobuster mode: dir, dns or vhost")
	toolGobusterCmd.Flags().StringVar(&toolWordlist, "wordlist", "", "wordlist path (default from server config)")
	toolGobusterCmd.Flags().StringVar(&toolExtensions, "extensions", "", "file extensions for dir mode")

	for _, c := range []*cobra.Command{toolNmapCmd, toolGobusterCmd, toolSubfinderCmd, toolHTTPXCmd} {
		c.Flags().StringVar(&toolExtraArgs, "args", "", "additional arguments appended to the command")
	}
}

func runTool(cmd *cobra.Command, tool tools.Name, payload any) error {
	client, err := newClientFromConfig()
	if err != nil {
		return err
	}

	var raw json.RawMessage
	if err := client.Post(cmd.Context(), "/api/tools/"+string(tool), payload, &raw); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, raw)
	}

	var res toolResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", tool, err)
	}
	printToolResult(out, res)
	return nil
}

func printToolResult(out io.Writer, res toolResponse) {
	values := map[string]string{
		"tool":      res.Tool,
		"result":    successText(res.Success),
		"exit_code": fmt.Sprint(res.ExitCode),
		"time":      seconds(res.ExecutionTime),
		"cached":    fmt.Sprint(res.Cached),
		"command":   res.Command,
	}
	if s := res.summary(); s != "" {
		values["summary"] = s
	}
	if res.TimedOut {
		values["timed_out"] = colorWarn("true")
	}
	renderKeyValues(out, values)

	if toolShowOutput && res.Stdout != "" {
		fmt.Fprintln(out, excerpt(res.Stdout, 200))
	}
}
