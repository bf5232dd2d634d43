// Package cli provides command-line interface commands for reconai.
// This package implements the Cobra-based CLI: running the API server and
// driving a running server's tool, scan, report and cache endpoints.
package cli

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/logging"
)

const envPrefix = "RECONAI"

var (
	cfgFile    string
	verbose    bool
	serverURL  string
	jsonOutput bool
	noColor    bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconai",
	Short: "Reconnaissance tool orchestration server",
	Long: `reconai wraps nmap, gobuster, subfinder, httpx, nslookup and whois behind
an HTTP API, runs multi-tool comprehensive scans in the background and
renders their results as HTML, JSON or Markdown reports.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"base URL of a running reconai server (default from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON responses")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"verbose":    "verbose",
		"server_url": "server",
		"no_color":   "no-color",
	})
}

// bindFlags binds viper keys to the named flags of fs.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", name, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if viper.GetBool("no_color") {
		disableColor()
	}

	initLogging()
}

// loadConfig loads the file viper resolved, or defaults when there is none.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// apiBaseURL resolves the server to talk to: --server, RECONAI_SERVER_URL,
// then the configured listen address.
func apiBaseURL() (string, error) {
	if u := viper.GetString("server_url"); u != "" {
		return u, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return "http://" + net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)), nil
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return
	}

	logConfig := cfg.Logging
	if viper.GetBool("verbose") {
		logConfig.Level = logging.LevelDebug
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}
