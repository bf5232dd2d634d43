// Package config loads and validates the reconai server configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/logging"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Config represents the complete server configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// External tool locations and limits
	Tools ToolsConfig `yaml:"tools" json:"tools"`

	// Result cache configuration
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Comprehensive scan pipeline configuration
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Report output configuration
	Reports ReportsConfig `yaml:"reports" json:"reports"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Maximum accepted request body in bytes
	MaxRequestSize int64 `yaml:"max_request_size" json:"max_request_size"`

	CORS CORSConfig `yaml:"cors" json:"cors"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// ToolConfig describes how one external tool is invoked
type ToolConfig struct {
	// Executable name or absolute path
	Path string `yaml:"path" json:"path"`

	// Wall-clock limit per invocation
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Arguments used when no known mode is requested
	DefaultArgs string `yaml:"default_args,omitempty" json:"default_args,omitempty"`

	// Default wordlist (gobuster only)
	Wordlist string `yaml:"wordlist,omitempty" json:"wordlist,omitempty"`
}

// ToolsConfig holds per-tool settings
type ToolsConfig struct {
	Nmap      ToolConfig `yaml:"nmap" json:"nmap"`
	Gobuster  ToolConfig `yaml:"gobuster" json:"gobuster"`
	Subfinder ToolConfig `yaml:"subfinder" json:"subfinder"`
	HTTPX     ToolConfig `yaml:"httpx" json:"httpx"`
	DNS       ToolConfig `yaml:"dns" json:"dns"`
	Whois     ToolConfig `yaml:"whois" json:"whois"`
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// ScanConfig holds comprehensive scan settings
type ScanConfig struct {
	// Tools run when a request names none
	DefaultTools []string `yaml:"default_tools" json:"default_tools"`

	// Maximum number of discovered subdomains checked with httpx
	HTTPXLimit int `yaml:"httpx_limit" json:"httpx_limit"`

	// Extensions passed to directory enumeration
	DirectoryExtensions string `yaml:"directory_extensions" json:"directory_extensions"`
}

// ReportsConfig holds report output settings
type ReportsConfig struct {
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    15 * time.Minute,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxRequestSize:  1024 * 1024, // 1MB
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
			},
		},
		Tools: ToolsConfig{
			Nmap: ToolConfig{
				Path:        "nmap",
				Timeout:     300 * time.Second,
				DefaultArgs: "-sV -sC",
			},
			Gobuster: ToolConfig{
				Path:     "gobuster",
				Timeout:  300 * time.Second,
				Wordlist: "/usr/share/wordlists/dirb/common.txt",
			},
			Subfinder: ToolConfig{Path: "subfinder", Timeout: 300 * time.Second},
			HTTPX:     ToolConfig{Path: "httpx", Timeout: 300 * time.Second},
			DNS:       ToolConfig{Path: "nslookup", Timeout: 10 * time.Second},
			Whois:     ToolConfig{Path: "whois", Timeout: 30 * time.Second},
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Scan: ScanConfig{
			DefaultTools:        []string{"nmap", "gobuster", "dns"},
			HTTPXLimit:          50,
			DirectoryExtensions: "php,html,txt",
		},
		Reports: ReportsConfig{
			OutputDir: "reports",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	// Start with defaults
	config := Default()

	if path == "" {
		return config, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // Return defaults if no config file
	}

	data, err := os.ReadFile(path) // #nosec G304 - operator supplied config path
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// JSON is a subset of YAML so one decoder serves both extensions
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.ErrConfigMissing("server.host")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrConfigInvalid("server.port", c.Server.Port)
	}
	if c.Server.MaxRequestSize <= 0 {
		return errors.ErrConfigInvalid("server.max_request_size", c.Server.MaxRequestSize)
	}

	for name, tool := range c.Tools.byName() {
		if tool.Path == "" {
			return errors.ErrConfigMissing("tools." + name + ".path")
		}
		if tool.Timeout <= 0 {
			return errors.ErrConfigInvalid("tools."+name+".timeout", tool.Timeout)
		}
	}

	if c.Cache.TTL <= 0 {
		return errors.ErrConfigInvalid("cache.ttl", c.Cache.TTL)
	}
	if c.Scan.HTTPXLimit <= 0 {
		return errors.ErrConfigInvalid("scan.httpx_limit", c.Scan.HTTPXLimit)
	}
	if c.Reports.OutputDir == "" {
		return errors.ErrConfigMissing("reports.output_dir")
	}

	validLogLevels := map[logging.LogLevel]bool{
		logging.LevelDebug: true,
		logging.LevelInfo:  true,
		logging.LevelWarn:  true,
		logging.LevelError: true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.ErrConfigInvalid("logging.level", c.Logging.Level)
	}
	if c.Logging.Format != logging.FormatText && c.Logging.Format != logging.FormatJSON {
		return errors.ErrConfigInvalid("logging.format", c.Logging.Format)
	}

	return nil
}

func (t ToolsConfig) byName() map[string]ToolConfig {
	return map[string]ToolConfig{
		"nmap":      t.Nmap,
		"gobuster":  t.Gobuster,
		"subfinder": t.Subfinder,
		"httpx":     t.HTTPX,
		"dns":       t.DNS,
		"whois":     t.Whois,
	}
}

// Address returns the host:port the API server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
