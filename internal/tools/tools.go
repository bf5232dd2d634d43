// Package tools adapts external reconnaissance tools to structured requests.
//
// Each adapter builds a deterministic runner.CommandSpec from flat
// parameters, consults the shared result cache, runs the command on a miss
// and parses successful output into a typed payload. Adapters never return
// errors: every failure is carried inside the returned Result.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/anstrom/reconai/internal/cache"
	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/runner"
)

// Name identifies a tool. It is also the key of a tool's result inside a
// scan aggregate.
type Name string

const (
	Nmap      Name = "nmap"
	Gobuster  Name = "gobuster"
	Subfinder Name = "subfinder"
	HTTPX     Name = "httpx"
	DNS       Name = "dns"
	Whois     Name = "whois"
)

// All lists every supported tool in display order.
var All = []Name{Nmap, Gobuster, Subfinder, HTTPX, DNS, Whois}

// Parsed is the typed payload extracted from a successful tool run.
// The concrete type is determined by the tool.
type Parsed interface {
	Tool() Name
	isParsed()
}

// Result is an execution outcome tagged with its tool and, when the command
// succeeded and its output could be parsed, the typed payload.
type Result struct {
	runner.Outcome
	Tool   Name   `json:"tool"`
	Cached bool   `json:"cached"`
	Parsed Parsed `json:"parsed,omitempty"`
}

// Toolkit holds the dependencies shared by every adapter.
type Toolkit struct {
	runner runner.Runner
	cache  *cache.Cache
	cfg    config.ToolsConfig
	logger *slog.Logger
}

// NewToolkit creates a Toolkit. A nil cache disables caching.
func NewToolkit(r runner.Runner, c *cache.Cache, cfg config.ToolsConfig, logger *slog.Logger) *Toolkit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolkit{
		runner: r,
		cache:  c,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "tools"),
	}
}

// Cache returns the result cache shared by the adapters, or nil.
func (t *Toolkit) Cache() *cache.Cache {
	return t.cache
}

// execute returns the cached outcome for spec or runs it and caches the
// fresh outcome, whatever its success.
func (t *Toolkit) execute(
	ctx context.Context, tool Name, spec runner.CommandSpec, timeout time.Duration,
) (runner.Outcome, bool) {
	if t.cache != nil {
		if out, ok := t.cache.Lookup(spec); ok {
			logging.WithTool(t.logger, string(tool)).Debug("cache hit", "command", spec.String())
			return out, true
		}
	}

	out := t.runner.Execute(ctx, spec, timeout)
	if t.cache != nil {
		t.cache.Store(spec, out)
	}
	return out, false
}

// finish wraps an outcome in a Result and attaches the parsed payload when
// the command succeeded. A parser failure only omits the payload.
func (t *Toolkit) finish(tool Name, out runner.Outcome, cached bool, parse func(string) (Parsed, error)) *Result {
	logger := logging.WithTool(t.logger, string(tool))
	res := &Result{Outcome: out, Tool: tool, Cached: cached}
	if out.Success && parse != nil {
		parsed, err := safeParse(parse, out.Stdout)
		if err != nil {
			logger.Warn("failed to parse tool output", "error", err)
		} else {
			res.Parsed = parsed
		}
	}

	logger.Info("tool executed",
		"success", res.Success,
		"cached", cached,
		"exit_code", res.ExitCode,
		"duration_s", res.ExecutionTime)
	return res
}

func safeParse(parse func(string) (Parsed, error), stdout string) (p Parsed, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("parser panicked: %v", rec)
		}
	}()
	return parse(stdout)
}

// rejected builds a failed Result for a request that could not be turned
// into a command, without running anything.
func rejected(tool Name, reason string) *Result {
	return &Result{
		Outcome: runner.Outcome{
			ExitCode: runner.FailureExitCode,
			Stderr:   reason,
			Error:    reason,
		},
		Tool: tool,
	}
}

// splitArgs tokenizes free-form extra arguments on whitespace.
func splitArgs(s string) []string {
	return strings.Fields(s)
}

// Availability reports, for every tool, whether its configured executable
// can be resolved.
func Availability(cfg config.ToolsConfig) map[Name]bool {
	paths := map[Name]string{
		Nmap:      cfg.Nmap.Path,
		Gobuster:  cfg.Gobuster.Path,
		Subfinder: cfg.Subfinder.Path,
		HTTPX:     cfg.HTTPX.Path,
		DNS:       cfg.DNS.Path,
		Whois:     cfg.Whois.Path,
	}

	available := make(map[Name]bool, len(paths))
	for name, path := range paths {
		_, err := exec.LookPath(path)
		available[name] = err == nil
	}
	return available
}
