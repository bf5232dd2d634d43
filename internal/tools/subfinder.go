package tools

import (
	"context"
	"strings"

	"github.com/anstrom/reconai/internal/runner"
)

// SubfinderParams are the inputs of a subdomain enumeration.
type SubfinderParams struct {
	Domain         string `json:"domain"`
	AdditionalArgs string `json:"additional_args,omitempty"`
}

// SubdomainScan is the parsed payload of a subfinder run. Subdomains keeps
// duplicates, so Count always equals the number of non-blank lines.
type SubdomainScan struct {
	Subdomains []string `json:"subdomains"`
	Count      int      `json:"count"`
}

// Tool implements Parsed.
func (*SubdomainScan) Tool() Name { return Subfinder }
func (*SubdomainScan) isParsed()  {}

// SubfinderCommand builds the subfinder command line for p.
func (t *Toolkit) SubfinderCommand(p SubfinderParams) runner.CommandSpec {
	spec := runner.NewCommandSpec(t.cfg.Subfinder.Path, "-d", p.Domain, "-silent")
	return append(spec, splitArgs(p.AdditionalArgs)...)
}

// Subfinder enumerates subdomains of a domain.
func (t *Toolkit) Subfinder(ctx context.Context, p SubfinderParams) *Result {
	if strings.TrimSpace(p.Domain) == "" {
		return rejected(Subfinder, "domain is required")
	}

	spec := t.SubfinderCommand(p)
	out, cached := t.execute(ctx, Subfinder, spec, t.cfg.Subfinder.Timeout)
	return t.finish(Subfinder, out, cached, ParseSubfinder)
}

// ParseSubfinder treats every non-blank line as one subdomain.
func ParseSubfinder(stdout string) (Parsed, error) {
	result := &SubdomainScan{Subdomains: []string{}}
	for _, line := range strings.Split(stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			result.Subdomains = append(result.Subdomains, line)
		}
	}
	result.Count = len(result.Subdomains)
	return result, nil
}
