package tools

import (
	"context"
	"strings"

	"github.com/anstrom/reconai/internal/runner"
)

// WhoisParams are the inputs of a WHOIS lookup.
type WhoisParams struct {
	Domain string `json:"domain"`
}

// WhoisRecord is the parsed payload of a WHOIS lookup. When a key repeats
// the last value wins.
type WhoisRecord struct {
	Fields map[string]string `json:"fields"`
}

// Tool implements Parsed.
func (*WhoisRecord) Tool() Name { return Whois }
func (*WhoisRecord) isParsed()  {}

// WhoisCommand builds the whois command line.
func (t *Toolkit) WhoisCommand(p WhoisParams) runner.CommandSpec {
	return runner.NewCommandSpec(t.cfg.Whois.Path, p.Domain)
}

// Whois looks up registration data for a domain.
func (t *Toolkit) Whois(ctx context.Context, p WhoisParams) *Result {
	if strings.TrimSpace(p.Domain) == "" {
		return rejected(Whois, "domain is required")
	}

	spec := t.WhoisCommand(p)
	out, cached := t.execute(ctx, Whois, spec, t.cfg.Whois.Timeout)
	return t.finish(Whois, out, cached, ParseWhois)
}

// ParseWhois splits "key: value" lines.
func ParseWhois(stdout string) (Parsed, error) {
	record := &WhoisRecord{Fields: map[string]string{}}
	for _, line := range strings.Split(stdout, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			record.Fields[key] = strings.TrimSpace(value)
		}
	}
	return record, nil
}
