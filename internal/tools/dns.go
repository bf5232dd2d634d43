package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/anstrom/reconai/internal/runner"
)

// RecordTypes are queried, in this order, by every DNS lookup.
var RecordTypes = []uint16{
	dns.TypeA,
	dns.TypeAAAA,
	dns.TypeMX,
	dns.TypeNS,
	dns.TypeTXT,
	dns.TypeCNAME,
}

// DNSParams are the inputs of a DNS lookup.
type DNSParams struct {
	Domain string `json:"domain"`
}

// DNSLookup is the parsed payload of a DNS lookup, keyed by record type name.
type DNSLookup struct {
	Domain  string               `json:"domain"`
	Records map[string]DNSRecord `json:"records"`
}

// DNSRecord is the result for one record type. Exactly one of Output and
// Error is set.
type DNSRecord struct {
	Output  string   `json:"output,omitempty"`
	Answers []string `json:"answers,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Tool implements Parsed.
func (*DNSLookup) Tool() Name { return DNS }
func (*DNSLookup) isParsed()  {}

// DNSCommand builds the lookup command for one record type.
func (t *Toolkit) DNSCommand(domain string, rrtype uint16) runner.CommandSpec {
	return runner.NewCommandSpec(t.cfg.DNS.Path, "-type="+dns.TypeToString[rrtype], domain)
}

type dnsAnswer struct {
	outcome runner.Outcome
	cached  bool
}

// DNS queries every record type concurrently. A failed record type is
// recorded as an error under its own name and never affects the others; the
// lookup succeeds when at least one record type resolved.
func (t *Toolkit) DNS(ctx context.Context, p DNSParams) *Result {
	domain := strings.TrimSpace(p.Domain)
	if domain == "" {
		return rejected(DNS, "domain is required")
	}

	start := time.Now()
	answers := make([]dnsAnswer, len(RecordTypes))

	var g errgroup.Group
	for i, rrtype := range RecordTypes {
		g.Go(func() error {
			out, cached := t.execute(ctx, DNS, t.DNSCommand(domain, rrtype), t.cfg.DNS.Timeout)
			answers[i] = dnsAnswer{outcome: out, cached: cached}
			return nil
		})
	}
	_ = g.Wait()

	lookup := &DNSLookup{Domain: domain, Records: make(map[string]DNSRecord, len(RecordTypes))}
	var stdout, stderr strings.Builder
	commands := make([]string, 0, len(RecordTypes))
	succeeded := 0
	allCached := true

	for i, rrtype := range RecordTypes {
		name := dns.TypeToString[rrtype]
		ans := answers[i]
		commands = append(commands, ans.outcome.Command)
		allCached = allCached && ans.cached

		if ans.outcome.Success {
			succeeded++
			lookup.Records[name] = DNSRecord{
				Output:  ans.outcome.Stdout,
				Answers: parseNslookupAnswers(ans.outcome.Stdout),
			}
			fmt.Fprintf(&stdout, "; %s\n%s\n", name, strings.TrimRight(ans.outcome.Stdout, "\n"))
			continue
		}

		reason := failureReason(ans.outcome)
		lookup.Records[name] = DNSRecord{Error: reason}
		fmt.Fprintf(&stderr, "%s: %s\n", name, reason)
	}

	out := runner.Outcome{
		Success:       succeeded > 0,
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
		ExecutionTime: time.Since(start).Seconds(),
		Command:       strings.Join(commands, "; "),
	}
	if !out.Success {
		out.ExitCode = runner.FailureExitCode
		out.Error = "no record type could be resolved"
	}

	return t.finish(DNS, out, allCached, func(string) (Parsed, error) { return lookup, nil })
}

// failureReason picks the most specific description of a failed outcome.
func failureReason(o runner.Outcome) string {
	for _, s := range []string{o.Error, o.Stderr, o.Stdout} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return fmt.Sprintf("exit status %d", o.ExitCode)
}

// parseNslookupAnswers returns record values from nslookup output, skipping
// the leading server block.
func parseNslookupAnswers(stdout string) []string {
	blocks := strings.SplitN(strings.ReplaceAll(stdout, "\r\n", "\n"), "\n\n", 2)
	if len(blocks) < 2 {
		return nil
	}

	var answers []string
	for _, line := range strings.Split(blocks[1], "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.Contains(line, " = "):
			answers = append(answers, strings.TrimSpace(line[strings.Index(line, " = ")+3:]))
		case strings.HasPrefix(line, "Address:"):
			answers = append(answers, strings.TrimSpace(strings.TrimPrefix(line, "Address:")))
		}
	}
	return answers
}
