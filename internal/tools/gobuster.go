package tools

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anstrom/reconai/internal/runner"
)

// Gobuster modes.
const (
	GobusterDir   = "dir"
	GobusterDNS   = "dns"
	GobusterVhost = "vhost"
)

var (
	urlSchemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	statusPattern    = regexp.MustCompile(`\(Status:\s*(\d{3})\)`)
)

// GobusterParams are the inputs of a brute-force enumeration.
type GobusterParams struct {
	Target         string `json:"target"`
	Mode           string `json:"mode,omitempty"`
	Wordlist       string `json:"wordlist,omitempty"`
	Extensions     string `json:"extensions,omitempty"`
	AdditionalArgs string `json:"additional_args,omitempty"`
}

// DirectoryScan is the parsed payload of a gobuster run.
type DirectoryScan struct {
	Found       []FoundPath    `json:"found_paths"`
	StatusCodes map[string]int `json:"status_codes"`
}

// FoundPath is one discovered entry. Status is nil when the output line
// carried no status token.
type FoundPath struct {
	Path   string `json:"path"`
	Status *int   `json:"status,omitempty"`
}

// Tool implements Parsed.
func (*DirectoryScan) Tool() Name { return Gobuster }
func (*DirectoryScan) isParsed()  {}

// HasScheme reports whether target is written as a URL with an explicit
// scheme, such as "https://example.com".
func HasScheme(target string) bool {
	return urlSchemePattern.MatchString(target)
}

// GobusterCommand builds the gobuster command line for p.
func (t *Toolkit) GobusterCommand(p GobusterParams) runner.CommandSpec {
	mode := p.Mode
	if mode == "" {
		mode = GobusterDir
	}
	wordlist := p.Wordlist
	if wordlist == "" {
		wordlist = t.cfg.Gobuster.Wordlist
	}

	spec := runner.NewCommandSpec(t.cfg.Gobuster.Path, mode, "-u", p.Target, "-w", wordlist, "-q")
	if mode == GobusterDir && p.Extensions != "" {
		spec = append(spec, "-x", p.Extensions)
	}
	return append(spec, splitArgs(p.AdditionalArgs)...)
}

// Gobuster runs directory, DNS or vhost brute-forcing.
func (t *Toolkit) Gobuster(ctx context.Context, p GobusterParams) *Result {
	if strings.TrimSpace(p.Target) == "" {
		return rejected(Gobuster, "target is required")
	}

	spec := t.GobusterCommand(p)
	out, cached := t.execute(ctx, Gobuster, spec, t.cfg.Gobuster.Timeout)
	return t.finish(Gobuster, out, cached, ParseGobuster)
}

// ParseGobuster collects lines that start with "/" or a URL scheme.
func ParseGobuster(stdout string) (Parsed, error) {
	result := &DirectoryScan{Found: []FoundPath{}, StatusCodes: map[string]int{}}

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "/") && !HasScheme(line) {
			continue
		}

		fields := strings.Fields(line)
		entry := FoundPath{Path: fields[0]}
		if m := statusPattern.FindStringSubmatch(line); m != nil {
			if code, err := strconv.Atoi(m[1]); err == nil {
				entry.Status = &code
				result.StatusCodes[m[1]]++
			}
		}
		result.Found = append(result.Found, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gobuster output: %w", err)
	}
	return result, nil
}
