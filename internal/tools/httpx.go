package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/anstrom/reconai/internal/runner"
)

// HTTPXParams are the inputs of an httpx run. Targets are fed to the
// tool on stdin.
type HTTPXParams struct {
	Targets        []string `json:"targets"`
	AdditionalArgs string   `json:"additional_args,omitempty"`
}

// HTTPScan is the parsed payload of an httpx run.
type HTTPScan struct {
	Hosts        []LiveHost   `json:"hosts"`
	Technologies map[string]int `json:"technologies"`
	StatusCodes  map[string]int `json:"status_codes"`
}

// LiveHost is one responsive endpoint.
type LiveHost struct {
	URL          string   `json:"url"`
	StatusCode   int      `json:"status_code,omitempty"`
	Title        string   `json:"title,omitempty"`
	WebServer    string   `json:"webserver,omitempty"`
	Technologies []string `json:"technologies"`
}

// Tool implements Parsed.
func (*HTTPScan) Tool() Name { return HTTPX }
func (*HTTPScan) isParsed()  {}

// HTTPXCommand builds the httpx command line for p.
func (t *Toolkit) HTTPXCommand(p HTTPXParams) runner.CommandSpec {
	spec := runner.NewCommandSpec(t.cfg.HTTPX.Path,
		"-silent", "-json", "-title", "-tech-detect", "-status-code")
	return append(spec, splitArgs(p.AdditionalArgs)...)
}

// HTTPX checks the given hosts. The result is not cached because the
// target list travels on stdin and is not part of the command identity.
func (t *Toolkit) HTTPX(ctx context.Context, p HTTPXParams) *Result {
	targets := make([]string, 0, len(p.Targets))
	for _, target := range p.Targets {
		if target = strings.TrimSpace(target); target != "" {
			targets = append(targets, target)
		}
	}
	if len(targets) == 0 {
		return rejected(HTTPX, "at least one target is required")
	}

	spec := t.HTTPXCommand(p)
	out := t.runner.ExecuteWithInput(ctx, spec, targets, t.cfg.HTTPX.Timeout)
	return t.finish(HTTPX, out, false, ParseHTTPX)
}

// ParseHTTPX reads newline-delimited JSON. Lines that are not valid JSON
// objects are skipped.
func ParseHTTPX(stdout string) (Parsed, error) {
	result := &HTTPScan{
		Hosts:        []LiveHost{},
		Technologies: map[string]int{},
		StatusCodes:  map[string]int{},
	}

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}
		doc := gjson.Parse(line)
		if !doc.IsObject() {
			continue
		}

		host := LiveHost{
			URL:          doc.Get("url").String(),
			Title:        doc.Get("title").String(),
			WebServer:    doc.Get("webserver").String(),
			StatusCode:   int(statusCode(doc).Int()),
			Technologies: []string{},
		}
		for _, tech := range doc.Get("tech").Array() {
			name := tech.String()
			host.Technologies = append(host.Technologies, name)
			result.Technologies[name]++
		}
		if host.StatusCode != 0 {
			result.StatusCodes[strconv.Itoa(host.StatusCode)]++
		}
		result.Hosts = append(result.Hosts, host)
	}
	return result, nil
}

// statusCode accepts both key spellings used across httpx releases.
func statusCode(doc gjson.Result) gjson.Result {
	if v := doc.Get("status_code"); v.Exists() {
		return v
	}
	return doc.Get("status-code")
}
