package report

import (
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode/utf8"

	"github.com/miekg/dns"

	"github.com/anstrom/reconai/internal/jobs"
	"github.com/anstrom/reconai/internal/tools"
)

// Section limits.
const (
	maxSubdomains = 50
	maxPaths      = 100
	maxHosts      = 50
	maxRawOutput  = 2000
	maxDNSOutput  = 500
)

type view struct {
	Target    string
	ScanID    string
	Generated string
	Duration  string

	OpenPorts  *int
	Subdomains *int
	Paths      *int

	Nmap      *nmapView
	Subfinder *subfinderView
	Gobuster  *gobusterView
	HTTPX     *httpxView
	DNS       []dnsView
}

type nmapView struct {
	OpenPorts int
	Services  []tools.ServiceInfo
	Raw       string
}

type subfinderView struct {
	Count      int
	Subdomains []string
}

type gobusterView struct {
	Total int
	Paths []pathView
}

type pathView struct {
	Path   string
	Status string
}

type httpxView struct {
	Total int
	Hosts []hostView
}

type hostView struct {
	URL          string
	Status       int
	Title        string
	Technologies string
}

type dnsView struct {
	Type   string
	Output string
	Error  string
}

func buildView(agg *jobs.Aggregate, generated time.Time) view {
	v := view{
		Target:    agg.Target,
		ScanID:    agg.ScanID,
		Generated: generated.Format(time.DateTime),
		Duration:  strconv.FormatFloat(agg.TotalDuration, 'f', 2, 64),
	}
	if v.Target == "" {
		v.Target = "unknown"
	}

	if scan, ok := parsedAs[*tools.PortScan](agg, tools.Nmap); ok {
		n := len(scan.OpenPorts)
		v.OpenPorts = &n
		v.Nmap = &nmapView{
			OpenPorts: n,
			Services:  scan.Services,
			Raw:       truncate(agg.Results[tools.Nmap].Stdout, maxRawOutput),
		}
	}

	if scan, ok := parsedAs[*tools.SubdomainScan](agg, tools.Subfinder); ok {
		v.Subdomains = &scan.Count
		v.Subfinder = &subfinderView{Count: scan.Count, Subdomains: head(scan.Subdomains, maxSubdomains)}
	}

	if scan, ok := parsedAs[*tools.DirectoryScan](agg, tools.Gobuster); ok {
		n := len(scan.Found)
		v.Paths = &n
		g := &gobusterView{Total: n}
		for _, f := range head(scan.Found, maxPaths) {
			status := "N/A"
			if f.Status != nil {
				status = strconv.Itoa(*f.Status)
			}
			g.Paths = append(g.Paths, pathView{Path: f.Path, Status: status})
		}
		v.Gobuster = g
	}

	if hx, ok := parsedAs[*tools.HTTPScan](agg, tools.HTTPX); ok {
		h := &httpxView{Total: len(hx.Hosts)}
		for _, host := range head(hx.Hosts, maxHosts) {
			title := host.Title
			if title == "" {
				title = "N/A"
			}
			h.Hosts = append(h.Hosts, hostView{
				URL:          host.URL,
				Status:       host.StatusCode,
				Title:        title,
				Technologies: strings.Join(host.Technologies, ", "),
			})
		}
		v.HTTPX = h
	}

	if lookup, ok := parsedAs[*tools.DNSLookup](agg, tools.DNS); ok {
		for _, rrtype := range tools.RecordTypes {
			name := dns.TypeToString[rrtype]
			rec, present := lookup.Records[name]
			if !present {
				continue
			}
			v.DNS = append(v.DNS, dnsView{Type: name, Output: truncate(rec.Output, maxDNSOutput), Error: rec.Error})
		}
	}

	return v
}

// parsedAs returns the typed payload of a successful result.
func parsedAs[T tools.Parsed](agg *jobs.Aggregate, name tools.Name) (T, bool) {
	var zero T
	res, ok := agg.Results[name]
	if !ok || res == nil || !res.Success || res.Parsed == nil {
		return zero, false
	}
	p, ok := res.Parsed.(T)
	return p, ok
}

func head[S ~[]E, E any](s S, n int) S {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var htmlReport = htmltemplate.Must(htmltemplate.New("report.html").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Reconnaissance Report - {{.Target}}</title>
    <style>
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f4f6f8; color: #222; margin: 0; padding: 20px; }
        .container { max-width: 1200px; margin: 0 auto; background: #fff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 12px rgba(0,0,0,.08); }
        .header { background: #1f2d3d; color: #fff; padding: 32px 40px; }
        .header h1 { margin: 0 0 12px; }
        .content { padding: 32px 40px; }
        .section { margin-bottom: 36px; }
        .section h2 { border-bottom: 2px solid #1f2d3d; padding-bottom: 8px; }
        .summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; }
        .summary-card { background: #eef2f6; border-radius: 8px; padding: 16px; text-align: center; }
        .summary-card .number { font-size: 2em; font-weight: bold; }
        .card { background: #fafbfc; border: 1px solid #e1e4e8; border-radius: 6px; padding: 16px; margin-bottom: 16px; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #e1e4e8; padding: 8px; text-align: left; }
        th { background: #eef2f6; }
        pre { background: #1e1e1e; color: #d4d4d4; padding: 12px; border-radius: 4px; overflow-x: auto; white-space: pre-wrap; }
        .badge { display: inline-block; background: #dbeafe; color: #1e40af; border-radius: 12px; padding: 3px 10px; margin: 3px; font-size: .9em; }
        .error { color: #b91c1c; }
        .footer { background: #eef2f6; text-align: center; padding: 16px; font-size: .9em; color: #555; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>Reconnaissance Report</h1>
        <div class="meta">
            <strong>Target:</strong> {{.Target}}<br>
            <strong>Scan:</strong> {{.ScanID}}<br>
            <strong>Generated:</strong> {{.Generated}}<br>
            <strong>Duration:</strong> {{.Duration}}s
        </div>
    </div>
    <div class="content">
        <div class="section">
            <h2>Summary</h2>
            <div class="summary-grid">
                {{- with .OpenPorts}}
                <div class="summary-card"><div class="number">{{.}}</div><div class="label">Open Ports</div></div>
                {{- end}}
                {{- with .Subdomains}}
                <div class="summary-card"><div class="number">{{.}}</div><div class="label">Subdomains</div></div>
                {{- end}}
                {{- with .Paths}}
                <div class="summary-card"><div class="number">{{.}}</div><div class="label">Discovered Paths</div></div>
                {{- end}}
            </div>
        </div>
        {{- with .Nmap}}
        <div class="section">
            <h2>Port Scan Results (Nmap)</h2>
            <div class="card">
                <h3>Open Ports: {{.OpenPorts}}</h3>
                {{- if .Services}}
                <table>
                    <tr><th>Port</th><th>State</th><th>Service</th><th>Version</th></tr>
                    {{- range .Services}}
                    <tr><td>{{.Port}}</td><td>{{.State}}</td><td>{{.Service}}</td><td>{{.Version}}</td></tr>
                    {{- end}}
                </table>
                {{- end}}
                <h3>Raw Output</h3>
                <pre>{{if .Raw}}{{.Raw}}{{else}}No output{{end}}</pre>
            </div>
        </div>
        {{- end}}
        {{- with .Subfinder}}
        <div class="section">
            <h2>Subdomain Enumeration</h2>
            <div class="card">
                <h3>Found {{.Count}} subdomains</h3>
                <div>{{range .Subdomains}}<span class="badge">{{.}}</span>{{end}}</div>
            </div>
        </div>
        {{- end}}
        {{- with .Gobuster}}
        <div class="section">
            <h2>Directory Enumeration</h2>
            <div class="card">
                <h3>Found {{.Total}} paths</h3>
                {{- if .Paths}}
                <table>
                    <tr><th>Path</th><th>Status</th></tr>
                    {{- range .Paths}}
                    <tr><td>{{.Path}}</td><td>{{.Status}}</td></tr>
                    {{- end}}
                </table>
                {{- end}}
            </div>
        </div>
        {{- end}}
        {{- with .HTTPX}}
        <div class="section">
            <h2>HTTP Probing Results</h2>
            <div class="card">
                <h3>Checked {{.Total}} hosts</h3>
                {{- if .Hosts}}
                <table>
                    <tr><th>URL</th><th>Status</th><th>Title</th><th>Technologies</th></tr>
                    {{- range .Hosts}}
                    <tr><td>{{.URL}}</td><td>{{.Status}}</td><td>{{.Title}}</td><td>{{.Technologies}}</td></tr>
                    {{- end}}
                </table>
                {{- end}}
            </div>
        </div>
        {{- end}}
        {{- if .DNS}}
        <div class="section">
            <h2>DNS Information</h2>
            {{- range .DNS}}
            <div class="card">
                <h3>{{.Type}} Records</h3>
                {{- if .Error}}
                <p class="error">{{.Error}}</p>
                {{- else}}
                <pre>{{.Output}}</pre>
                {{- end}}
            </div>
            {{- end}}
        </div>
        {{- end}}
    </div>
    <div class="footer">
        Generated by ReconAI<br>
        Report created on {{.Generated}}
    </div>
</div>
</body>
</html>
`))

var markdownReport = texttemplate.Must(texttemplate.New("report.md").Parse(`# Reconnaissance Report

**Target:** {{.Target}}
**Scan:** {{.ScanID}}
**Generated:** {{.Generated}}
**Duration:** {{.Duration}}s

---

## Summary

{{with .OpenPorts}}- **Open Ports:** {{.}}
{{end}}{{with .Subdomains}}- **Subdomains Found:** {{.}}
{{end}}{{with .Paths}}- **Discovered Paths:** {{.}}
{{end}}
---
{{with .Nmap}}
## Port Scan Results (Nmap)

{{if .Services}}| Port | State | Service | Version |
|------|-------|---------|---------|
{{range .Services}}| {{.Port}} | {{.State}} | {{.Service}} | {{.Version}} |
{{end}}{{else}}No open services.
{{end}}{{end}}{{with .Subfinder}}
## Subdomain Enumeration

**Total:** {{.Count}} subdomains

{{range .Subdomains}}- {{.}}
{{end}}{{end}}{{with .Gobuster}}
## Directory Enumeration

**Total:** {{.Total}} paths

{{range .Paths}}- {{.Path}} - {{.Status}}
{{end}}{{end}}{{with .HTTPX}}
## HTTP Probing Results

**Checked:** {{.Total}} hosts

| URL | Status | Title | Technologies |
|-----|--------|-------|--------------|
{{range .Hosts}}| {{.URL}} | {{.Status}} | {{.Title}} | {{.Technologies}} |
{{end}}{{end}}{{if .DNS}}
## DNS Information
{{range .DNS}}
### {{.Type}} Records

{{if .Error}}_Error: {{.Error}}_
{{else}}` + "```" + `
{{.Output}}
` + "```" + `
{{end}}{{end}}{{end}}`))
