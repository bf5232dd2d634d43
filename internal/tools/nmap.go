package tools

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/reconai/internal/runner"
)

// Nmap scan modes.
const (
	ModeQuick   = "quick"
	ModeFull    = "full"
	ModeService = "service"
	ModeVuln    = "vuln"
)

var nmapModeArgs = map[string][]string{
	ModeQuick:   {"-T4", "-F"},
	ModeFull:    {"-T4", "-p-"},
	ModeService: {"-sV", "-sC", "-T4"},
	ModeVuln:    {"--script=vuln", "-T4"},
}

// NmapParams are the inputs of a port scan.
type NmapParams struct {
	Target         string `json:"target"`
	ScanType       string `json:"scan_type,omitempty"`
	Ports          string `json:"ports,omitempty"`
	AdditionalArgs string `json:"additional_args,omitempty"`
}

// PortScan is the parsed payload of an nmap run.
type PortScan struct {
	OpenPorts   []string      `json:"open_ports"`
	Services    []ServiceInfo `json:"services"`
	OSDetection string        `json:"os_detection,omitempty"`
	Hosts       []string      `json:"hosts,omitempty"`
}

// ServiceInfo describes one open port.
type ServiceInfo struct {
	Port    string `json:"port"`
	State   string `json:"state"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// Tool implements Parsed.
func (*PortScan) Tool() Name { return Nmap }
func (*PortScan) isParsed()  {}

// NmapCommand builds the nmap command line for p.
func (t *Toolkit) NmapCommand(p NmapParams) runner.CommandSpec {
	args, ok := nmapModeArgs[p.ScanType]
	if !ok {
		args = splitArgs(t.cfg.Nmap.DefaultArgs)
	}

	spec := runner.NewCommandSpec(t.cfg.Nmap.Path, args...)
	if p.Ports != "" {
		spec = append(spec, "-p", p.Ports)
	}
	spec = append(spec, splitArgs(p.AdditionalArgs)...)
	return append(spec, p.Target)
}

// Nmap runs a port scan.
func (t *Toolkit) Nmap(ctx context.Context, p NmapParams) *Result {
	if strings.TrimSpace(p.Target) == "" {
		return rejected(Nmap, "target is required")
	}

	spec := t.NmapCommand(p)
	out, cached := t.execute(ctx, Nmap, spec, t.cfg.Nmap.Timeout)
	return t.finish(Nmap, out, cached, ParseNmap)
}

// ParseNmap extracts open ports from nmap output. XML output (-oX -) is
// decoded structurally; anything else is read as the normal text report.
func ParseNmap(stdout string) (Parsed, error) {
	trimmed := strings.TrimSpace(stdout)
	if strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<nmaprun") {
		return parseNmapXML([]byte(trimmed))
	}
	scan, err := parseNmapText(stdout)
	if err != nil {
		return nil, err
	}
	return scan, nil
}

func parseNmapText(stdout string) (*PortScan, error) {
	result := &PortScan{OpenPorts: []string{}, Services: []ServiceInfo{}}

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if (strings.Contains(line, "/tcp") || strings.Contains(line, "/udp")) && strings.Contains(line, "open") {
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				result.OpenPorts = append(result.OpenPorts, fields[0])
				result.Services = append(result.Services, ServiceInfo{
					Port:    fields[0],
					State:   fields[1],
					Service: fields[2],
					Version: strings.Join(fields[3:], " "),
				})
			}
		}

		if strings.Contains(line, "OS:") || strings.Contains(line, "Running:") {
			result.OSDetection = strings.TrimSpace(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read nmap output: %w", err)
	}
	return result, nil
}

func parseNmapXML(data []byte) (*PortScan, error) {
	var run nmap.Run
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode nmap xml: %w", err)
	}

	result := &PortScan{OpenPorts: []string{}, Services: []ServiceInfo{}}
	for i := range run.Hosts {
		h := &run.Hosts[i]
		if len(h.Addresses) > 0 {
			result.Hosts = append(result.Hosts, h.Addresses[0].Addr)
		}
		for _, p := range h.Ports {
			if !strings.Contains(p.State.State, "open") {
				continue
			}
			port := fmt.Sprintf("%d/%s", p.ID, p.Protocol)
			result.OpenPorts = append(result.OpenPorts, port)
			result.Services = append(result.Services, ServiceInfo{
				Port:    port,
				State:   p.State.State,
				Service: p.Service.Name,
				Version: strings.TrimSpace(p.Service.Product + " " + p.Service.Version),
			})
		}
		if len(h.OS.Matches) > 0 && result.OSDetection == "" {
			result.OSDetection = h.OS.Matches[0].Name
		}
	}
	return result, nil
}
