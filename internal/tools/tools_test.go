package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/reconai/internal/cache"
	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/mocks"
	"github.com/anstrom/reconai/internal/runner"
)

func newTestToolkit(t *testing.T) (*Toolkit, *mocks.MockRunner) {
	t.Helper()
	ctrl := gomock.NewController(t)
	r := mocks.NewMockRunner(ctrl)
	c := cache.New(time.Hour, cache.WithLogger(logging.Discard()))
	return NewToolkit(r, c, config.Default().Tools, logging.Discard()), r
}

func ok(stdout string) runner.Outcome {
	return runner.Outcome{Success: true, Stdout: stdout, ExitCode: 0}
}

func TestNmapCommand(t *testing.T) {
	tk, _ := newTestToolkit(t)

	tests := []struct {
		name   string
		params NmapParams
		want   string
	}{
		{"quick", NmapParams{Target: "example.com", ScanType: ModeQuick}, "nmap -T4 -F example.com"},
		{"full", NmapParams{Target: "example.com", ScanType: ModeFull}, "nmap -T4 -p- example.com"},
		{"service", NmapParams{Target: "example.com", ScanType: ModeService}, "nmap -sV -sC -T4 example.com"},
		{"vuln", NmapParams{Target: "example.com", ScanType: ModeVuln}, "nmap --script=vuln -T4 example.com"},
		{"unknown mode uses default args", NmapParams{Target: "10.0.0.1", ScanType: "stealthy"}, "nmap -sV -sC 10.0.0.1"},
		{"empty mode uses default args", NmapParams{Target: "10.0.0.1"}, "nmap -sV -sC 10.0.0.1"},
		{
			"ports and extra args",
			NmapParams{Target: "example.com", ScanType: ModeQuick, Ports: "22,80", AdditionalArgs: " -Pn   --open "},
			"nmap -T4 -F -p 22,80 -Pn --open example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tk.NmapCommand(tt.params).String())
		})
	}
}

func TestGobusterCommand(t *testing.T) {
	tk, _ := newTestToolkit(t)
	wordlist := config.Default().Tools.Gobuster.Wordlist

	tests := []struct {
		name   string
		params GobusterParams
		want   string
	}{
		{
			"defaults",
			GobusterParams{Target: "http://example.com"},
			"gobuster dir -u http://example.com -w " + wordlist + " -q",
		},
		{
			"dir with extensions",
			GobusterParams{Target: "http://example.com", Extensions: "php,html,txt"},
			"gobuster dir -u http://example.com -w " + wordlist + " -q -x php,html,txt",
		},
		{
			"extensions ignored outside dir mode",
			GobusterParams{Target: "example.com", Mode: GobusterDNS, Wordlist: "/w.txt", Extensions: "php"},
			"gobuster dns -u example.com -w /w.txt -q",
		},
		{
			"extra args last",
			GobusterParams{Target: "http://x", Mode: GobusterVhost, Wordlist: "/w", AdditionalArgs: "-t 50"},
			"gobuster vhost -u http://x -w /w -q -t 50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tk.GobusterCommand(tt.params).String())
		})
	}
}

func TestOtherCommands(t *testing.T) {
	tk, _ := newTestToolkit(t)

	assert.Equal(t, "subfinder -d example.com -silent -all",
		tk.SubfinderCommand(SubfinderParams{Domain: "example.com", AdditionalArgs: "-all"}).String())
	assert.Equal(t, "httpx -silent -json -title -tech-detect -status-code",
		tk.HTTPXCommand(HTTPXParams{Targets: []string{"a"}}).String())
	assert.Equal(t, "nslookup -type=MX example.com", tk.DNSCommand("example.com", RecordTypes[2]).String())
	assert.Equal(t, "whois example.com", tk.WhoisCommand(WhoisParams{Domain: "example.com"}).String())
}

func TestHasScheme(t *testing.T) {
	assert.True(t, HasScheme("http://example.com"))
	assert.True(t, HasScheme("https://example.com/path"))
	assert.True(t, HasScheme("ftp://host"))
	assert.False(t, HasScheme("example.com"))
	assert.False(t, HasScheme("httpbin.org"))
	assert.False(t, HasScheme("/admin"))
	assert.False(t, HasScheme(""))
}

func TestNmap_ParsesAndCaches(t *testing.T) {
	tk, r := newTestToolkit(t)
	stdout := "PORT   STATE SERVICE\n22/tcp open  ssh\n80/tcp open  http\n"

	r.EXPECT().
		Execute(gomock.Any(), runner.CommandSpec{"nmap", "-T4", "-F", "example.com"}, 300*time.Second).
		Return(ok(stdout)).
		Times(1)

	first := tk.Nmap(context.Background(), NmapParams{Target: "example.com", ScanType: ModeQuick})
	second := tk.Nmap(context.Background(), NmapParams{Target: "example.com", ScanType: ModeQuick})

	require.True(t, first.Success)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, Nmap, second.Tool)

	scan, isScan := second.Parsed.(*PortScan)
	require.True(t, isScan)
	assert.Equal(t, []string{"22/tcp", "80/tcp"}, scan.OpenPorts)
}

func TestAdapter_FailureIsCachedWithoutParsed(t *testing.T) {
	tk, r := newTestToolkit(t)
	timedOut := runner.Outcome{
		TimedOut: true,
		ExitCode: runner.FailureExitCode,
		Stdout:   "partial",
		Error:    "command timed out after 5m0s",
	}

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).Return(timedOut).Times(1)

	for i := 0; i < 2; i++ {
		res := tk.Subfinder(context.Background(), SubfinderParams{Domain: "example.com"})
		assert.False(t, res.Success)
		assert.True(t, res.TimedOut)
		assert.Nil(t, res.Parsed, "parsed must be absent on failure")
		assert.Equal(t, i == 1, res.Cached)
	}
}

func TestAdapter_ParseFailureKeepsSuccess(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ok(`<?xml version="1.0"?><nmaprun><host>`))

	res := tk.Nmap(context.Background(), NmapParams{Target: "example.com"})

	assert.True(t, res.Success)
	assert.Nil(t, res.Parsed)
}

func TestAdapter_ScannerErrorOmitsParsed(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ok("/admin (Status: 200)\n" + strings.Repeat("x", 2<<20) + "\n"))

	res := tk.Gobuster(context.Background(), GobusterParams{Target: "https://example.com"})

	assert.True(t, res.Success)
	assert.Nil(t, res.Parsed)
}

func TestAdapter_EmptyInputsDoNotRun(t *testing.T) {
	tk, _ := newTestToolkit(t)
	ctx := context.Background()

	results := []*Result{
		tk.Nmap(ctx, NmapParams{}),
		tk.Gobuster(ctx, GobusterParams{Target: "  "}),
		tk.Subfinder(ctx, SubfinderParams{}),
		tk.HTTPX(ctx, HTTPXParams{Targets: []string{"", " "}}),
		tk.DNS(ctx, DNSParams{}),
		tk.Whois(ctx, WhoisParams{}),
	}

	for _, res := range results {
		t.Run(string(res.Tool), func(t *testing.T) {
			assert.False(t, res.Success)
			assert.Equal(t, runner.FailureExitCode, res.ExitCode)
			assert.NotEmpty(t, res.Stderr)
			assert.Nil(t, res.Parsed)
		})
	}
}

func TestHTTPX_FeedsTargetsOnStdinUncached(t *testing.T) {
	tk, r := newTestToolkit(t)
	stdout := `{"url":"https://a.example.com","status_code":200,"title":"A","tech":["Nginx"]}` + "\n"

	r.EXPECT().
		ExecuteWithInput(gomock.Any(), gomock.Any(), []string{"a.example.com", "b.example.com"}, 300*time.Second).
		Return(ok(stdout)).
		Times(2)

	params := HTTPXParams{Targets: []string{"a.example.com", " ", "b.example.com "}}
	first := tk.HTTPX(context.Background(), params)
	second := tk.HTTPX(context.Background(), params)

	assert.False(t, first.Cached)
	assert.False(t, second.Cached)
	hx, isScan := second.Parsed.(*HTTPScan)
	require.True(t, isScan)
	assert.Len(t, hx.Hosts, 1)
}

func TestDNS_PartialFailureContained(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), 10*time.Second).
		DoAndReturn(func(_ context.Context, spec runner.CommandSpec, _ time.Duration) runner.Outcome {
			if spec[1] == "-type=MX" {
				return runner.Outcome{
					ExitCode: runner.FailureExitCode,
					TimedOut: true,
					Error:    "command timed out after 10s",
					Command:  spec.String(),
				}
			}
			return runner.Outcome{
				Success: true,
				Stdout:  "Server:\t\t127.0.0.53\nAddress:\t127.0.0.53#53\n\nName:\texample.com\nAddress: 93.184.216.34\n",
				Command: spec.String(),
			}
		}).
		Times(len(RecordTypes))

	res := tk.DNS(context.Background(), DNSParams{Domain: "example.com"})

	require.True(t, res.Success)
	lookup, isLookup := res.Parsed.(*DNSLookup)
	require.True(t, isLookup)
	assert.Equal(t, "example.com", lookup.Domain)
	require.Len(t, lookup.Records, 6)

	for _, name := range []string{"A", "AAAA", "NS", "TXT", "CNAME"} {
		rec := lookup.Records[name]
		assert.Empty(t, rec.Error, name)
		assert.Equal(t, []string{"93.184.216.34"}, rec.Answers, name)
	}
	assert.Equal(t, "command timed out after 10s", lookup.Records["MX"].Error)
	assert.Empty(t, lookup.Records["MX"].Output)
	assert.Contains(t, res.Stderr, "MX: command timed out")
	assert.Equal(t, len(RecordTypes)-1, strings.Count(res.Command, "; "))
}

func TestDNS_AllFail(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(runner.Outcome{NotFound: true, ExitCode: runner.FailureExitCode, Error: "command not found: nslookup"}).
		Times(len(RecordTypes))

	res := tk.DNS(context.Background(), DNSParams{Domain: "example.com"})

	assert.False(t, res.Success)
	assert.Nil(t, res.Parsed)
	assert.Equal(t, runner.FailureExitCode, res.ExitCode)
	assert.Contains(t, res.Stderr, "AAAA: command not found: nslookup")
}

func TestDNS_AllFailReportsEveryRecordType(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, spec runner.CommandSpec, _ time.Duration) runner.Outcome {
			return runner.Outcome{
				ExitCode: 1,
				Stderr:   "** server can't find example.com: " + strings.TrimPrefix(spec[1], "-type=") + "\n",
				Command:  spec.String(),
			}
		}).
		Times(len(RecordTypes))

	res := tk.DNS(context.Background(), DNSParams{Domain: "example.com"})

	require.False(t, res.Success)
	assert.Nil(t, res.Parsed)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "no record type could be resolved", res.Error)
	assert.Equal(t, "A: ** server can't find example.com: A\n"+
		"AAAA: ** server can't find example.com: AAAA\n"+
		"MX: ** server can't find example.com: MX\n"+
		"NS: ** server can't find example.com: NS\n"+
		"TXT: ** server can't find example.com: TXT\n"+
		"CNAME: ** server can't find example.com: CNAME\n", res.Stderr)
	assert.Equal(t, len(RecordTypes)-1, strings.Count(res.Command, "; "))
}

func TestDNS_CachedPerRecordType(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ok("Server: x\n\nAddress: 1.2.3.4\n")).
		Times(len(RecordTypes))

	first := tk.DNS(context.Background(), DNSParams{Domain: "example.com"})
	second := tk.DNS(context.Background(), DNSParams{Domain: "example.com"})

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, len(RecordTypes), tk.Cache().Stats().Size)
}

func TestWhois(t *testing.T) {
	tk, r := newTestToolkit(t)

	r.EXPECT().Execute(gomock.Any(), runner.CommandSpec{"whois", "example.com"}, 30*time.Second).
		Return(ok("Domain Name: EXAMPLE.COM\nRegistrar: RESERVED-Internet Assigned Numbers Authority\n"))

	res := tk.Whois(context.Background(), WhoisParams{Domain: "example.com"})

	record, isRecord := res.Parsed.(*WhoisRecord)
	require.True(t, isRecord)
	assert.Equal(t, "EXAMPLE.COM", record.Fields["Domain Name"])
}

func TestNilCacheAlwaysRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockRunner(ctrl)
	tk := NewToolkit(r, nil, config.Default().Tools, nil)

	r.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any()).Return(ok("")).Times(2)

	tk.Whois(context.Background(), WhoisParams{Domain: "example.com"})
	tk.Whois(context.Background(), WhoisParams{Domain: "example.com"})
	assert.Nil(t, tk.Cache())
}

func TestAvailability(t *testing.T) {
	cfg := config.Default().Tools
	cfg.Nmap.Path = "sh"
	cfg.Whois.Path = "reconai-missing-whois"

	available := Availability(cfg)

	assert.Len(t, available, len(All))
	assert.True(t, available[Nmap])
	assert.False(t, available[Whois])
}
