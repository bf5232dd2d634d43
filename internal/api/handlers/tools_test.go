package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/reconai/internal/runner"
	"github.com/anstrom/reconai/internal/tools"
)

// fakeToolRunner records the parameters each adapter receives.
type fakeToolRunner struct {
	mu       sync.Mutex
	nmap     []tools.NmapParams
	gobuster []tools.GobusterParams
	httpx    []tools.HTTPXParams
	domains  []string
	ctxErr   error
	result   *tools.Result
}

func (f *fakeToolRunner) respond(ctx context.Context, name tools.Name) *tools.Result {
	f.ctxErr = ctx.Err()
	if f.result != nil {
		return f.result
	}
	return &tools.Result{
		Outcome: runner.Outcome{Success: true, Stdout: "ok", Command: string(name)},
		Tool:    name,
	}
}

func (f *fakeToolRunner) Nmap(ctx context.Context, p tools.NmapParams) *tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nmap = append(f.nmap, p)
	return f.respond(ctx, tools.Nmap)
}

func (f *fakeToolRunner) Gobuster(ctx context.Context, p tools.GobusterParams) *tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gobuster = append(f.gobuster, p)
	return f.respond(ctx, tools.Gobuster)
}

func (f *fakeToolRunner) Subfinder(ctx context.Context, p tools.SubfinderParams) *tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains = append(f.domains, p.Domain)
	return f.respond(ctx, tools.Subfinder)
}

func (f *fakeToolRunner) HTTPX(ctx context.Context, p tools.HTTPXParams) *tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.httpx = append(f.httpx, p)
	return f.respond(ctx, tools.HTTPX)
}

func (f *fakeToolRunner) DNS(ctx context.Context, p tools.DNSParams) *tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains = append(f.domains, p.Domain)
	return f.respond(ctx, tools.DNS)
}

func (f *fakeToolRunner) Whois(ctx context.Context, p tools.WhoisParams) *tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domains = append(f.domains, p.Domain)
	return f.respond(ctx, tools.Whois)
}

func TestToolHandler_Endpoints(t *testing.T) {
	tests := []struct {
		name     string
		handler  func(*ToolHandler) http.HandlerFunc
		body     string
		expected tools.Name
	}{
		{"nmap", func(h *ToolHandler) http.HandlerFunc { return h.Nmap }, `{"target":"10.0.0.1"}`, tools.Nmap},
		{"gobuster", func(h *ToolHandler) http.HandlerFunc { return h.Gobuster }, `{"target":"http://example.com"}`, tools.Gobuster},
		{"subfinder", func(h *ToolHandler) http.HandlerFunc { return h.Subfinder }, `{"domain":"example.com"}`, tools.Subfinder},
		{"httpx", func(h *ToolHandler) http.HandlerFunc { return h.HTTPX }, `{"targets":["a.example.com"]}`, tools.HTTPX},
		{"dns", func(h *ToolHandler) http.HandlerFunc { return h.DNS }, `{"domain":"example.com"}`, tools.DNS},
		{"whois", func(h *ToolHandler) http.HandlerFunc { return h.Whois }, `{"domain":"example.com"}`, tools.Whois},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeToolRunner{}
			h := NewToolHandler(fake, createTestLogger(), 0)
			w := httptest.NewRecorder()

			tt.handler(h)(w, jsonRequest("POST", "/api/tools/"+tt.name, tt.body))

			assert.Equal(t, http.StatusOK, w.Code)
			resp := decodeBody[map[string]any](t, w)
			assert.Equal(t, string(tt.expected), resp["tool"])
			assert.Equal(t, true, resp["success"])
		})
	}
}

func TestToolHandler_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*ToolHandler) http.HandlerFunc
		body    string
	}{
		{"nmap without target", func(h *ToolHandler) http.HandlerFunc { return h.Nmap }, `{"ports":"80"}`},
		{"gobuster without target", func(h *ToolHandler) http.HandlerFunc { return h.Gobuster }, `{}`},
		{"subfinder without domain", func(h *ToolHandler) http.HandlerFunc { return h.Subfinder }, `{}`},
		{"httpx without targets", func(h *ToolHandler) http.HandlerFunc { return h.HTTPX }, `{}`},
		{"dns without domain", func(h *ToolHandler) http.HandlerFunc { return h.DNS }, `{"domain":""}`},
		{"whois with bad body", func(h *ToolHandler) http.HandlerFunc { return h.Whois }, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeToolRunner{}
			h := NewToolHandler(fake, createTestLogger(), 0)
			w := httptest.NewRecorder()

			tt.handler(h)(w, jsonRequest("POST", "/api/tools/x", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeBody[ErrorResponse](t, w)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, fake.nmap)
			assert.Empty(t, fake.domains)
		})
	}
}

func TestToolHandler_RejectsOptionLikeTargets(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*ToolHandler) http.HandlerFunc
		body    string
	}{
		{"nmap target", func(h *ToolHandler) http.HandlerFunc { return h.Nmap }, `{"target":"-oN /tmp/x"}`},
		{"gobuster target", func(h *ToolHandler) http.HandlerFunc { return h.Gobuster }, `{"target":" --help"}`},
		{"subfinder domain", func(h *ToolHandler) http.HandlerFunc { return h.Subfinder }, `{"domain":"-silent"}`},
		{"httpx target entry", func(h *ToolHandler) http.HandlerFunc { return h.HTTPX }, `{"targets":["a.example.com","-o"]}`},
		{"dns domain", func(h *ToolHandler) http.HandlerFunc { return h.DNS }, `{"domain":"-debug"}`},
		{"whois domain", func(h *ToolHandler) http.HandlerFunc { return h.Whois }, `{"domain":"-h"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeToolRunner{}
			h := NewToolHandler(fake, createTestLogger(), 0)
			w := httptest.NewRecorder()

			tt.handler(h)(w, jsonRequest("POST", "/api/tools/x", tt.body))

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeBody[ErrorResponse](t, w)
			assert.Contains(t, resp.Error, "must not start with '-'")
			assert.Empty(t, fake.nmap)
			assert.Empty(t, fake.gobuster)
			assert.Empty(t, fake.httpx)
			assert.Empty(t, fake.domains)
		})
	}
}

func TestToolHandler_FailedResultIsStill200(t *testing.T) {
	fake := &fakeToolRunner{result: &tools.Result{
		Outcome: runner.Outcome{
			Success:  false,
			ExitCode: runner.FailureExitCode,
			NotFound: true,
			Error:    "tool not found: nmap",
		},
		Tool: tools.Nmap,
	}}
	h := NewToolHandler(fake, createTestLogger(), 0)
	w := httptest.NewRecorder()

	h.Nmap(w, jsonRequest("POST", "/api/tools/nmap", `{"target":"10.0.0.1"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[map[string]any](t, w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "tool not found: nmap", resp["error"])
}

func TestToolHandler_NmapDefaultsAndPassThrough(t *testing.T) {
	fake := &fakeToolRunner{}
	h := NewToolHandler(fake, createTestLogger(), 0)

	h.Nmap(httptest.NewRecorder(), jsonRequest("POST", "/api/tools/nmap", `{"target":"10.0.0.1","ports":"22,80"}`))
	h.Nmap(httptest.NewRecorder(), jsonRequest("POST", "/api/tools/nmap",
		`{"target":"10.0.0.1","scan_type":"vuln","additional_args":"-Pn"}`))

	require.Len(t, fake.nmap, 2)
	assert.Equal(t, tools.NmapParams{Target: "10.0.0.1", ScanType: tools.ModeQuick, Ports: "22,80"}, fake.nmap[0])
	assert.Equal(t, tools.NmapParams{Target: "10.0.0.1", ScanType: "vuln", AdditionalArgs: "-Pn"}, fake.nmap[1])
}

func TestToolHandler_DetachesFromClientCancel(t *testing.T) {
	fake := &fakeToolRunner{}
	h := NewToolHandler(fake, createTestLogger(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := jsonRequest("POST", "/api/tools/whois", `{"domain":"example.com"}`).WithContext(ctx)

	h.Whois(httptest.NewRecorder(), req)

	assert.NoError(t, fake.ctxErr)
}
