package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/reconai/internal/api/middleware"
	"github.com/anstrom/reconai/internal/tools"
)

// ToolRunner is the set of ad-hoc tool adapters exposed over HTTP.
// *tools.Toolkit implements it.
type ToolRunner interface {
	Nmap(ctx context.Context, p tools.NmapParams) *tools.Result
	Gobuster(ctx context.Context, p tools.GobusterParams) *tools.Result
	Subfinder(ctx context.Context, p tools.SubfinderParams) *tools.Result
	HTTPX(ctx context.Context, p tools.HTTPXParams) *tools.Result
	DNS(ctx context.Context, p tools.DNSParams) *tools.Result
	Whois(ctx context.Context, p tools.WhoisParams) *tools.Result
}

var _ ToolRunner = (*tools.Toolkit)(nil)

// ToolHandler serves single-tool invocations.
type ToolHandler struct {
	tools     ToolRunner
	validator *validator.Validate
	logger    *slog.Logger
	maxBody   int64
}

// NewToolHandler creates a new tool handler.
func NewToolHandler(runner ToolRunner, logger *slog.Logger, maxBody int64) *ToolHandler {
	return &ToolHandler{
		tools:     runner,
		validator: newValidator(),
		logger:    logger.With("handler", "tools"),
		maxBody:   maxBody,
	}
}

// NmapRequest is the body of POST /api/tools/nmap.
type NmapRequest struct {
	Target         string `json:"target" validate:"required,max=2048,notflag"`
	ScanType       string `json:"scan_type,omitempty" validate:"omitempty,oneof=quick full service vuln"`
	Ports          string `json:"ports,omitempty" validate:"omitempty,max=512"`
	AdditionalArgs string `json:"additional_args,omitempty" validate:"omitempty,max=1024"`
}

// GobusterRequest is the body of POST /api/tools/gobuster.
type GobusterRequest struct {
	Target         string `json:"target" validate:"required,max=2048,notflag"`
	Mode           string `json:"mode,omitempty" validate:"omitempty,oneof=dir dns vhost"`
	Wordlist       string `json:"wordlist,omitempty" validate:"omitempty,max=1024"`
	Extensions     string `json:"extensions,omitempty" validate:"omitempty,max=256"`
	AdditionalArgs string `json:"additional_args,omitempty" validate:"omitempty,max=1024"`
}

// SubfinderRequest is the body of POST /api/tools/subfinder.
type SubfinderRequest struct {
	Domain         string `json:"domain" validate:"required,max=253,notflag,domain"`
	AdditionalArgs string `json:"additional_args,omitempty" validate:"omitempty,max=1024"`
}

// HTTPXRequest is the body of POST /api/tools/httpx.
type HTTPXRequest struct {
	Targets        []string `json:"targets" validate:"required,min=1,max=1000,dive,required,max=2048,notflag"`
	AdditionalArgs string   `json:"additional_args,omitempty" validate:"omitempty,max=1024"`
}

// DomainRequest is the body of the DNS and WHOIS endpoints.
type DomainRequest struct {
	Domain string `json:"domain" validate:"required,max=253,notflag,domain"`
}

// Nmap handles POST /api/tools/nmap.
func (h *ToolHandler) Nmap(w http.ResponseWriter, r *http.Request) {
	var req NmapRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}
	if req.ScanType == "" {
		req.ScanType = tools.ModeQuick
	}

	h.respond(w, r, h.tools.Nmap(detach(r), tools.NmapParams{
		Target:         req.Target,
		ScanType:       req.ScanType,
		Ports:          req.Ports,
		AdditionalArgs: req.AdditionalArgs,
	}))
}

// Gobuster handles POST /api/tools/gobuster.
func (h *ToolHandler) Gobuster(w http.ResponseWriter, r *http.Request) {
	var req GobusterRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}

	h.respond(w, r, h.tools.Gobuster(detach(r), tools.GobusterParams{
		Target:         req.Target,
		Mode:           req.Mode,
		Wordlist:       req.Wordlist,
		Extensions:     req.Extensions,
		AdditionalArgs: req.AdditionalArgs,
	}))
}

// Subfinder handles POST /api/tools/subfinder.
func (h *ToolHandler) Subfinder(w http.ResponseWriter, r *http.Request) {
	var req SubfinderRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}

	h.respond(w, r, h.tools.Subfinder(detach(r), tools.SubfinderParams{
		Domain:         req.Domain,
		AdditionalArgs: req.AdditionalArgs,
	}))
}

// HTTPX handles POST /api/tools/httpx.
func (h *ToolHandler) HTTPX(w http.ResponseWriter, r *http.Request) {
	var req HTTPXRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}

	h.respond(w, r, h.tools.HTTPX(detach(r), tools.HTTPXParams{
		Targets:        req.Targets,
		AdditionalArgs: req.AdditionalArgs,
	}))
}

// DNS handles POST /api/tools/dns.
func (h *ToolHandler) DNS(w http.ResponseWriter, r *http.Request) {
	var req DomainRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}

	h.respond(w, r, h.tools.DNS(detach(r), tools.DNSParams{Domain: req.Domain}))
}

// Whois handles POST /api/tools/whois.
func (h *ToolHandler) Whois(w http.ResponseWriter, r *http.Request) {
	var req DomainRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}

	h.respond(w, r, h.tools.Whois(detach(r), tools.WhoisParams{Domain: req.Domain}))
}

// respond writes a tool result. Execution failures are part of the result
// body, so the status is always 200.
func (h *ToolHandler) respond(w http.ResponseWriter, r *http.Request, res *tools.Result) {
	h.logger.Info("Tool request served",
		"request_id", middleware.GetRequestID(r),
		"tool", res.Tool,
		"success", res.Success,
		"cached", res.Cached)
	writeJSON(w, r, http.StatusOK, res)
}

// detach keeps request values but drops client cancellation: commands are
// bounded by their own timeouts only.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
