// Package handlers provides HTTP request handlers for the reconai API.
// This file implements the comprehensive scan endpoints: start, status
// polling, results retrieval and listing.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/reconai/internal/api/middleware"
	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/jobs"
)

// ScanStarter launches comprehensive scans. *jobs.Orchestrator implements it.
type ScanStarter interface {
	Start(ctx context.Context, target string, requested []string) (string, error)
}

// JobReader exposes the job registry. *jobs.Registry implements it.
type JobReader interface {
	Status(id string) (jobs.Job, bool)
	Result(id string) (*jobs.Aggregate, bool)
	List() []jobs.Job
	Counts() jobs.Counts
}

var (
	_ ScanStarter = (*jobs.Orchestrator)(nil)
	_ JobReader   = (*jobs.Registry)(nil)
)

// ScanHandler handles comprehensive scan endpoints.
type ScanHandler struct {
	starter   ScanStarter
	jobs      JobReader
	validator *validator.Validate
	logger    *slog.Logger
	maxBody   int64
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(starter ScanStarter, reader JobReader, logger *slog.Logger, maxBody int64) *ScanHandler {
	return &ScanHandler{
		starter:   starter,
		jobs:      reader,
		validator: newValidator(),
		logger:    logger.With("handler", "scan"),
		maxBody:   maxBody,
	}
}

// ScanRequest is the body of POST /api/scan/comprehensive. ScanTypes is the
// older name of Tools and is used when Tools is empty.
type ScanRequest struct {
	Target    string   `json:"target" validate:"required,max=2048,notflag"`
	Tools     []string `json:"tools,omitempty" validate:"omitempty,max=16,dive,max=64"`
	ScanTypes []string `json:"scan_types,omitempty" validate:"omitempty,max=16,dive,max=64"`
}

// ScanStartedResponse acknowledges a started scan.
type ScanStartedResponse struct {
	Success   bool   `json:"success"`
	ScanID    string `json:"scan_id"`
	Message   string `json:"message"`
	StatusURL string `json:"status_url"`
}

// ScanStatusResponse is the polled view of a job.
type ScanStatusResponse struct {
	ScanID           string      `json:"scan_id"`
	Status           jobs.Status `json:"status"`
	Target           string      `json:"target"`
	Tools            []string    `json:"tools"`
	StartTime        time.Time   `json:"start_time"`
	EndTime          *time.Time  `json:"end_time,omitempty"`
	Duration         *float64    `json:"duration,omitempty"`
	ResultsAvailable *bool       `json:"results_available,omitempty"`
}

// ScanListResponse lists every known job, newest first.
type ScanListResponse struct {
	Scans     []ScanStatusResponse `json:"scans"`
	Running   int                  `json:"running"`
	Completed int                  `json:"completed"`
}

// StartComprehensive handles POST /api/scan/comprehensive.
func (h *ScanHandler) StartComprehensive(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}

	requested := req.Tools
	if len(requested) == 0 {
		requested = req.ScanTypes
	}

	id, err := h.starter.Start(r.Context(), req.Target, requested)
	if err != nil {
		handleError(w, r, h.logger, "start scan", err)
		return
	}

	h.logger.Info("Comprehensive scan started",
		"request_id", middleware.GetRequestID(r),
		"scan_id", id,
		"target", req.Target)

	writeJSON(w, r, http.StatusOK, ScanStartedResponse{
		Success:   true,
		ScanID:    id,
		Message:   "Comprehensive scan started",
		StatusURL: "/api/scan/status/" + id,
	})
}

// Status handles GET /api/scan/status/{id}.
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	job, ok := h.jobs.Status(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, errors.ErrScanNotFound(id))
		return
	}

	writeJSON(w, r, http.StatusOK, h.statusResponse(job))
}

// Results handles GET /api/scan/results/{id}. Running and unknown scans are
// both answered 404.
func (h *ScanHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	agg, ok := h.jobs.Result(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, errors.NewScanErrorWithTarget(errors.CodeNotFound, "results not found", id))
		return
	}

	writeJSON(w, r, http.StatusOK, agg)
}

// List handles GET /api/scans.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.jobs.List()
	counts := h.jobs.Counts()

	resp := ScanListResponse{
		Scans:     make([]ScanStatusResponse, 0, len(list)),
		Running:   counts.Running,
		Completed: counts.Completed,
	}
	for _, job := range list {
		resp.Scans = append(resp.Scans, h.statusResponse(job))
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *ScanHandler) statusResponse(job jobs.Job) ScanStatusResponse {
	resp := ScanStatusResponse{
		ScanID:    job.ID,
		Status:    job.Status,
		Target:    job.Target,
		Tools:     job.Tools,
		StartTime: job.StartedAt,
	}
	if job.Status == jobs.StatusCompleted {
		duration := job.Duration().Seconds()
		_, available := h.jobs.Result(job.ID)
		resp.EndTime = job.EndedAt
		resp.Duration = &duration
		resp.ResultsAvailable = &available
	}
	return resp
}
