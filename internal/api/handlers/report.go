package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/jobs"
	"github.com/anstrom/reconai/internal/report"
)

// ReportWriter renders an aggregate to a file. *report.Generator implements it.
type ReportWriter interface {
	Generate(agg *jobs.Aggregate, format string) (string, error)
}

var _ ReportWriter = (*report.Generator)(nil)

// ReportHandler handles report generation.
type ReportHandler struct {
	jobs      JobReader
	reports   ReportWriter
	validator *validator.Validate
	logger    *slog.Logger
	maxBody   int64
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reader JobReader, reports ReportWriter, logger *slog.Logger, maxBody int64) *ReportHandler {
	return &ReportHandler{
		jobs:      reader,
		reports:   reports,
		validator: newValidator(),
		logger:    logger.With("handler", "report"),
		maxBody:   maxBody,
	}
}

// ReportRequest is the body of POST /api/report/generate.
type ReportRequest struct {
	ScanID string `json:"scan_id" validate:"required,max=64"`
	Format string `json:"format,omitempty" validate:"omitempty,oneof=html json markdown md"`
}

// ReportResponse names the written report.
type ReportResponse struct {
	Success    bool   `json:"success"`
	ReportPath string `json:"report_path"`
	Format     string `json:"format"`
	ScanID     string `json:"scan_id"`
}

// Generate handles POST /api/report/generate.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !decodeAndValidate(w, r, h.validator, &req, h.maxBody) {
		return
	}
	if req.Format == "" {
		req.Format = string(report.FormatHTML)
	}

	agg, ok := h.jobs.Result(req.ScanID)
	if !ok {
		writeError(w, r, http.StatusNotFound,
			errors.NewScanErrorWithTarget(errors.CodeNotFound, "scan results not found", req.ScanID))
		return
	}

	path, err := h.reports.Generate(agg, req.Format)
	if err != nil {
		handleError(w, r, h.logger, "generate report", err)
		return
	}

	writeJSON(w, r, http.StatusOK, ReportResponse{
		Success:    true,
		ReportPath: path,
		Format:     req.Format,
		ScanID:     req.ScanID,
	})
}
