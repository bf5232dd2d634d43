package handlers

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/reconai/internal/config"
	apierrors "github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/jobs"
	"github.com/anstrom/reconai/internal/report"
)

type fakeReportWriter struct {
	formats []string
	err     error
}

func (f *fakeReportWriter) Generate(agg *jobs.Aggregate, format string) (string, error) {
	f.formats = append(f.formats, format)
	if f.err != nil {
		return "", f.err
	}
	return "reports/recon_" + agg.Target + "." + format, nil
}

func TestReportHandler_Generate(t *testing.T) {
	reg := jobs.NewRegistry()
	completeJob(t, reg, "done0001", "example.com")

	tests := []struct {
		name           string
		body           string
		writerErr      error
		expectedStatus int
		expectedFormat string
	}{
		{"default format", `{"scan_id":"done0001"}`, nil, http.StatusOK, "html"},
		{"json format", `{"scan_id":"done0001","format":"json"}`, nil, http.StatusOK, "json"},
		{"markdown alias", `{"scan_id":"done0001","format":"md"}`, nil, http.StatusOK, "md"},
		{"unsupported format", `{"scan_id":"done0001","format":"pdf"}`, nil, http.StatusBadRequest, ""},
		{"missing scan id", `{"format":"html"}`, nil, http.StatusBadRequest, ""},
		{"unknown scan", `{"scan_id":"nope"}`, nil, http.StatusNotFound, ""},
		{
			"write failure", `{"scan_id":"done0001"}`,
			apierrors.NewScanError(apierrors.CodeReportWrite, "failed to write report"),
			http.StatusInternalServerError, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &fakeReportWriter{err: tt.writerErr}
			h := NewReportHandler(reg, writer, createTestLogger(), 0)
			w := httptest.NewRecorder()

			h.Generate(w, jsonRequest("POST", "/api/report/generate", tt.body))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				assert.False(t, decodeBody[ErrorResponse](t, w).Success)
				return
			}
			resp := decodeBody[ReportResponse](t, w)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.expectedFormat, resp.Format)
			assert.Equal(t, "done0001", resp.ScanID)
			assert.NotEmpty(t, resp.ReportPath)
			assert.Equal(t, []string{tt.expectedFormat}, writer.formats)
		})
	}
}

func TestReportHandler_GenerateWritesFile(t *testing.T) {
	reg := jobs.NewRegistry()
	completeJob(t, reg, "done0001", "https://example.com/app")

	dir := t.TempDir()
	fixed := time.Date(2026, 4, 9, 14, 30, 5, 0, time.UTC)
	gen := report.NewGenerator(config.ReportsConfig{OutputDir: dir},
		report.WithClock(func() time.Time { return fixed }))
	h := NewReportHandler(reg, gen, createTestLogger(), 0)
	w := httptest.NewRecorder()

	h.Generate(w, jsonRequest("POST", "/api/report/generate", `{"scan_id":"done0001","format":"markdown"}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[ReportResponse](t, w)
	assert.Equal(t, filepath.Join(dir, "recon_example.com_app_20260409_143005.md"), resp.ReportPath)
	assert.FileExists(t, resp.ReportPath)
}
