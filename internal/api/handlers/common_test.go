package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/reconai/internal/api/middleware"
	apierrors "github.com/anstrom/reconai/internal/errors"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		data           any
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "successful response",
			statusCode:     http.StatusOK,
			data:           map[string]string{"message": "success"},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"success"}`,
		},
		{
			name:           "not found response",
			statusCode:     http.StatusNotFound,
			data:           map[string]any{"success": false},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"success":false}`,
		},
		{
			name:           "nil data",
			statusCode:     http.StatusOK,
			data:           nil,
			expectedStatus: http.StatusOK,
			expectedBody:   "null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", http.NoBody)
			w := httptest.NewRecorder()

			writeJSON(w, req, tt.statusCode, tt.data)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		expectedError string
	}{
		{
			name:          "plain error",
			err:           errors.New("something broke"),
			expectedError: "something broke",
		},
		{
			name:          "coded error drops the code prefix",
			err:           apierrors.ErrScanNotFound("abc12345"),
			expectedError: "scan not found (target: abc12345)",
		},
		{
			name:          "wrapped coded error",
			err:           fmt.Errorf("lookup: %w", apierrors.NewScanError(apierrors.CodeValidation, "bad input")),
			expectedError: "bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", http.NoBody)
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-123"))
			w := httptest.NewRecorder()

			writeError(w, req, http.StatusBadRequest, tt.err)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeBody[ErrorResponse](t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedError, resp.Error)
			assert.Equal(t, "req-123", resp.RequestID)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", apierrors.ErrScanNotFound("x"), http.StatusNotFound},
		{"validation", apierrors.NewScanError(apierrors.CodeValidation, "bad"), http.StatusBadRequest},
		{"invalid target", apierrors.ErrInvalidTarget(""), http.StatusBadRequest},
		{"report format", apierrors.NewScanError(apierrors.CodeReportFormat, "pdf"), http.StatusBadRequest},
		{"conflict", apierrors.NewScanError(apierrors.CodeConflict, "dup"), http.StatusConflict},
		{"internal", apierrors.NewScanError(apierrors.CodeInternal, "boom"), http.StatusInternalServerError},
		{"uncoded", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestHandleError_HidesInternalDetail(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", http.NoBody)
	w := httptest.NewRecorder()

	handleError(w, req, createTestLogger(), "write report",
		apierrors.WrapScanError(apierrors.CodeReportWrite, "disk", errors.New("/secret/path: permission denied")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.Equal(t, "failed to write report", resp.Error)
	assert.NotContains(t, w.Body.String(), "/secret/path")
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		body        string
		maxSize     int64
		expectedErr string
	}{
		{name: "valid object", body: `{"name": "test"}`},
		{name: "invalid JSON", body: `{"name":}`, expectedErr: "invalid JSON"},
		{name: "empty body", body: "", expectedErr: "request body is empty"},
		{name: "unknown fields", body: `{"name": "test", "extra": 1}`, expectedErr: "invalid JSON"},
		{name: "trailing data", body: `{"name": "a"} {"name": "b"}`, expectedErr: "unexpected data"},
		{name: "too large", body: `{"name": "` + strings.Repeat("a", 64) + `"}`, maxSize: 16, expectedErr: "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", http.NoBody)
			if tt.body != "" {
				req = httptest.NewRequest("POST", "/test", strings.NewReader(tt.body))
			}
			w := httptest.NewRecorder()

			var dest payload
			err := parseJSON(w, req, &dest, tt.maxSize)

			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.True(t, apierrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", dest.Name)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name        string
		req         any
		expectedErr string
	}{
		{
			name: "valid nmap request",
			req:  &NmapRequest{Target: "example.com", ScanType: "service"},
		},
		{
			name:        "missing target",
			req:         &NmapRequest{},
			expectedErr: "target is required",
		},
		{
			name:        "unknown scan type",
			req:         &NmapRequest{Target: "example.com", ScanType: "stealth"},
			expectedErr: "scan_type must be one of [quick full service vuln]",
		},
		{
			name: "valid domain",
			req:  &DomainRequest{Domain: "sub.example.com"},
		},
		{
			name:        "invalid domain",
			req:         &DomainRequest{Domain: "exa mple..com"},
			expectedErr: "domain must be a valid domain name",
		},
		{
			name:        "empty targets",
			req:         &HTTPXRequest{Targets: []string{}},
			expectedErr: "targets",
		},
		{
			name:        "blank target entry",
			req:         &HTTPXRequest{Targets: []string{"a.example.com", ""}},
			expectedErr: "is required",
		},
		{
			name:        "option-like target",
			req:         &NmapRequest{Target: "-oN /tmp/x"},
			expectedErr: "target must not start with '-'",
		},
		{
			name:        "option-like scan target",
			req:         &ScanRequest{Target: "-iL /etc/hosts"},
			expectedErr: "target must not start with '-'",
		},
		{
			name: "hyphen inside target",
			req:  &NmapRequest{Target: "my-host.example.com"},
		},
		{
			name:        "report format",
			req:         &ReportRequest{ScanID: "abc", Format: "pdf"},
			expectedErr: "format must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(v, tt.req)
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apierrors.IsValidation(err))
			assert.Contains(t, apierrors.Message(err), tt.expectedErr)
		})
	}
}

func TestPathID(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest("GET", "/x", http.NoBody), map[string]string{"id": " abc "})
	id, err := pathID(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = pathID(httptest.NewRequest("GET", "/x", http.NoBody))
	assert.True(t, apierrors.IsValidation(err))
}
