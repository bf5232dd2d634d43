// Package cli provides command-line interface commands for reconai.
// This file implements the HTTP client the CLI uses to talk to a running
// reconai server.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anstrom/reconai/internal/api/middleware"
)

// defaultClientTimeout must outlast the slowest tool: ad-hoc tool calls are
// answered synchronously.
const defaultClientTimeout = 15 * time.Minute

// APIClient provides HTTP client functionality for CLI commands.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// APIError represents an API error response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("API error (status %d, request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// NewAPIClient creates a client for the server at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultClientTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		userAgent: "reconai-cli/" + version,
	}
}

// newClientFromConfig builds a client for the resolved server URL.
func newClientFromConfig() (*APIClient, error) {
	baseURL, err := apiBaseURL()
	if err != nil {
		return nil, err
	}
	return NewAPIClient(baseURL), nil
}

// Get performs a GET request and decodes the JSON body into out.
func (c *APIClient) Get(ctx context.Context, endpoint string, out any) error {
	return c.request(ctx, http.MethodGet, endpoint, nil, out)
}

// Post performs a POST request with a JSON payload and decodes the JSON body
// into out.
func (c *APIClient) Post(ctx context.Context, endpoint string, payload, out any) error {
	return c.request(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *APIClient) request(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(resp, data)
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(middleware.RequestIDHeader),
	}

	var body struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		if body.RequestID != "" {
			apiErr.RequestID = body.RequestID
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
