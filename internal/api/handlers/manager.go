// Package handlers provides HTTP request handlers for the reconai API.
// This package implements the REST endpoint handlers for ad-hoc tool calls,
// comprehensive scans, reports, the result cache and health.
package handlers

import (
	"log/slog"
)

// Dependencies are the services the handler groups are built on.
type Dependencies struct {
	Tools          ToolRunner
	Scans          ScanStarter
	Jobs           JobReader
	Reports        ReportWriter
	Cache          CacheStore
	Availability   AvailabilityFunc
	MaxRequestSize int64
}

// HandlerManager manages all API handler groups.
type HandlerManager struct {
	Health *HealthHandler
	Tools  *ToolHandler
	Scan   *ScanHandler
	Report *ReportHandler
	Cache  *CacheHandler
}

// New creates a new handler manager with all handler groups initialized.
func New(deps Dependencies, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		Health: NewHealthHandler(deps.Jobs, deps.Cache, deps.Availability, logger),
		Tools:  NewToolHandler(deps.Tools, logger, deps.MaxRequestSize),
		Scan:   NewScanHandler(deps.Scans, deps.Jobs, logger, deps.MaxRequestSize),
		Report: NewReportHandler(deps.Jobs, deps.Reports, logger, deps.MaxRequestSize),
		Cache:  NewCacheHandler(deps.Cache, logger),
	}
}
