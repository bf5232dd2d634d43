// Package report renders completed scan aggregates as HTML, JSON or Markdown
// documents and writes them to the reports directory.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/jobs"
	"github.com/anstrom/reconai/internal/logging"
)

// Format is a report output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

const (
	reportDirPerm   = 0750
	reportFilePerm  = 0600
	timestampLayout = "20060102_150405"
)

// ParseFormat resolves a format name. "md" is accepted for Markdown and an
// empty name selects HTML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(FormatHTML):
		return FormatHTML, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", errors.NewScanError(errors.CodeReportFormat, fmt.Sprintf("unsupported report format %q", name))
	}
}

// Extension returns the file extension used for f.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// Render produces the report document for agg.
func Render(agg *jobs.Aggregate, format Format) ([]byte, error) {
	return render(agg, format, time.Now())
}

func render(agg *jobs.Aggregate, format Format, generated time.Time) ([]byte, error) {
	if agg == nil {
		return nil, errors.NewScanError(errors.CodeValidation, "no scan results to report")
	}

	switch format {
	case FormatJSON:
		return json.MarshalIndent(agg, "", "  ")
	case FormatHTML:
		var buf bytes.Buffer
		if err := htmlReport.Execute(&buf, buildView(agg, generated)); err != nil {
			return nil, errors.WrapScanError(errors.CodeInternal, "failed to render HTML report", err)
		}
		return buf.Bytes(), nil
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdownReport.Execute(&buf, buildView(agg, generated)); err != nil {
			return nil, errors.WrapScanError(errors.CodeInternal, "failed to render Markdown report", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.NewScanError(errors.CodeReportFormat, fmt.Sprintf("unsupported report format %q", format))
	}
}

// Generator writes rendered reports to a directory.
type Generator struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the time used for report timestamps and file names.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a Generator writing into cfg.OutputDir.
func NewGenerator(cfg config.ReportsConfig, opts ...GeneratorOption) *Generator {
	g := &Generator{
		dir:    cfg.OutputDir,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.dir == "" {
		g.dir = "."
	}
	g.logger = logging.WithComponent(g.logger, "report")
	return g
}

// Generate renders agg in the named format and writes it to a new file,
// returning its path.
func (g *Generator) Generate(agg *jobs.Aggregate, format string) (string, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return "", err
	}

	now := g.now()
	data, err := render(agg, f, now)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.dir, reportDirPerm); err != nil {
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to create reports directory", err)
	}

	name := fmt.Sprintf("recon_%s_%s.%s", SafeTarget(agg.Target), now.Format(timestampLayout), f.Extension())
	path := filepath.Join(g.dir, name)
	if err := os.WriteFile(path, data, reportFilePerm); err != nil {
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to write report", err)
	}

	g.logger.Info("report generated", "scan_id", agg.ScanID, "format", f, "path", path)
	return path, nil
}

// SafeTarget turns a scan target into a file name fragment.
func SafeTarget(target string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(target, "http://"), "https://")
	s = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(s)
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}
