package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/metrics"
	"github.com/anstrom/reconai/internal/runner"
	"github.com/anstrom/reconai/internal/tools"
)

// Pipeline steps, in execution order.
const (
	StepPortScan      = "port-scan"
	StepDNS           = "dns"
	StepDirectoryEnum = "directory-enum"
	StepSubdomainEnum = "subdomain-enum"
)

const (
	idLength          = 8
	maxIDAttempts     = 16
	defaultHTTPXLimit = 50
	tracerName        = "github.com/anstrom/reconai/internal/jobs"
)

var stepOrder = []string{StepPortScan, StepDNS, StepDirectoryEnum, StepSubdomainEnum}

var stepAliases = map[string]string{
	StepPortScan:            StepPortScan,
	string(tools.Nmap):      StepPortScan,
	StepDNS:                 StepDNS,
	StepDirectoryEnum:       StepDirectoryEnum,
	string(tools.Gobuster):  StepDirectoryEnum,
	StepSubdomainEnum:       StepSubdomainEnum,
	string(tools.Subfinder): StepSubdomainEnum,
}

// Toolset is the subset of the tool adapters a pipeline runs.
// *tools.Toolkit implements it.
type Toolset interface {
	Nmap(ctx context.Context, p tools.NmapParams) *tools.Result
	DNS(ctx context.Context, p tools.DNSParams) *tools.Result
	Gobuster(ctx context.Context, p tools.GobusterParams) *tools.Result
	Subfinder(ctx context.Context, p tools.SubfinderParams) *tools.Result
	HTTPX(ctx context.Context, p tools.HTTPXParams) *tools.Result
}

var _ Toolset = (*tools.Toolkit)(nil)

// Orchestrator starts comprehensive scans and drives their pipelines.
type Orchestrator struct {
	tools    Toolset
	registry *Registry
	logger   *slog.Logger
	metrics  metrics.Recorder
	tracer   trace.Tracer

	defaultTools []string
	httpxLimit   int
	extensions   string

	newID func() string
	now   func() time.Time

	wg sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the recorder notified when scans start and complete.
func WithMetrics(m metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer overrides the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithIDGenerator overrides scan id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithClock overrides the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator running pipelines against ts and
// recording jobs in reg.
func NewOrchestrator(ts Toolset, reg *Registry, cfg config.ScanConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tools:        ts,
		registry:     reg,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
		defaultTools: cfg.DefaultTools,
		httpxLimit:   cfg.HTTPXLimit,
		extensions:   cfg.DirectoryExtensions,
		newID:        shortID,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.defaultTools) == 0 {
		o.defaultTools = []string{string(tools.Nmap), string(tools.Gobuster), StepDNS}
	}
	if o.httpxLimit <= 0 {
		o.httpxLimit = defaultHTTPXLimit
	}
	o.logger = logging.WithComponent(o.logger, "orchestrator")
	return o
}

// Registry returns the registry jobs are recorded in.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Start registers a running job for target and launches its pipeline in the
// background. The pipeline is detached from ctx cancellation; only the
// per-command timeouts bound it.
func (o *Orchestrator) Start(ctx context.Context, target string, requested []string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.ErrInvalidTarget(target)
	}

	steps := o.resolveSteps(requested)

	var job Job
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			return "", errors.NewScanError(errors.CodeInternal, "could not allocate a unique scan id")
		}
		job = Job{
			ID:        o.newID(),
			Target:    target,
			Tools:     steps,
			StartedAt: o.now(),
		}
		err := o.registry.Register(job)
		if err == nil {
			break
		}
		if !errors.IsConflict(err) {
			return "", err
		}
	}

	if o.metrics != nil {
		o.metrics.ScanStarted()
	}
	o.logger.Info("scan started", "scan_id", job.ID, "target", target, "steps", steps)

	o.wg.Add(1)
	go o.run(context.WithoutCancel(ctx), job)

	return job.ID, nil
}

// Wait blocks until every pipeline started so far has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// resolveSteps maps requested tool names onto pipeline steps in execution
// order. Unknown names are dropped.
func (o *Orchestrator) resolveSteps(requested []string) []string {
	if len(requested) == 0 {
		requested = o.defaultTools
	}

	selected := make(map[string]bool, len(stepOrder))
	for _, name := range requested {
		key := strings.ToLower(strings.TrimSpace(name))
		step, ok := stepAliases[key]
		if !ok {
			o.logger.Warn("ignoring unknown scan tool", "tool", name)
			continue
		}
		selected[step] = true
	}

	steps := make([]string, 0, len(selected))
	for _, step := range stepOrder {
		if selected[step] {
			steps = append(steps, step)
		}
	}
	return steps
}

func (o *Orchestrator) run(ctx context.Context, job Job) {
	defer o.wg.Done()

	logger := logging.WithScanID(o.logger, job.ID, job.Target)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("scan pipeline panicked, job left running",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
		}
	}()

	ctx, span := o.tracer.Start(ctx, "scan.pipeline", trace.WithAttributes(
		attribute.String("scan.id", job.ID),
		attribute.String("scan.target", job.Target),
	))
	defer span.End()

	selected := make(map[string]bool, len(job.Tools))
	for _, step := range job.Tools {
		selected[step] = true
	}
	isURL := tools.HasScheme(job.Target)
	results := make(map[tools.Name]*tools.Result)

	if selected[StepPortScan] {
		results[tools.Nmap] = o.step(ctx, logger, tools.Nmap, func(ctx context.Context) *tools.Result {
			return o.tools.Nmap(ctx, tools.NmapParams{Target: job.Target, ScanType: tools.ModeService})
		})
	}

	if selected[StepDNS] {
		results[tools.DNS] = o.step(ctx, logger, tools.DNS, func(ctx context.Context) *tools.Result {
			return o.tools.DNS(ctx, tools.DNSParams{Domain: job.Target})
		})
	}

	if selected[StepDirectoryEnum] && isURL {
		results[tools.Gobuster] = o.step(ctx, logger, tools.Gobuster, func(ctx context.Context) *tools.Result {
			return o.tools.Gobuster(ctx, tools.GobusterParams{
				Target:     job.Target,
				Mode:       tools.GobusterDir,
				Extensions: o.extensions,
			})
		})
	}

	if selected[StepSubdomainEnum] && !isURL {
		sub := o.step(ctx, logger, tools.Subfinder, func(ctx context.Context) *tools.Result {
			return o.tools.Subfinder(ctx, tools.SubfinderParams{Domain: job.Target})
		})
		results[tools.Subfinder] = sub

		if hosts := o.httpxTargets(sub); len(hosts) > 0 {
			results[tools.HTTPX] = o.step(ctx, logger, tools.HTTPX, func(ctx context.Context) *tools.Result {
				return o.tools.HTTPX(ctx, tools.HTTPXParams{Targets: hosts})
			})
		}
	}

	ended := o.now()
	agg := &Aggregate{
		ScanID:        job.ID,
		Target:        job.Target,
		Results:       results,
		TotalDuration: ended.Sub(job.StartedAt).Seconds(),
		StartedAt:     job.StartedAt,
		EndedAt:       ended,
	}

	if err := o.registry.Complete(job.ID, agg); err != nil {
		logger.Error("failed to publish scan results", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	if o.metrics != nil {
		o.metrics.ScanCompleted(ended.Sub(job.StartedAt))
	}
	logger.Info("scan completed", "duration_s", agg.TotalDuration, "results", len(results))
}

// step runs one pipeline stage inside its own span. A nil result from the
// toolset is recorded as a failed result so later stages and readers never
// see a missing entry for a stage that ran.
func (o *Orchestrator) step(
	ctx context.Context, logger *slog.Logger, tool tools.Name, fn func(context.Context) *tools.Result,
) *tools.Result {
	ctx, span := o.tracer.Start(ctx, "scan.step."+string(tool),
		trace.WithAttributes(attribute.String("scan.tool", string(tool))))
	defer span.End()

	res := fn(ctx)
	if res == nil {
		res = &tools.Result{Tool: tool}
		res.ExitCode = runner.FailureExitCode
		res.Error = "tool returned no result"
	}

	span.SetAttributes(
		attribute.Bool("tool.success", res.Success),
		attribute.Bool("tool.cached", res.Cached),
		attribute.Int("tool.exit_code", res.ExitCode),
	)
	if !res.Success {
		span.SetStatus(codes.Error, firstNonEmpty(res.Error, res.Stderr, "tool failed"))
		logger.Warn("scan step failed", "tool", tool, "exit_code", res.ExitCode, "timed_out", res.TimedOut)
	}
	return res
}

// httpxTargets returns the subdomains to check with httpx: at most httpxLimit
// of them, and only when enumeration succeeded and found any.
func (o *Orchestrator) httpxTargets(sub *tools.Result) []string {
	if sub == nil || !sub.Success {
		return nil
	}
	scan, ok := sub.Parsed.(*tools.SubdomainScan)
	if !ok || len(scan.Subdomains) == 0 {
		return nil
	}
	n := min(len(scan.Subdomains), o.httpxLimit)
	return append([]string(nil), scan.Subdomains[:n]...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}
