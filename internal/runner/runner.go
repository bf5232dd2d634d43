// Package runner executes external reconnaissance tools without a shell and
// normalizes every termination path into an Outcome value.
//
// A runner never returns an error and never panics: timeouts, missing
// binaries, non-zero exits and OS-level failures are all reported as data.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/metrics"
)

// FailureExitCode is reported for process-level failures that have no real
// exit status (timeout, missing binary, spawn error).
const FailureExitCode = -1

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed, in case a grandchild still holds them open.
const waitDelay = 2 * time.Second

// CommandSpec is a program name followed by its arguments. It is never
// interpreted by a shell.
type CommandSpec []string

// NewCommandSpec builds a CommandSpec. The arguments are copied.
func NewCommandSpec(program string, args ...string) CommandSpec {
	spec := make(CommandSpec, 0, len(args)+1)
	spec = append(spec, program)
	return append(spec, args...)
}

// String returns the canonical form: tokens joined with single spaces.
func (c CommandSpec) String() string {
	return strings.Join(c, " ")
}

// Program returns the executable token, or "" for an empty spec.
func (c CommandSpec) Program() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Outcome is the normalized result of one command invocation.
// Exactly one of {normal completion, TimedOut, NotFound, Error != ""} holds.
type Outcome struct {
	Success       bool    `json:"success"`
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	ExitCode      int     `json:"exit_code"`
	ExecutionTime float64 `json:"execution_time"`
	TimedOut      bool    `json:"timed_out,omitempty"`
	NotFound      bool    `json:"not_found,omitempty"`
	Error         string  `json:"error,omitempty"`
	Command       string  `json:"command"`
}

//go:generate mockgen -destination=../mocks/mock_runner.go -package=mocks github.com/anstrom/reconai/internal/runner Runner

// Runner executes commands.
type Runner interface {
	// Execute runs spec and waits at most timeout for it to exit.
	Execute(ctx context.Context, spec CommandSpec, timeout time.Duration) Outcome

	// ExecuteWithInput is Execute with lines written to the process's stdin,
	// one per line.
	ExecuteWithInput(ctx context.Context, spec CommandSpec, lines []string, timeout time.Duration) Outcome
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger  *slog.Logger
	metrics metrics.Recorder
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithLogger sets the logger used for per-invocation debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// WithMetrics sets the recorder that receives one event per invocation.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *ExecRunner) {
		r.metrics = m
	}
}

// New creates an ExecRunner.
func New(opts ...Option) *ExecRunner {
	r := &ExecRunner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.WithComponent(r.logger, "runner")
	return r
}

// Execute implements Runner.
func (r *ExecRunner) Execute(ctx context.Context, spec CommandSpec, timeout time.Duration) Outcome {
	return r.run(ctx, spec, nil, timeout)
}

// ExecuteWithInput implements Runner.
func (r *ExecRunner) ExecuteWithInput(
	ctx context.Context, spec CommandSpec, lines []string, timeout time.Duration,
) Outcome {
	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	return r.run(ctx, spec, &input, timeout)
}

func (r *ExecRunner) run(ctx context.Context, spec CommandSpec, input *string, timeout time.Duration) Outcome {
	start := time.Now()
	outcome := r.exec(ctx, spec, input, timeout)
	outcome.Command = spec.String()
	outcome.ExecutionTime = time.Since(start).Seconds()

	r.logger.Debug("command finished",
		"command", outcome.Command,
		"success", outcome.Success,
		"exit_code", outcome.ExitCode,
		"timed_out", outcome.TimedOut,
		"not_found", outcome.NotFound,
		"duration_s", outcome.ExecutionTime)
	if r.metrics != nil {
		r.metrics.ToolExecuted(toolLabel(spec), Classify(outcome), time.Since(start))
	}
	return outcome
}

func (r *ExecRunner) exec(ctx context.Context, spec CommandSpec, input *string, timeout time.Duration) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("command panicked: %v", rec)
			out = Outcome{ExitCode: FailureExitCode, Stderr: msg, Error: msg}
		}
	}()

	if len(spec) == 0 || spec[0] == "" {
		msg := "empty command"
		return Outcome{ExitCode: FailureExitCode, Stderr: msg, Error: msg}
	}

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	// #nosec G204 - arguments are passed as discrete tokens, never through a shell
	cmd := exec.CommandContext(runCtx, spec[0], spec[1:]...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != nil {
		cmd.Stdin = strings.NewReader(*input)
	}

	err := cmd.Run()
	out = Outcome{
		Stdout: decode(stdout.Bytes()),
		Stderr: decode(stderr.Bytes()),
	}

	switch {
	case err == nil:
		out.Success = true
		out.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		msg := fmt.Sprintf("command timed out after %s", timeout)
		out.TimedOut = true
		out.ExitCode = FailureExitCode
		out.Stderr = appendLine(out.Stderr, msg)
		out.Error = msg
	case isNotFound(err):
		msg := fmt.Sprintf("command not found: %s", spec[0])
		out.NotFound = true
		out.ExitCode = FailureExitCode
		out.Stderr = msg
		out.Error = msg
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			out.ExitCode = exitErr.ExitCode()
			break
		}
		out.ExitCode = FailureExitCode
		out.Stderr = appendLine(out.Stderr, err.Error())
		out.Error = err.Error()
	}
	return out
}

// Classify maps an outcome onto a metrics outcome label.
func Classify(o Outcome) string {
	switch {
	case o.Success:
		return metrics.OutcomeSuccess
	case o.TimedOut:
		return metrics.OutcomeTimeout
	case o.NotFound:
		return metrics.OutcomeNotFound
	case o.Error != "":
		return metrics.OutcomeError
	default:
		return metrics.OutcomeFailed
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// decode converts captured bytes to a string, replacing invalid UTF-8.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s + line
}

// toolLabel keeps metric cardinality bounded when a full path is configured.
func toolLabel(spec CommandSpec) string {
	p := spec.Program()
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
