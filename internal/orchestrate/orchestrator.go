// Package orchestrate selects verification tools and runs them concurrently.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/telemetry"
	"github.com/ppiankov/verity/internal/tools"
)

var (
	// ErrToolTimeout marks a tool that did not answer within the per-tool timeout
	ErrToolTimeout = errors.New("verification tool timed out")
	// ErrUnusableResult marks a result with no validity, calculations, sources or details
	ErrUnusableResult = errors.New("verification tool returned an unusable result")
)

// DefaultTimeout bounds each tool call when Options.Timeout is unset
const DefaultTimeout = 10 * time.Second

// StageDeep labels outcomes produced by deep verification
const StageDeep = "deep"

// Options configures an Orchestrator
type Options struct {
	Timeout time.Duration
	Limiter *Limiter
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Orchestrator runs the suggested tools of a catalog with failure isolation
type Orchestrator struct {
	catalog tools.Catalog
	timeout time.Duration
	limiter *Limiter
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New creates an orchestrator over catalog
func New(catalog tools.Catalog, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		catalog: catalog,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// ToolCount sizes the tool selection: the recommendation when several
// verifications are required, else one; clamped to [1, available]; one more
// when more than two characterization axes are set.
func ToolCount(req tools.Requirements, available int, c model.Characteristics) int {
	count := 1
	if req.RequiresMultiple {
		count = req.RecommendedCount
	}
	count = clamp(count, available)
	if c.Count() > 2 {
		count = clamp(count+1, available)
	}
	return count
}

func clamp(n, available int) int {
	if n > available {
		n = available
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run invokes the first ToolCount suggested tools concurrently and returns
// the usable outcomes in selection order. Failed, timed out and unusable
// calls are logged and dropped; they never abort their siblings.
func (o *Orchestrator) Run(ctx context.Context, text string, req tools.Requirements, c model.Characteristics) []model.ToolOutcome {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrate.Run")
	defer span.End()

	suggestions, err := o.catalog.SuggestVerificationTools(ctx, text)
	if err != nil {
		o.logger.Warn("tool suggestion failed", "error", err)
		span.RecordError(err)
		return []model.ToolOutcome{}
	}
	if len(suggestions) == 0 {
		return []model.ToolOutcome{}
	}

	count := ToolCount(req, o.catalog.Available(), c)
	if count > len(suggestions) {
		count = len(suggestions)
	}
	selected := suggestions[:count]
	span.SetAttributes(attribute.Int("tools.selected", count))

	slots := make([]*model.ToolOutcome, len(selected))
	var g errgroup.Group
	g.SetLimit(count)
	for i, s := range selected {
		g.Go(func() error {
			outcome, err := o.invoke(ctx, s, text)
			if err != nil {
				o.logger.Debug("tool outcome dropped", "tool", s.Name, "error", err)
				return nil
			}
			slots[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]model.ToolOutcome, 0, len(slots))
	for _, out := range slots {
		if out != nil {
			outcomes = append(outcomes, *out)
		}
	}
	span.SetAttributes(attribute.Int("tools.usable", len(outcomes)))
	return outcomes
}

type reply struct {
	result *model.ToolResult
	err    error
}

// invoke runs one tool under the per-tool timeout. A late answer is
// discarded; the tool sees its context cancelled but is not stopped.
func (o *Orchestrator) invoke(ctx context.Context, s tools.Suggestion, text string) (*model.ToolOutcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrate.invoke",
		traceAttrs(s)...)
	defer span.End()

	start := time.Now()
	outcome, err := o.race(ctx, s, text)

	status := telemetry.OutcomeOK
	switch {
	case errors.Is(err, ErrToolTimeout):
		status = telemetry.OutcomeTimeout
	case errors.Is(err, ErrUnusableResult):
		status = telemetry.OutcomeUnusable
	case err != nil:
		status = telemetry.OutcomeError
	}
	o.metrics.ToolCall(s.Name, status, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	return outcome, err
}

func (o *Orchestrator) race(ctx context.Context, s tools.Suggestion, text string) (*model.ToolOutcome, error) {
	tctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// the rate limit wait counts against the tool's time bound
	if err := o.limiter.Wait(tctx, s.Name); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s waiting for rate limit: %v", ErrToolTimeout, s.Name, err)
	}

	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("tool %s panicked: %v", s.Name, r)}
			}
		}()
		result, err := o.catalog.ExecuteVerificationTool(tctx, s.Name, text)
		done <- reply{result: result, err: err}
	}()

	select {
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s after %s", ErrToolTimeout, s.Name, o.timeout)
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("tool %s: %w", s.Name, r.err)
		}
		if !r.result.Usable() {
			return nil, fmt.Errorf("%w: %s", ErrUnusableResult, s.Name)
		}
		return &model.ToolOutcome{
			ToolName:   s.Name,
			Result:     *r.result,
			Confidence: s.Confidence,
			Stage:      StageDeep,
		}, nil
	}
}

func traceAttrs(s tools.Suggestion) []trace.SpanStartOption {
	return []trace.SpanStartOption{trace.WithAttributes(
		attribute.String("tool.name", s.Name),
		attribute.Float64("tool.confidence", s.Confidence),
	)}
}
