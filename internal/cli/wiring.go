package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ppiankov/verity/internal/calc"
	"github.com/ppiankov/verity/internal/events"
	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/memory"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/orchestrate"
	"github.com/ppiankov/verity/internal/telemetry"
	"github.com/ppiankov/verity/internal/tools"
	"github.com/ppiankov/verity/internal/tools/llmcheck"
	"github.com/ppiankov/verity/internal/tools/sourcecheck"
	"github.com/ppiankov/verity/internal/verify"
)

// stack bundles the assembled pipeline and everything that must be
// released when the command ends
type stack struct {
	pipeline *verify.Pipeline
	graph    *verify.MemoryGraph
	registry *prometheus.Registry
	tools    []string
	closers  []func() error
}

func (r *stack) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: shutdown: %v\n", err)
		}
	}
}

// buildStack wires the pipeline from configuration. Optional services
// that cannot be reached degrade with a warning instead of failing.
func buildStack(ctx context.Context, cfg *model.Config, logger *slog.Logger) (*stack, error) {
	rt := &stack{graph: verify.NewMemoryGraph()}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(collectors.NewGoCollector())
		metrics = telemetry.NewMetrics(cfg.Metrics.Namespace, rt.registry)
	}

	store, err := memory.Open(ctx, cfg.Memory, logger)
	if err != nil {
		return nil, fmt.Errorf("open memory: %w", err)
	}
	rt.closers = append(rt.closers, store.Close)

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: events disabled: %v\n", err)
		publisher = events.Noop{}
	}
	rt.closers = append(rt.closers, publisher.Close)

	detector := calc.NewDetector(calc.NewExprEvaluator(), logger)
	registry, err := buildTools(cfg, detector, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.tools = registry.Names()

	orchestrator := orchestrate.New(registry, orchestrate.Options{
		Timeout: time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
		Limiter: orchestrate.NewLimiter(cfg.Tools.RatePerSecond, cfg.Tools.Burst),
		Metrics: metrics,
		Logger:  logger,
	})

	rt.pipeline = verify.New(verify.Options{
		Detector:             detector,
		Orchestrator:         orchestrator,
		Advisor:              tools.NewRuleAdvisor(),
		Memory:               store,
		Graph:                rt.graph,
		Events:               publisher,
		Metrics:              metrics,
		Logger:               logger,
		SimilarityThreshold:  cfg.Memory.SimilarityThreshold,
		VerificationCapacity: cfg.Cache.VerificationCapacity,
		CalculationCapacity:  cfg.Cache.CalculationCapacity,
	})
	return rt, nil
}

// buildTools registers the enabled verification tools
func buildTools(cfg *model.Config, detector *calc.Detector, logger *slog.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	enabled := func(name string) bool {
		return slices.Contains(cfg.Tools.Enabled, name)
	}

	if enabled(tools.CalculatorName) {
		if err := registry.Register(tools.NewCalculator(detector)); err != nil {
			return nil, err
		}
	}
	if enabled(sourcecheck.ToolName) {
		checker := sourcecheck.New(sourcecheck.OptionsFromConfig(cfg, logger))
		if err := registry.Register(sourcecheck.NewTool(checker)); err != nil {
			return nil, err
		}
	}
	if enabled(llmcheck.ToolName) && cfg.LLM.Provider != "" {
		checker, err := llm.NewChecker(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			return nil, fmt.Errorf("configure llm_check: %w", err)
		}
		if err := registry.Register(llmcheck.NewTool(checker)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
