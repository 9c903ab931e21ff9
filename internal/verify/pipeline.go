// Package verify is the verification pipeline facade: a calculation-only
// fast path, reuse of previous verifications, and deep verification with
// concurrent tools.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/verity/internal/aggregate"
	"github.com/ppiankov/verity/internal/annotate"
	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/calc"
	"github.com/ppiankov/verity/internal/characterize"
	"github.com/ppiankov/verity/internal/events"
	"github.com/ppiankov/verity/internal/memory"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/orchestrate"
	"github.com/ppiankov/verity/internal/telemetry"
	"github.com/ppiankov/verity/internal/tools"
)

// ErrNilThought is returned by DeepVerify when called without a thought
var ErrNilThought = errors.New("nil thought")

const (
	// DefaultSimilarityThreshold is the memory similarity required to reuse a verification
	DefaultSimilarityThreshold = 0.85

	defaultVerificationCapacity = 100
	defaultCalculationCapacity  = 50

	// below this preliminary confidence a deep verification is suggested
	deepConfidenceThreshold = 0.5
)

// Options wires the pipeline's collaborators. Nil collaborators get
// defaults; a nil Orchestrator runs no tools and a nil Memory disables
// durable reuse.
type Options struct {
	Detector      *calc.Detector
	Characterizer *characterize.Characterizer
	Annotator     *annotate.Annotator
	Aggregator    *aggregate.Aggregator
	Orchestrator  *orchestrate.Orchestrator
	Advisor       tools.Advisor
	Memory        memory.Gateway
	Graph         ThoughtGraph
	Events        events.Publisher
	Metrics       *telemetry.Metrics
	Logger        *slog.Logger

	SimilarityThreshold  float64
	VerificationCapacity int
	CalculationCapacity  int
}

// Pipeline owns the two recency caches and composes the verification steps.
// It is safe for concurrent use.
type Pipeline struct {
	detector      *calc.Detector
	characterizer *characterize.Characterizer
	annotator     *annotate.Annotator
	aggregator    *aggregate.Aggregator
	orchestrator  *orchestrate.Orchestrator
	advisor       tools.Advisor
	memory        memory.Gateway
	graph         ThoughtGraph
	events        events.Publisher
	metrics       *telemetry.Metrics
	logger        *slog.Logger
	threshold     float64

	verifications *cache.LRU[string, model.VerificationResult]
	calculations  *cache.LRU[string, []model.CalculationResult]
	lookups       singleflight.Group
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Detector == nil {
		opts.Detector = calc.NewDetector(nil, opts.Logger)
	}
	if opts.Characterizer == nil {
		opts.Characterizer = characterize.New()
	}
	if opts.Annotator == nil {
		opts.Annotator = annotate.New()
	}
	if opts.Aggregator == nil {
		opts.Aggregator = aggregate.New()
	}
	if opts.Advisor == nil {
		opts.Advisor = tools.NewRuleAdvisor()
	}
	if opts.Events == nil {
		opts.Events = events.Noop{}
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.VerificationCapacity <= 0 {
		opts.VerificationCapacity = defaultVerificationCapacity
	}
	if opts.CalculationCapacity <= 0 {
		opts.CalculationCapacity = defaultCalculationCapacity
	}

	return &Pipeline{
		detector:      opts.Detector,
		characterizer: opts.Characterizer,
		annotator:     opts.Annotator,
		aggregator:    opts.Aggregator,
		orchestrator:  opts.Orchestrator,
		advisor:       opts.Advisor,
		memory:        opts.Memory,
		graph:         opts.Graph,
		events:        opts.Events,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		threshold:     opts.SimilarityThreshold,
		verifications: cache.NewLRU[string, model.VerificationResult](opts.VerificationCapacity),
		calculations:  cache.NewLRU[string, []model.CalculationResult](opts.CalculationCapacity),
	}
}

// PreliminaryVerify runs the calculation-only fast path. Detection is skipped
// when the text has no calculation phrasing, unless explicitly requested.
func (p *Pipeline) PreliminaryVerify(ctx context.Context, text string, explicitlyRequested bool) (*model.PreliminaryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	_, span := telemetry.Tracer().Start(ctx, "verify.PreliminaryVerify")
	defer span.End()

	c := p.characterizer.Characterize(text)
	var calcs []model.CalculationResult
	if c.Calculation || explicitlyRequested {
		calcs = p.detect(text)
	}

	verdict := p.aggregator.FromCalculations(calc.Verifiable(calcs))
	result := &model.PreliminaryResult{
		Status:          verdict.Status,
		Confidence:      verdict.Confidence,
		Calculations:    calcs,
		AnnotatedText:   p.annotator.Annotate(text, calcs),
		Characteristics: c,
	}
	result.NeedsDeepVerification = explicitlyRequested ||
		c.FactualClaim || c.Statistic || c.ExternalReference ||
		(len(calcs) > 0 && result.Confidence < deepConfidenceThreshold)

	span.SetAttributes(attribute.String("verify.status", string(result.Status)))
	p.metrics.Operation("preliminary", string(result.Status), time.Since(start))
	return result, nil
}

// detect returns the calculations in text, memoized by the exact text so
// every Original stays a substring of it
func (p *Pipeline) detect(text string) []model.CalculationResult {
	key := cache.Digest(text)
	if calcs, ok := p.calculations.Get(key); ok {
		p.metrics.CacheLookup("calculation", true)
		return append([]model.CalculationResult(nil), calcs...)
	}
	p.metrics.CacheLookup("calculation", false)

	calcs := p.detector.DetectAndVerify(text)
	p.calculations.Put(key, append([]model.CalculationResult(nil), calcs...))
	return calcs
}

// DeepVerify runs the full pipeline on thought: characterize, select and run
// tools, aggregate, persist, then annotate. The thought's Verification,
// IsVerified and AnnotatedContent fields are updated in place. A cached
// result for the same content and session is reused unless
// forceVerification is set.
func (p *Pipeline) DeepVerify(ctx context.Context, thought *model.Thought, containsCalculations, forceVerification bool, sessionID string) (*model.VerificationResult, error) {
	if thought == nil {
		return nil, ErrNilThought
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = thought.SessionID
	}

	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "verify.DeepVerify")
	defer span.End()

	text := thought.Content
	key := cache.SessionKey(text, sessionID)

	if !forceVerification {
		cached, ok := p.verifications.Get(key)
		p.metrics.CacheLookup("verification", ok)
		if ok {
			result := cached.Clone()
			result.VerifiedCalculations = p.rebase(text, result.VerifiedCalculations)
			p.apply(thought, text, result)
			span.SetAttributes(attribute.Bool("verify.cached", true))
			p.metrics.Operation("deep", string(result.Status), time.Since(start))
			return &result, nil
		}
	}

	c := p.characterizer.Characterize(text)
	var calcs []model.CalculationResult
	if containsCalculations || c.Calculation {
		calcs = p.detect(text)
	}

	var prior *float64
	if thought.Verification != nil {
		conf := thought.Verification.Confidence
		prior = &conf
	}

	var outcomes []model.ToolOutcome
	if p.orchestrator != nil {
		req := p.advisor.DetermineVerificationRequirements(text, prior)
		outcomes = p.orchestrator.Run(ctx, text, req, c)
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := p.aggregator.Aggregate(outcomes, calc.Verifiable(calcs), prior)
	memoryID := p.persist(ctx, key, text, sessionID, calcs, result)
	p.apply(thought, text, result.Clone())
	p.publish(ctx, thought, memoryID, sessionID, outcomes, result)

	span.SetAttributes(
		attribute.String("verify.status", string(result.Status)),
		attribute.Int("verify.outcomes", len(outcomes)),
	)
	p.metrics.Operation("deep", string(result.Status), time.Since(start))
	return &result, nil
}

// persist writes result to both caches and forwards it to durable memory.
// Memory failures are logged and yield an empty id.
func (p *Pipeline) persist(ctx context.Context, key, text, sessionID string, calcs []model.CalculationResult, result model.VerificationResult) string {
	p.verifications.Put(key, result.Clone())
	if len(calcs) > 0 {
		p.calculations.Put(cache.Digest(text), append([]model.CalculationResult(nil), calcs...))
	}
	if p.memory == nil {
		return ""
	}
	id, err := p.memory.AddVerification(ctx, text, result.Status, result.Confidence, result.Sources, sessionID)
	if err != nil {
		p.logger.Warn("failed to store verification", "error", err)
		return ""
	}
	return id
}

// rebase keeps cached calculations when they still point into text. A
// cached result may come from a differently spaced or cased rendering, in
// which case the calculations are detected again on text.
func (p *Pipeline) rebase(text string, calcs []model.CalculationResult) []model.CalculationResult {
	for _, c := range calcs {
		if !strings.Contains(text, c.Original) {
			return calc.Verifiable(p.detect(text))
		}
	}
	return calcs
}

func (p *Pipeline) apply(thought *model.Thought, text string, result model.VerificationResult) {
	thought.Verification = &result
	thought.IsVerified = result.Status.IsPositive()
	thought.AnnotatedContent = p.annotator.Annotate(text, result.VerifiedCalculations)
}

func (p *Pipeline) publish(ctx context.Context, thought *model.Thought, memoryID, sessionID string, outcomes []model.ToolOutcome, result model.VerificationResult) {
	names := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		names = append(names, o.ToolName)
	}
	err := p.events.PublishCompleted(ctx, events.Completed{
		ThoughtID:  thought.ID,
		MemoryID:   memoryID,
		SessionID:  sessionID,
		Status:     result.Status,
		Confidence: result.Confidence,
		Sources:    result.Sources,
		Tools:      names,
		Timestamp:  result.Timestamp,
	})
	p.metrics.EventPublished(err)
	if err != nil {
		p.logger.Warn("failed to publish verification event", "error", err)
	}
}
