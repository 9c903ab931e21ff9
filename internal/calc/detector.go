package calc

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/verity/internal/model"
)

// Detector finds arithmetic claims in text and reports whether they hold.
// Detection is best effort: evaluator failures yield no results.
type Detector struct {
	evaluator Evaluator
	logger    *slog.Logger
}

// NewDetector creates a detector backed by evaluator (ExprEvaluator when nil)
func NewDetector(evaluator Evaluator, logger *slog.Logger) *Detector {
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{evaluator: evaluator, logger: logger}
}

// DetectAndVerify returns one result per arithmetic span, in text order.
// Spans that could not be evaluated are dropped unless they are function
// notation, which callers exclude on their own.
func (d *Detector) DetectAndVerify(text string) (results []model.CalculationResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("calculation evaluator panicked", "panic", fmt.Sprint(r))
			results = []model.CalculationResult{}
		}
	}()

	evals, err := d.evaluator.DetectAndEvaluate(text)
	if err != nil {
		d.logger.Warn("calculation detection failed", "error", err)
		return []model.CalculationResult{}
	}
	if len(evals) == 0 {
		return []model.CalculationResult{}
	}

	converted := d.evaluator.ConvertToVerificationResults(evals)
	results = make([]model.CalculationResult, 0, len(converted))
	for _, r := range converted {
		if !r.FunctionNotation && (r.Result == "" || r.Result == "NaN") {
			continue
		}
		results = append(results, r)
	}
	return results
}

// Verifiable filters out function notation
func Verifiable(results []model.CalculationResult) []model.CalculationResult {
	out := make([]model.CalculationResult, 0, len(results))
	for _, r := range results {
		if !r.FunctionNotation {
			out = append(out, r)
		}
	}
	return out
}

// Tally counts correct, incorrect and pending results, ignoring function notation
func Tally(results []model.CalculationResult) (correct, incorrect, pending int) {
	for _, r := range results {
		switch {
		case r.FunctionNotation:
		case r.Pending:
			pending++
		case r.IsCorrect:
			correct++
		default:
			incorrect++
		}
	}
	return correct, incorrect, pending
}
