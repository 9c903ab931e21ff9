package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/verity/internal/calc"
	"github.com/ppiankov/verity/internal/model"
)

// CalculatorName is the registered name of the calculation tool
const CalculatorName = "calculator"

var errNoCalculations = errors.New("no verifiable calculation")

// NewCalculator wraps a calculation detector as a tool. Text without a
// verifiable calculation yields an error so the outcome is dropped.
func NewCalculator(detector *calc.Detector) Tool {
	return Tool{
		Name:       CalculatorName,
		Kinds:      []Kind{KindCalculation, KindStatistic},
		Confidence: 0.95,
		Execute: func(ctx context.Context, text string) (*model.ToolResult, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results := calc.Verifiable(detector.DetectAndVerify(text))
			if len(results) == 0 {
				return nil, errNoCalculations
			}

			correct, incorrect, pending := calc.Tally(results)
			var validity model.Validity
			switch {
			case incorrect > 0:
				validity = model.ValidityFalse
			case pending == 0:
				validity = model.ValidityTrue
			case correct > 0:
				validity = model.ValidityPartial
			default:
				validity = model.ValidityUnknown
			}

			return &model.ToolResult{
				IsValid:              model.ValidityPtr(validity),
				Details:              fmt.Sprintf("%d calcul(s) correct(s), %d incorrect(s), %d en attente", correct, incorrect, pending),
				VerifiedCalculations: results,
			}, nil
		},
	}
}
