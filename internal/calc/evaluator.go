package calc

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/ppiankov/verity/internal/model"
)

// Evaluation is one arithmetic span found in text and its computed value
type Evaluation struct {
	Original         string  // exact substring of the source text
	Expression       string  // left-hand side as written
	Claimed          string  // right-hand side as written; "?" when pending
	Value            float64 // NaN when evaluation failed
	Context          string  // sentence the span was found in
	Offset           int     // byte offset of Original in the source text
	FunctionNotation bool
}

// Pending reports whether the span asks for a value instead of claiming one
func (e Evaluation) Pending() bool {
	return e.Claimed == "?"
}

// Evaluator finds and evaluates arithmetic spans in free text
type Evaluator interface {
	DetectAndEvaluate(text string) ([]Evaluation, error)
	ConvertToVerificationResults(evals []Evaluation) []model.CalculationResult
}

const (
	tolerance = 1e-9

	number = `\d+(?:[.,]\d+)?`
	term   = `\(*(?:` + number + `[a-zA-Z]?|[a-zA-Z])(?:\^\d+)?\)*`
)

var (
	// 2 + 2 = 4, (3 × 4) - 2 = 10, 10 / 4 = ?
	claimPattern = regexp.MustCompile(
		`\(*` + number + `\)*(?:\s*[-+*/^×÷x]\s*\(*` + number + `\)*)+\s*=\s*(?:\?|-?` + number + `)`)
	// f(x) = 2x + 3
	functionPattern = regexp.MustCompile(
		`\b[a-zA-Z]\s*\(\s*[a-zA-Z]\s*\)\s*=\s*-?` + term + `(?:\s*[-+*/×÷]\s*` + term + `)*`)
	numberPattern = regexp.MustCompile(number)
	thousands     = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
)

// ExprEvaluator recognises "expression = value" claims, "expression = ?"
// questions and f(x) function definitions, evaluating numbers with expr.
type ExprEvaluator struct{}

// NewExprEvaluator creates the default evaluator
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

// DetectAndEvaluate returns spans in order of appearance
func (e *ExprEvaluator) DetectAndEvaluate(text string) ([]Evaluation, error) {
	var evals []Evaluation

	for _, loc := range functionPattern.FindAllStringIndex(text, -1) {
		original := text[loc[0]:loc[1]]
		lhs, rhs, _ := strings.Cut(original, "=")
		evals = append(evals, Evaluation{
			Original:         original,
			Expression:       strings.TrimSpace(lhs),
			Claimed:          strings.TrimSpace(rhs),
			Value:            math.NaN(),
			Context:          sentenceAround(text, loc[0], loc[1]),
			Offset:           loc[0],
			FunctionNotation: true,
		})
	}

	for _, loc := range claimPattern.FindAllStringIndex(text, -1) {
		if overlapsAny(evals, loc[0], loc[1]) {
			continue
		}

		original := text[loc[0]:loc[1]]
		idx := strings.LastIndex(original, "=")
		lhs := strings.TrimSpace(original[:idx])
		rhs := strings.TrimSpace(original[idx+1:])

		value, err := Eval(lhs)
		if err != nil {
			value = math.NaN()
		}

		evals = append(evals, Evaluation{
			Original:   original,
			Expression: lhs,
			Claimed:    rhs,
			Value:      value,
			Context:    sentenceAround(text, loc[0], loc[1]),
			Offset:     loc[0],
		})
	}

	slices.SortStableFunc(evals, func(a, b Evaluation) int { return a.Offset - b.Offset })
	return evals, nil
}

// ConvertToVerificationResults classifies each evaluation as correct,
// incorrect, pending or function notation
func (e *ExprEvaluator) ConvertToVerificationResults(evals []Evaluation) []model.CalculationResult {
	results := make([]model.CalculationResult, 0, len(evals))

	for _, ev := range evals {
		r := model.CalculationResult{Original: ev.Original}

		switch {
		case ev.FunctionNotation:
			r.FunctionNotation = true
			r.Verified = "Notation de fonction"
			r.Result = ev.Claimed
		case math.IsNaN(ev.Value) || math.IsInf(ev.Value, 0):
			r.Verified = "Évaluation impossible"
			r.Result = "NaN"
		case ev.Pending():
			r.Pending = true
			r.Verified = "En attente de vérification"
			r.Result = FormatNumber(ev.Value)
		default:
			claimed, err := ParseNumber(ev.Claimed)
			if err != nil {
				r.Verified = "Évaluation impossible"
				r.Result = "NaN"
				break
			}
			r.Result = FormatNumber(ev.Value)
			if Matches(ev.Value, claimed, decimals(ev.Claimed)) {
				r.IsCorrect = true
				r.Verified = "Correct"
			} else {
				r.Verified = fmt.Sprintf("%s = %s", ev.Expression, r.Result)
			}
		}

		results = append(results, r)
	}

	return results
}

// Eval computes an arithmetic expression of numbers, parentheses and the
// operators + - * / ^ × ÷ x
func Eval(expression string) (float64, error) {
	code := strings.NewReplacer("×", "*", "x", "*", "÷", "/", "^", "**").Replace(expression)
	code = normalizeNumbers(code)

	out, err := expr.Eval(code, nil)
	if err != nil {
		return math.NaN(), fmt.Errorf("evaluate %q: %w", expression, err)
	}

	switch v := out.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return math.NaN(), fmt.Errorf("evaluate %q: non-numeric result %T", expression, out)
	}
}

// Matches compares a computed value with a claimed one, accepting either a
// tiny absolute or relative error or rounding to the claimed decimals
func Matches(value, claimed float64, claimedDecimals int) bool {
	diff := math.Abs(value - claimed)
	if diff <= tolerance || diff <= tolerance*math.Max(math.Abs(value), math.Abs(claimed)) {
		return true
	}
	if claimedDecimals > 0 {
		scale := math.Pow(10, float64(claimedDecimals))
		return math.Round(value*scale)/scale == claimed
	}
	return false
}

// ParseNumber parses a number that may use a decimal comma or thousands commas
func ParseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(normalizeNumbers(strings.TrimSpace(raw)), 64)
}

// FormatNumber renders a value without floating point noise
func FormatNumber(v float64) string {
	rounded := math.Round(v*1e10) / 1e10
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func normalizeNumbers(s string) string {
	return numberPattern.ReplaceAllStringFunc(s, func(n string) string {
		if thousands.MatchString(n) {
			return strings.ReplaceAll(n, ",", "")
		}
		return strings.Replace(n, ",", ".", 1)
	})
}

func decimals(raw string) int {
	raw = normalizeNumbers(strings.TrimSpace(raw))
	if _, frac, ok := strings.Cut(raw, "."); ok {
		return len(frac)
	}
	return 0
}

func sentenceAround(text string, start, end int) string {
	from := strings.LastIndexAny(text[:start], ".!?\n") + 1
	to := strings.IndexAny(text[end:], ".!?\n")
	if to < 0 {
		to = len(text)
	} else {
		to += end
	}
	return strings.TrimSpace(text[from:to])
}

func overlapsAny(evals []Evaluation, start, end int) bool {
	for _, e := range evals {
		if start < e.Offset+len(e.Original) && e.Offset < end {
			return true
		}
	}
	return false
}
