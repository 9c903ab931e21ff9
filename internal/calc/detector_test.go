package calc

import (
	"errors"
	"testing"

	"github.com/ppiankov/verity/internal/model"
)

type failingEvaluator struct {
	panics bool
}

func (f *failingEvaluator) DetectAndEvaluate(text string) ([]Evaluation, error) {
	if f.panics {
		panic("evaluator exploded")
	}
	return nil, errors.New("evaluator unavailable")
}

func (f *failingEvaluator) ConvertToVerificationResults(evals []Evaluation) []model.CalculationResult {
	return nil
}

func TestDetector_SimpleCorrect(t *testing.T) {
	d := NewDetector(nil, nil)

	results := d.DetectAndVerify("2 + 2 = 4")
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Original != "2 + 2 = 4" {
		t.Errorf("Expected original '2 + 2 = 4', got %q", results[0].Original)
	}
	if !results[0].IsCorrect {
		t.Errorf("Expected calculation to be correct, got %+v", results[0])
	}
}

func TestDetector_Incorrect(t *testing.T) {
	d := NewDetector(nil, nil)

	results := d.DetectAndVerify("Le total est 12 * 3 = 38, ce qui dépasse le budget.")
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.IsCorrect {
		t.Error("Expected calculation to be incorrect")
	}
	if r.Result != "36" {
		t.Errorf("Expected evaluated result 36, got %q", r.Result)
	}
	if r.Verified != "12 * 3 = 36" {
		t.Errorf("Unexpected verdict %q", r.Verified)
	}
}

func TestDetector_OperatorsAndOrder(t *testing.T) {
	d := NewDetector(nil, nil)

	text := "First (3 × 4) - 2 = 10, then 10 ÷ 4 = 2,5 and 2^3 = 8. Also 5 x 6 = 30."
	results := d.DetectAndVerify(text)
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d: %+v", len(results), results)
	}

	want := []string{"(3 × 4) - 2 = 10", "10 ÷ 4 = 2,5", "2^3 = 8", "5 x 6 = 30"}
	for i, r := range results {
		if r.Original != want[i] {
			t.Errorf("result %d: expected %q, got %q", i, want[i], r.Original)
		}
		if !r.IsCorrect {
			t.Errorf("result %d (%s): expected correct, got %+v", i, r.Original, r)
		}
	}
}

func TestDetector_Pending(t *testing.T) {
	d := NewDetector(nil, nil)

	results := d.DetectAndVerify("How much is 7 * 6 = ?")
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if !results[0].Pending {
		t.Error("Expected pending result")
	}
	if results[0].Result != "42" {
		t.Errorf("Expected result 42, got %q", results[0].Result)
	}
}

func TestDetector_FunctionNotationKept(t *testing.T) {
	d := NewDetector(nil, nil)

	results := d.DetectAndVerify("Let f(x) = 2x + 3 and note 2 + 3 = 5.")
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %+v", len(results), results)
	}
	if !results[0].FunctionNotation {
		t.Errorf("Expected first result to be function notation, got %+v", results[0])
	}
	if results[0].Original != "f(x) = 2x + 3" {
		t.Errorf("Unexpected function span %q", results[0].Original)
	}
	if len(Verifiable(results)) != 1 {
		t.Error("Verifiable should drop function notation")
	}
}

func TestDetector_DropsUnevaluable(t *testing.T) {
	d := NewDetector(nil, nil)

	results := d.DetectAndVerify("Division: 1 / 0 = 5")
	if len(results) != 0 {
		t.Errorf("Expected division by zero to be dropped, got %+v", results)
	}
}

func TestDetector_EvaluatorFailure(t *testing.T) {
	for _, panics := range []bool{false, true} {
		d := NewDetector(&failingEvaluator{panics: panics}, nil)
		results := d.DetectAndVerify("2 + 2 = 4")
		if results == nil || len(results) != 0 {
			t.Errorf("panics=%v: expected empty non-nil list, got %v", panics, results)
		}
	}
}

func TestDetector_NoCalculations(t *testing.T) {
	d := NewDetector(nil, nil)
	if got := d.DetectAndVerify("Paris is the capital of France."); len(got) != 0 {
		t.Errorf("Expected no results, got %+v", got)
	}
}

func TestTally(t *testing.T) {
	results := []model.CalculationResult{
		{IsCorrect: true},
		{IsCorrect: true},
		{IsCorrect: false},
		{Pending: true},
		{FunctionNotation: true},
	}
	correct, incorrect, pending := Tally(results)
	if correct != 2 || incorrect != 1 || pending != 1 {
		t.Errorf("Unexpected tally %d/%d/%d", correct, incorrect, pending)
	}
}
