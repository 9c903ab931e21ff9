package calc

import (
	"math"
	"testing"
)

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 2", 4},
		{"10 / 4", 2.5},
		{"(3 × 4) - 2", 10},
		{"2^10", 1024},
		{"7 x 6", 42},
		{"9 ÷ 3", 3},
		{"1,5 + 1,5", 3},
		{"1,000 + 1", 1001},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr)
			if err != nil {
				t.Fatalf("Eval(%q) error: %v", tt.expr, err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}

	if _, err := Eval("2 +"); err == nil {
		t.Error("Expected error for malformed expression")
	}
}

func TestMatches(t *testing.T) {
	if !Matches(0.1+0.2, 0.3, 1) {
		t.Error("floating point noise should be tolerated")
	}
	if !Matches(10.0/3.0, 3.33, 2) {
		t.Error("rounding to the claimed decimals should match")
	}
	if Matches(10.0/3.0, 3.3, 0) {
		t.Error("rounding should only apply when the claim carries decimals")
	}
	if Matches(4, 5, 0) {
		t.Error("different integers must not match")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		4:         "4",
		2.5:       "2.5",
		0.1 + 0.2: "0.3",
		-3:        "-3",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectAndEvaluate_Context(t *testing.T) {
	e := NewExprEvaluator()
	evals, err := e.DetectAndEvaluate("Budget check. We spent 3 * 40 = 120 euros! Done.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("Expected 1 evaluation, got %d", len(evals))
	}
	if evals[0].Context != "We spent 3 * 40 = 120 euros" {
		t.Errorf("Unexpected context %q", evals[0].Context)
	}
	if evals[0].Expression != "3 * 40" || evals[0].Claimed != "120" {
		t.Errorf("Unexpected split %q / %q", evals[0].Expression, evals[0].Claimed)
	}
}
