package llmcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
)

type mockChecker struct {
	verdict *llm.Verdict
	err     error
	claim   string
}

func (m *mockChecker) Check(ctx context.Context, claim string) (*llm.Verdict, error) {
	m.claim = claim
	return m.verdict, m.err
}

func TestTool_Execute(t *testing.T) {
	checker := &mockChecker{verdict: &llm.Verdict{
		Validity:    model.ValidityPartial,
		Confidence:  0.6,
		Sources:     []string{"https://insee.fr"},
		Explanation: "Chiffre proche mais daté.",
		Provider:    "openai",
		Model:       "gpt-4o-mini",
	}}
	tool := NewTool(checker)

	if tool.Name != ToolName {
		t.Errorf("Unexpected tool name %q", tool.Name)
	}

	result, err := tool.Execute(context.Background(), "Le chômage est de 7 %.")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if checker.claim != "Le chômage est de 7 %." {
		t.Errorf("Claim not forwarded: %q", checker.claim)
	}
	if result.Validity() != model.ValidityPartial {
		t.Errorf("Expected partial, got %s", result.Validity())
	}
	if len(result.Sources) != 1 {
		t.Errorf("Expected sources to be carried, got %v", result.Sources)
	}
	if result.Details != "[openai/gpt-4o-mini, confiance 0.60] Chiffre proche mais daté." {
		t.Errorf("Unexpected details %q", result.Details)
	}
}

func TestTool_ExecuteError(t *testing.T) {
	tool := NewTool(&mockChecker{err: llm.ErrDisabled})
	_, err := tool.Execute(context.Background(), "claim")
	if !errors.Is(err, llm.ErrDisabled) {
		t.Fatalf("Expected wrapped ErrDisabled, got %v", err)
	}
}

func TestToResult_NoProvider(t *testing.T) {
	result := ToResult(&llm.Verdict{Validity: model.ValidityTrue, Explanation: "ok"})
	if result.Details != "ok" || result.Validity() != model.ValidityTrue {
		t.Errorf("Unexpected result %+v", result)
	}
}
