// Package llmcheck exposes an LLM fact-check as a verification tool.
package llmcheck

import (
	"context"
	"fmt"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/tools"
)

// ToolName is the registered name of the LLM tool
const ToolName = "llm_check"

// Checker is the part of llm.Checker the tool needs
type Checker interface {
	Check(ctx context.Context, claim string) (*llm.Verdict, error)
}

// NewTool wraps checker as a verification tool
func NewTool(checker Checker) tools.Tool {
	return tools.Tool{
		Name:       ToolName,
		Kinds:      []tools.Kind{tools.KindFactual, tools.KindStatistic, tools.KindOpinion},
		Confidence: 0.7,
		Execute: func(ctx context.Context, text string) (*model.ToolResult, error) {
			verdict, err := checker.Check(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("llm check: %w", err)
			}
			return ToResult(verdict), nil
		},
	}
}

// ToResult converts a verdict into a tool result
func ToResult(v *llm.Verdict) *model.ToolResult {
	details := v.Explanation
	if v.Provider != "" {
		details = fmt.Sprintf("[%s/%s, confiance %.2f] %s", v.Provider, v.Model, v.Confidence, v.Explanation)
	}
	return &model.ToolResult{
		IsValid: model.ValidityPtr(v.Validity),
		Sources: v.Sources,
		Details: details,
	}
}
