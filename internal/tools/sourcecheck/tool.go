package sourcecheck

import "github.com/ppiankov/verity/internal/tools"

// ToolName is the registered name of the cited-source tool
const ToolName = "source_check"

// NewTool exposes the checker as a verification tool
func NewTool(c *Checker) tools.Tool {
	return tools.Tool{
		Name:       ToolName,
		Kinds:      []tools.Kind{tools.KindExternalReference, tools.KindFactual, tools.KindStatistic},
		Confidence: 0.8,
		Execute:    c.Verify,
	}
}
