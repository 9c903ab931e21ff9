// Package tools defines the verification tool catalog the pipeline draws from.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ppiankov/verity/internal/characterize"
	"github.com/ppiankov/verity/internal/model"
)

// ErrUnknownTool is returned when executing a tool that was never registered
var ErrUnknownTool = errors.New("unknown verification tool")

// Kind is a category of content a tool is good at checking
type Kind string

const (
	KindCalculation       Kind = "calculation"
	KindStatistic         Kind = "statistic"
	KindFactual           Kind = "factual_claim"
	KindExternalReference Kind = "external_reference"
	KindOpinion           Kind = "opinion"
)

// KindsOf lists the kinds set in c
func KindsOf(c model.Characteristics) []Kind {
	var kinds []Kind
	if c.Calculation {
		kinds = append(kinds, KindCalculation)
	}
	if c.Statistic {
		kinds = append(kinds, KindStatistic)
	}
	if c.FactualClaim {
		kinds = append(kinds, KindFactual)
	}
	if c.ExternalReference {
		kinds = append(kinds, KindExternalReference)
	}
	if c.Opinion {
		kinds = append(kinds, KindOpinion)
	}
	return kinds
}

// Suggestion names a tool and how much its verdicts are trusted
type Suggestion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Catalog suggests and executes verification tools
type Catalog interface {
	SuggestVerificationTools(ctx context.Context, text string) ([]Suggestion, error)
	ExecuteVerificationTool(ctx context.Context, name, text string) (*model.ToolResult, error)
	Available() int
}

// ExecuteFunc checks text and reports what the tool found
type ExecuteFunc func(ctx context.Context, text string) (*model.ToolResult, error)

// Tool is one registered verification tool
type Tool struct {
	Name       string
	Kinds      []Kind
	Confidence float64
	Execute    ExecuteFunc
}

func (t Tool) handles(kinds []Kind) int {
	n := 0
	for _, k := range kinds {
		for _, own := range t.Kinds {
			if own == k {
				n++
				break
			}
		}
	}
	return n
}

// Registry is an in-process Catalog
type Registry struct {
	mu            sync.RWMutex
	tools         map[string]Tool
	characterizer *characterize.Characterizer
}

// NewRegistry creates a registry holding tools. Invalid tools are skipped.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools:         make(map[string]Tool),
		characterizer: characterize.New(),
	}
	for _, t := range tools {
		_ = r.Register(t)
	}
	return r
}

// Register adds or replaces a tool
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if t.Execute == nil {
		return fmt.Errorf("register tool %s: nil Execute", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	return nil
}

// Names returns the registered tool names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available returns the number of registered tools
func (r *Registry) Available() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SuggestVerificationTools ranks every tool for text: tools handling more
// of the text's kinds first, then higher confidence, then name
func (r *Registry) SuggestVerificationTools(ctx context.Context, text string) ([]Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kinds := KindsOf(r.characterizer.Characterize(text))

	r.mu.RLock()
	ranked := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		ranked = append(ranked, t)
	}
	r.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		mi, mj := ranked[i].handles(kinds), ranked[j].handles(kinds)
		if mi != mj {
			return mi > mj
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Name < ranked[j].Name
	})

	out := make([]Suggestion, len(ranked))
	for i, t := range ranked {
		out[i] = Suggestion{Name: t.Name, Confidence: t.Confidence}
	}
	return out, nil
}

// ExecuteVerificationTool runs the named tool
func (r *Registry) ExecuteVerificationTool(ctx context.Context, name, text string) (*model.ToolResult, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Execute(ctx, text)
}
