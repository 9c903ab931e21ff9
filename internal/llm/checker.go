package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// ErrDisabled is returned when no provider is configured
var ErrDisabled = errors.New("llm checker disabled")

// Verdict is the structured answer an LLM gives about one claim
type Verdict struct {
	Validity    model.Validity
	Confidence  float64
	Sources     []string
	Explanation string
	Provider    string
	Model       string
	TokensUsed  int
}

// rawVerdict mirrors the JSON the prompt asks for
type rawVerdict struct {
	Verdict     model.Validity `json:"verdict"`
	Confidence  float64        `json:"confidence"`
	Sources     []string       `json:"sources"`
	Explanation string         `json:"explanation"`
}

// Checker asks an LLM provider for fact-check verdicts
type Checker struct {
	provider Provider
	config   Config
}

// NewChecker creates a checker. A disabled configuration yields a checker
// whose IsEnabled reports false.
func NewChecker(config Config) (*Checker, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Checker{provider: provider, config: config}, nil
}

// NewCheckerWithProvider wraps an existing provider
func NewCheckerWithProvider(provider Provider, config Config) *Checker {
	return &Checker{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (c *Checker) IsEnabled() bool {
	return c != nil && c.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (c *Checker) ProviderName() string {
	if !c.IsEnabled() {
		return ""
	}
	return c.provider.Name()
}

// Check asks the provider for a verdict on claim
func (c *Checker) Check(ctx context.Context, claim string) (*Verdict, error) {
	if !c.IsEnabled() {
		return nil, ErrDisabled
	}

	resp, err := c.provider.Complete(ctx, CompletionRequest{
		System: factCheckSystem,
		Prompt: BuildFactCheckPrompt(claim, ExtractURLs(claim)),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s fact check: %w", c.provider.Name(), err)
	}

	verdict, err := ParseVerdict(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%s fact check: %w", c.provider.Name(), err)
	}
	verdict.Provider = c.provider.Name()
	verdict.Model = resp.Model
	verdict.TokensUsed = resp.TokensUsed
	return verdict, nil
}

// ParseVerdict extracts the JSON verdict from an answer, tolerating code
// fences and prose around the object
func ParseVerdict(text string) (*Verdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in answer")
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	v := &Verdict{
		Validity:    raw.Verdict,
		Confidence:  confidence,
		Explanation: strings.TrimSpace(raw.Explanation),
	}
	if v.Validity == "" {
		v.Validity = model.ValidityUnknown
	}
	for _, s := range raw.Sources {
		if s = strings.TrimSpace(s); s != "" {
			v.Sources = append(v.Sources, s)
		}
	}
	// URLs mentioned only in the explanation still count as cited
	for _, u := range ExtractURLs(v.Explanation) {
		if !contains(v.Sources, u) {
			v.Sources = append(v.Sources, u)
		}
	}
	return v, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
