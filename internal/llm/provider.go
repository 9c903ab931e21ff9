package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system+user exchange and returns the raw answer
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is a single-turn prompt
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // provider default when empty
	MaxTokens int
	JSON      bool // ask for a JSON object answer where the API supports it
}

// CompletionResponse is the provider's answer
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 600,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 600
}

const factCheckSystem = "You are a careful fact checker. You answer only with a JSON object and never invent sources."

// BuildFactCheckPrompt asks for a machine-readable verdict on one claim
func BuildFactCheckPrompt(claim string, contextURLs []string) string {
	prompt := fmt.Sprintf(`Assess whether the following claim is supported by well-established knowledge.

CLAIM:
%s

RULES:
1. Answer with a single JSON object and nothing else.
2. "verdict" is one of: "true", "false", "partial", "absence", "unknown".
   - "partial": some parts hold, others do not or cannot be checked.
   - "absence": there is authoritative evidence that no such fact exists.
   - "unknown": you cannot tell.
3. "confidence" is a number between 0 and 1.
4. "sources" lists URLs or publication names you rely on. Leave it empty rather than guessing.
5. "explanation" is one or two sentences.
`, strings.TrimSpace(claim))

	if len(contextURLs) > 0 {
		prompt += "\nThe claim cites these sources:" + joinURLs(contextURLs) + "\n"
	}

	prompt += `
FORMAT:
{"verdict": "...", "confidence": 0.0, "sources": [], "explanation": "..."}`
	return prompt
}

func joinURLs(urls []string) string {
	result := ""
	for i, url := range urls {
		if i >= 10 { // keep prompts short
			result += fmt.Sprintf("\n... and %d more URLs", len(urls)-10)
			break
		}
		result += fmt.Sprintf("\n- %s", url)
	}
	return result
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]"'<>]+`)

// ExtractURLs returns the distinct http(s) URLs in text, in order
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, url := range matches {
		// Clean up trailing punctuation
		url = strings.TrimRight(url, ".,;:!?")
		if !seen[url] {
			seen[url] = true
			unique = append(unique, url)
		}
	}

	return unique
}
