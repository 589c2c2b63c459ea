package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultMaxTokens = 4096
)

// Generator turns a prompt into model text. Transport and API failures are
// returned as errors; an empty string means the model had nothing to say.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	BaseURL         string
}

func New(opts Options) (Generator, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderAnthropic:
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		return NewAnthropicClient(opts.AnthropicAPIKey, opts.Model, opts.BaseURL), nil
	case ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.Model, opts.BaseURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", opts.Provider)
	}
}

// StripCodeFences drops Markdown fence lines that models like to wrap JSON in.
func StripCodeFences(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if IsFence(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func IsFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}
