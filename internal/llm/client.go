package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDisabled is returned by AI features when no LLM is configured.
var ErrDisabled = errors.New("AI features not enabled")

// Completer is the LLM boundary. Replies are free text with no schema guarantee.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Model() string
}

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds LLM client configuration.
type Config struct {
	Enabled    bool
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string        // overrides the provider endpoint
	SocketPath string        // unix socket for Docker Model Runner (openai provider)
	Timeout    time.Duration // zero uses the HTTP client default
}

// New builds the configured provider. It returns a nil Completer and no error
// when the LLM is disabled; callers treat nil as "AI disabled".
func New(ctx context.Context, config Config) (Completer, error) {
	if !config.Enabled {
		return nil, nil
	}

	var (
		c   Completer
		err error
	)
	switch config.Provider {
	case "", ProviderOpenAI:
		c, err = NewOpenAI(config)
	case ProviderAnthropic:
		c, err = NewAnthropic(config)
	case ProviderGemini:
		c, err = NewGemini(ctx, config)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
