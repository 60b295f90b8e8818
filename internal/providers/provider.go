package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReviewRequest contains the data sent to a reviewer for one diff segment.
type ReviewRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// ReviewResponse contains the raw reply of a reviewer.
type ReviewResponse struct {
	Content    string
	TokensUsed int
}

// Reviewer is the oracle abstraction: diff text in, free-form findings out.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error)
	Name() string
}

// Options configures a reviewer. Credentials are passed in explicitly; this
// package never reads the environment.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

const (
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 3
	defaultMaxTokens  = 4096
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) httpClient() *http.Client {
	return &http.Client{Timeout: o.Timeout}
}

// New creates a reviewer by provider name.
func New(opts Options) (Reviewer, error) {
	opts = opts.withDefaults()
	switch CanonicalName(opts.Provider) {
	case "anthropic":
		return NewAnthropic(opts)
	case "openai":
		return NewOpenAI(opts)
	case "gemini":
		return NewGemini(opts)
	case "ollama":
		return NewOllama(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
}

// CanonicalName folds provider aliases onto the names New understands.
func CanonicalName(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "google":
		return "gemini"
	case "lmstudio":
		return "ollama"
	default:
		return p
	}
}

// APIKeyEnv lists the environment variables consulted for a provider's
// credentials, in priority order.
func APIKeyEnv(provider string) []string {
	switch CanonicalName(provider) {
	case "anthropic":
		return []string{"DIFFGATE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"}
	case "openai":
		return []string{"DIFFGATE_OPENAI_API_KEY", "OPENAI_API_KEY"}
	case "gemini":
		return []string{"DIFFGATE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "ollama":
		return []string{"DIFFGATE_OLLAMA_API_KEY"}
	default:
		return nil
	}
}

// ResolveAPIKey returns the first non-empty credential for provider.
func ResolveAPIKey(provider string, getenv func(string) string) string {
	for _, name := range APIKeyEnv(provider) {
		if v := getenv(name); v != "" {
			return v
		}
	}
	return ""
}
