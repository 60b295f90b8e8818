package providers

import "time"

const (
	defaultOllamaURL = "http://localhost:11434"
	ollamaTimeout    = 300 * time.Second
)

// NewOllama creates a reviewer for Ollama or LM Studio through their
// OpenAI-compatible endpoint. No API key is required.
func NewOllama(opts Options) (*OpenAI, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = ollamaTimeout
	}
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = defaultOllamaURL
	}
	return &OpenAI{
		name:       "ollama",
		apiKey:     opts.APIKey,
		model:      opts.Model,
		url:        chatCompletionsURL(base),
		maxRetries: opts.MaxRetries,
		client:     opts.httpClient(),
		log:        opts.Logger.Named("ollama"),
	}, nil
}
