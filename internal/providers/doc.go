// Package providers implements the reviewer oracle for each supported LLM
// backend.
//
// Supported providers: Anthropic (Claude), OpenAI (GPT), Google (Gemini, via
// the GenAI SDK), and Ollama / LM Studio for local models.
//
// Every provider is built from an explicit [Options] value; credentials are
// resolved by the caller (see [ResolveAPIKey]) so the package itself never
// touches process state. HTTP providers share a retry helper with
// exponential back-off on rate limiting and server errors; authentication
// failures are surfaced immediately and can be detected with [IsAuthError].
package providers
