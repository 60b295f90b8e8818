// Package cache provides a file-based cache for reviewer responses.
//
// Entries are keyed by a SHA-256 hash of the provider name, model, sampling
// parameters and prompts of a single segment request. Each entry is a JSON
// document compressed with lz4 and written atomically. Entries older than the
// configured TTL are treated as misses and removed on read.
//
// Reviewer wraps any providers.Reviewer so the dispatcher can use the cache
// without knowing about it. Prompts are built from the redacted diff, so
// nothing secret reaches the cache directory when redaction is enabled.
package cache
