package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dshills/diffgate/internal/providers"
	"go.uber.org/zap"
)

// Reviewer wraps a reviewer and answers repeated requests from the cache.
// Failed calls are never cached.
type Reviewer struct {
	inner  providers.Reviewer
	cache  *Cache
	model  string
	log    *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewReviewer decorates inner with c. model is part of the cache key so
// switching models never serves a stale reply.
func NewReviewer(inner providers.Reviewer, c *Cache, model string, log *zap.Logger) *Reviewer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reviewer{inner: inner, cache: c, model: model, log: log}
}

func (r *Reviewer) Name() string { return r.inner.Name() }

func (r *Reviewer) Review(ctx context.Context, req providers.ReviewRequest) (providers.ReviewResponse, error) {
	key := BuildKey(r.inner.Name(), r.model, req)
	if content, ok := r.cache.Get(key); ok {
		r.hits.Add(1)
		r.log.Debug("cache hit", zap.String("key", HashKey(key)[:12]))
		return providers.ReviewResponse{Content: content}, nil
	}
	r.misses.Add(1)

	resp, err := r.inner.Review(ctx, req)
	if err != nil {
		return resp, err
	}
	if err := r.cache.Put(key, resp.Content); err != nil {
		r.log.Warn("cannot store cache entry", zap.Error(err))
	}
	return resp, nil
}

// Hits returns how many requests were served from the cache.
func (r *Reviewer) Hits() int64 { return r.hits.Load() }

// Misses returns how many requests went to the wrapped reviewer.
func (r *Reviewer) Misses() int64 { return r.misses.Load() }

// BuildKey derives the cache key for one request.
func BuildKey(provider, model string, req providers.ReviewRequest) string {
	return HashKey(fmt.Sprintf("%s\x00%s\x00%d\x00%g\x00%s\x00%s",
		provider, model, req.MaxTokens, req.Temperature, req.SystemPrompt, req.UserPrompt))
}
