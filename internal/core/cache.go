package core

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSelector remembers successful selections so identical requests do
// not reach the completion service again until the entry expires. Selections
// carrying composed Text echo the caller's wording and are never cached.
type CachedSelector struct {
	next  Selector
	cache *expirable.LRU[string, Selection]
}

// NewCachedSelector wraps next with an LRU of size entries living ttl.
func NewCachedSelector(next Selector, size int, ttl time.Duration) *CachedSelector {
	return &CachedSelector{
		next:  next,
		cache: expirable.NewLRU[string, Selection](size, nil, ttl),
	}
}

func (s *CachedSelector) Select(ctx context.Context, req RecommendationRequest) (Selection, error) {
	key := cacheKey(req)
	if sel, ok := s.cache.Get(key); ok {
		return sel, nil
	}
	sel, err := s.next.Select(ctx, req)
	if err != nil {
		return Selection{}, err
	}
	if sel.Text == "" {
		s.cache.Add(key, sel)
	}
	return sel, nil
}

// Len reports the number of cached selections.
func (s *CachedSelector) Len() int { return s.cache.Len() }

func cacheKey(req RecommendationRequest) string {
	norm := func(v string) string { return strings.Join(strings.Fields(strings.ToLower(v)), " ") }
	return strings.Join([]string{
		norm(req.Diagnosis),
		norm(req.Symptoms),
		norm(string(req.Severity)),
		norm(req.Location),
	}, "\x1f")
}
