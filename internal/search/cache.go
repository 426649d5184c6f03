package search

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nextolk/backend/internal/metrics"
)

// idPage is the cached form of an Elasticsearch result page. Rows are
// always reloaded from the database so cached pages never serve stale
// counters.
type idPage struct {
	IDs   []uint `json:"ids"`
	Total int64  `json:"total"`
}

func generationKey(kind Kind) string {
	return "search:gen:" + string(kind)
}

// cacheKey hashes the query under the current generation of kind, so
// invalidate only has to bump the generation.
func (s *Service) cacheKey(ctx context.Context, kind Kind, query string, limit, offset int) string {
	gen, err := s.cache.Get(ctx, generationKey(kind))
	if err != nil {
		gen = []byte("0")
	}
	data, _ := json.Marshal([]interface{}{query, limit, offset})
	return fmt.Sprintf("search:%s:%s:%x", kind, gen, md5.Sum(data))
}

func (s *Service) searchIDs(ctx context.Context, kind Kind, query string, limit, offset int) (*idPage, error) {
	if s.cache == nil {
		return s.fetchIDs(ctx, kind, query, limit, offset)
	}

	key := s.cacheKey(ctx, kind, query, limit, offset)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var page idPage
		if err := json.Unmarshal(cached, &page); err == nil {
			metrics.Get().CacheHitsTotal.WithLabelValues("search").Inc()
			return &page, nil
		}
	}
	metrics.Get().CacheMissesTotal.WithLabelValues("search").Inc()

	page, err := s.fetchIDs(ctx, kind, query, limit, offset)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(page); err == nil {
		_ = s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	return page, nil
}

func (s *Service) fetchIDs(ctx context.Context, kind Kind, query string, limit, offset int) (*idPage, error) {
	ids, total, err := s.client.SearchIDs(ctx, string(kind), query, limit, offset)
	if err != nil {
		return nil, err
	}
	return &idPage{IDs: ids, Total: total}, nil
}

// invalidate drops every cached page of kind
func (s *Service) invalidate(ctx context.Context, kind Kind) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, generationKey(kind), []byte(uuid.NewString()), 0)
}
