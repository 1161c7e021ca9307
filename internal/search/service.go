package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"factboard/api/internal/store"
)

// Service tries Meilisearch first and falls back to the store's own search.
type Service struct {
	meili    *Meili
	fallback Fallback
	logger   *zap.Logger
}

// NewService creates a search service. Either backend may be nil.
func NewService(meili *Meili, fallback Fallback, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{meili: meili, fallback: fallback, logger: logger}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	empty := Response{Results: []store.Fact{}, Query: q.Text}
	if q.Text == "" {
		return empty
	}

	if s.meiliReady() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: results, Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch failed, falling back", zap.Error(err))
	}

	if s.fallback == nil {
		return empty
	}
	results, err := s.fallback.SearchFacts(ctx, q.Text, q.Category, q.limit())
	if err != nil {
		s.logger.Warn("fallback search failed", zap.Error(err))
		return empty
	}
	if results == nil {
		results = []store.Fact{}
	}
	return Response{Results: results, Total: len(results), Query: q.Text}
}

// IndexFact pushes one fact to Meilisearch without waiting for the result.
func (s *Service) IndexFact(item store.Fact) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexFacts([]store.Fact{item}); err != nil {
			s.logger.Warn("index fact", zap.Int64("fact_id", item.ID), zap.Error(err))
		}
	}()
}

const reindexPageSize = 500

// ReindexAll pushes every fact in source to Meilisearch, one page at a time.
func (s *Service) ReindexAll(ctx context.Context, source Source) {
	if !s.meiliReady() {
		return
	}
	count, err := reindex(ctx, source, reindexPageSize, s.meili.IndexFacts)
	if err != nil {
		s.logger.Warn("reindex facts", zap.Int("indexed", count), zap.Error(err))
		return
	}
	s.logger.Info("reindexed facts", zap.Int("count", count))
}

// ReindexOnRecovery repeats ReindexAll whenever Meilisearch comes back after
// being unreachable, since facts written in the meantime only reached the store.
func (s *Service) ReindexOnRecovery(ctx context.Context, source Source) {
	if s.meili == nil {
		return
	}
	s.meili.OnRecover(func() { s.ReindexAll(ctx, source) })
}

func reindex(ctx context.Context, source Source, size int, push func([]store.Fact) error) (int, error) {
	count := 0
	afterID := int64(0)
	for {
		page, err := source.FactsAfter(ctx, afterID, size)
		if err != nil {
			return count, fmt.Errorf("load facts after %d: %w", afterID, err)
		}
		if err := push(page); err != nil {
			return count, fmt.Errorf("push facts after %d: %w", afterID, err)
		}
		count += len(page)
		if len(page) < size {
			return count, nil
		}
		afterID = page[len(page)-1].ID
	}
}
