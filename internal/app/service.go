package app

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"factboard/api/internal/category"
	"factboard/api/internal/search"
	"factboard/api/internal/store"
)

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexFact(store.Fact)
}

type CreateFactInput struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// Service is the fact store as seen over HTTP. Content rules belong to the
// client; the service only checks the request shape.
type Service struct {
	store  store.Backend
	search searchService
	logger *zap.Logger
}

// New creates a service. searchSvc may be nil when search is not configured.
func New(dataStore store.Backend, searchSvc *search.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{store: dataStore, logger: logger}
	if searchSvc != nil {
		svc.search = searchSvc
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Categories() []category.Category {
	return category.Categories()
}

func (s *Service) ListFacts(ctx context.Context, categoryName string, limit int) ([]store.Fact, error) {
	items, err := s.store.FetchFacts(ctx, store.FactQuery{Category: categoryName, Limit: limit})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Fact{}
	}
	return items, nil
}

func (s *Service) CreateFact(ctx context.Context, input CreateFactInput) (store.Fact, error) {
	var missing []string
	if strings.TrimSpace(input.Text) == "" {
		missing = append(missing, "text")
	}
	if strings.TrimSpace(input.Source) == "" {
		missing = append(missing, "source")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return store.Fact{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text, source and category are required", map[string]any{"missing": missing})
	}

	created, err := s.store.InsertFact(ctx, store.NewFact{
		Text:     input.Text,
		Source:   input.Source,
		Category: input.Category,
	})
	if err != nil {
		return store.Fact{}, err
	}
	s.logger.Info("fact created", zap.Int64("fact_id", created.ID), zap.String("category", created.Category))
	s.index(created)
	return created, nil
}

func (s *Service) Vote(ctx context.Context, id int64, column store.VoteColumn) (store.Fact, error) {
	updated, err := s.store.IncrementVote(ctx, id, column)
	if err != nil {
		return store.Fact{}, err
	}
	s.index(updated)
	return updated, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []store.Fact{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) index(item store.Fact) {
	if s.search != nil {
		s.search.IndexFact(item)
	}
}
