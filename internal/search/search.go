// Package search provides full text search over facts.
package search

import (
	"context"

	"factboard/api/internal/store"
)

// Query describes a search request.
type Query struct {
	Text     string
	Category string
	Limit    int
}

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > store.MaxFacts {
		return 20
	}
	return q.Limit
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []store.Fact `json:"results"`
	Total   int          `json:"total"`
	Query   string       `json:"query"`
}

// Fallback answers searches when Meilisearch is not available.
type Fallback interface {
	SearchFacts(ctx context.Context, text, category string, limit int) ([]store.Fact, error)
}

// Source pages through every stored fact for a full reindex.
type Source interface {
	FactsAfter(ctx context.Context, afterID int64, size int) ([]store.Fact, error)
}
