// Package search provides the vector similarity search behind product
// retrieval. Production uses Elasticsearch kNN; tests swap in fakes.
package search

import (
	"context"

	"pet-search-assistant/internal/models"
)

// Candidate is one scored hit from the index, before filtering.
type Candidate struct {
	Product models.Product `json:"product"`
	Score   float64        `json:"score"`
}

// Searcher returns the k most similar products for a query text. Scores are
// in the backend's own range; callers own ranking policy beyond the returned
// order.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Candidate, error)
}
