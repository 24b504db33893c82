// internal/pipeline/resolve-context/models.go
package resolvecontext

import "pet-search-assistant/internal/models"

type Input struct {
	Prior       models.QueryIntent   `json:"prior"`
	Partial     models.PartialIntent `json:"partial"`
	LastResults models.ResultSet     `json:"lastResults"`
}

type Output struct {
	Resolved models.QueryIntent `json:"resolved"`
}
