// internal/pipeline/retrieve-products/models.go
package retrieveproducts

import "pet-search-assistant/internal/models"

type Input struct {
	Intent models.QueryIntent `json:"intent"`
	// TopK overrides the configured default when > 0.
	TopK int `json:"topK"`
}

type Output struct {
	Results models.ResultSet `json:"results"`
	// Total counts filter survivors before truncation to TopK.
	Total int `json:"total"`
}
