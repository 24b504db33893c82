// internal/pipeline/retrieve-products/config.go
package retrieveproducts

import "pet-search-assistant/internal/common/config"

type Config struct {
	// TopK is the default result count when the request does not set one.
	TopK int
	// OverfetchFactor widens the candidate pull so hard filtering still
	// leaves enough survivors.
	OverfetchFactor int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		TopK:            cfg.Search.TopK,
		OverfetchFactor: cfg.Search.OverfetchFactor,
	}
}
