// internal/pipeline/resolve-context/config.go
package resolvecontext

import "pet-search-assistant/internal/common/config"

type Config struct {
	// CheaperFactor scales the cheapest previous result into the new price
	// ceiling on "cheaper" turns. Must be in (0, 1).
	CheaperFactor float64
	// PricierFactor scales the priciest previous result into the new price
	// floor on "pricier" turns. Must be > 1.
	PricierFactor float64
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		CheaperFactor: cfg.Search.CheaperFactor,
		PricierFactor: cfg.Search.PricierFactor,
	}
}
