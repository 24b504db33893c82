// internal/pipeline/extract-intent/config.go
package extractintent

import (
	"time"

	"pet-search-assistant/internal/common/config"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		BaseURL:    cfg.APIs.NLU.BaseURL,
		APIKey:     cfg.APIs.NLU.APIKey,
		Timeout:    config.GetDuration(cfg.APIs.NLU.Timeout),
		MaxRetries: cfg.APIs.NLU.MaxRetries,
	}
}
