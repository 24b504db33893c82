// Package embedding turns query text into dense vectors through an external
// embeddings service. The vectors feed the kNN search adapter.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pet-search-assistant/internal/common/config"
	"pet-search-assistant/internal/common/httpclient"
	"pet-search-assistant/internal/common/logger"
)

var (
	ErrEmbeddingFailed = errors.New("EMBEDDING_FAILED")
)

// Embedder produces a dense vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		BaseURL: cfg.APIs.Embeddings.BaseURL,
		Model:   cfg.APIs.Embeddings.Model,
		Timeout: config.GetDuration(cfg.APIs.Embeddings.Timeout),
	}
}

// Client calls the embeddings HTTP endpoint.
type Client struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: httpclient.NewClient(config.Timeout),
		logger: log.WithFields(map[string]interface{}{
			"component": "embedding-client",
		}),
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model":  c.config.Model,
		"prompt": text,
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.client.PostJSON(ctx, c.config.BaseURL+"/api/embeddings", payload, &result); err != nil {
		var status *httpclient.StatusError
		if errors.As(err, &status) {
			return nil, fmt.Errorf("%w: status %d", ErrEmbeddingFailed, status.Code)
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}

	c.logger.Debug("embedded query text", map[string]interface{}{
		"dimensions": len(result.Embedding),
	})

	return result.Embedding, nil
}
