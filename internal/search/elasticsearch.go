package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"pet-search-assistant/internal/common/config"
	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/embedding"
	"pet-search-assistant/internal/models"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Index:   cfg.Search.Index,
		Timeout: config.GetDuration(cfg.Search.Timeout),
	}
}

// KNNSearcher runs dense-vector similarity queries against the products
// index. The query vector comes from the embeddings client.
type KNNSearcher struct {
	config   *Config
	client   *elasticsearch.Client
	embedder embedding.Embedder
	logger   logger.Logger
}

func NewKNNSearcher(config *Config, client *elasticsearch.Client, embedder embedding.Embedder, log logger.Logger) *KNNSearcher {
	return &KNNSearcher{
		config:   config,
		client:   client,
		embedder: embedder,
		logger:   log.WithFields(map[string]interface{}{"component": "knn-searcher"}),
	}
}

func (s *KNNSearcher) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	body, _ := json.Marshal(buildKNNQuery(vector, k))
	req := esapi.SearchRequest{
		Index: []string{s.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("%w: status %d", ErrSearchQueryFailed, res.StatusCode)
	}

	var payload struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrSearchQueryFailed, err)
	}

	candidates := make([]Candidate, 0, len(payload.Hits.Hits))
	for _, hit := range payload.Hits.Hits {
		candidates = append(candidates, Candidate{Product: hit.Source, Score: hit.Score})
	}

	s.logger.Debug("knn search completed", map[string]interface{}{
		"query":      query,
		"k":          k,
		"candidates": len(candidates),
	})

	return candidates, nil
}

// buildKNNQuery builds the dense-vector search body. num_candidates widens
// the HNSW beam for recall; 4x k matches the index's sizing.
func buildKNNQuery(vector []float32, k int) map[string]interface{} {
	return map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 4,
		},
		"size": k,
		"_source": []string{
			"id", "name", "description", "brand", "price",
			"targetPet", "lifeStage", "sizeCategory", "ingredients", "dietaryTags",
		},
	}
}
