// internal/pipeline/retrieve-products/handler.go
package retrieveproducts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/common/metrics"
	"pet-search-assistant/internal/models"
	"pet-search-assistant/internal/search"
)

const (
	StageName = "retrieve-products"
)

var (
	ErrRetrievalUnavailable = errors.New("RETRIEVAL_UNAVAILABLE")
)

type Handler struct {
	config   *Config
	searcher search.Searcher
	logger   logger.Logger
}

func NewHandler(config *Config, searcher search.Searcher, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		searcher: searcher,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// execute over-fetches semantically similar candidates, then applies the
// intent's hard constraints in process. Fewer than TopK survivors is a valid
// outcome; results are never padded.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = h.config.TopK
	}

	query := buildQueryText(input.Intent)
	fetch := topK * h.config.OverfetchFactor

	candidates, err := h.searcher.Search(ctx, query, fetch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	metrics.RetrievalCandidates.Observe(float64(len(candidates)))

	survivors := make(models.ResultSet, 0, len(candidates))
	for _, c := range candidates {
		if matchesIntent(c.Product, input.Intent) {
			survivors = append(survivors, models.RankedProduct{Product: c.Product, Score: c.Score})
		}
	}

	// Non-increasing score, ties broken by ascending price so equal-score
	// orderings stay deterministic.
	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].Score != survivors[j].Score {
			return survivors[i].Score > survivors[j].Score
		}
		return survivors[i].Product.Price < survivors[j].Product.Price
	})

	total := len(survivors)
	if len(survivors) > topK {
		survivors = survivors[:topK]
	}

	h.logger.Info("products retrieved", map[string]interface{}{
		"query":      query,
		"candidates": len(candidates),
		"survivors":  total,
		"returned":   len(survivors),
	})

	return &Output{Results: survivors, Total: total}, nil
}

// buildQueryText assembles the semantic query from the intent's positive
// signal only; negative constraints are enforced as hard filters instead.
func buildQueryText(intent models.QueryIntent) string {
	parts := []string{}
	if intent.PetType != models.PetTypeUnspecified && intent.PetType != "" {
		parts = append(parts, string(intent.PetType), "food")
	}
	parts = append(parts, intent.Inclusions...)
	if intent.Brand != "" {
		parts = append(parts, intent.Brand)
	}
	if intent.LifeStage != "" && intent.LifeStage != models.LifeStageAll {
		parts = append(parts, string(intent.LifeStage))
	}
	if intent.Keywords != "" {
		parts = append(parts, intent.Keywords)
	}
	if len(parts) == 0 {
		parts = append(parts, "pet food")
	}
	return strings.Join(parts, " ")
}

// matchesIntent applies all hard constraints to one candidate.
func matchesIntent(p models.Product, intent models.QueryIntent) bool {
	if intent.PetType != models.PetTypeUnspecified && intent.PetType != "" &&
		p.TargetPet != intent.PetType {
		return false
	}
	if intent.PriceMin != nil && p.Price < *intent.PriceMin {
		return false
	}
	if intent.PriceMax != nil && p.Price > *intent.PriceMax {
		return false
	}
	if intent.Brand != "" && p.Brand != intent.Brand {
		return false
	}
	if contains(intent.ExcludedBrands, p.Brand) {
		return false
	}
	if intent.LifeStage != "" && intent.LifeStage != models.LifeStageAll &&
		p.LifeStage != "" && p.LifeStage != models.LifeStageAll && p.LifeStage != intent.LifeStage {
		return false
	}
	if intent.SizeCategory != "" && intent.SizeCategory != models.SizeAll &&
		p.SizeCategory != "" && p.SizeCategory != models.SizeAll && p.SizeCategory != intent.SizeCategory {
		return false
	}
	for _, excluded := range intent.Exclusions {
		if contains(p.Ingredients, excluded) {
			return false
		}
	}
	for _, required := range intent.Inclusions {
		if !contains(p.Ingredients, required) && !contains(p.DietaryTags, required) {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
