// internal/pipeline/resolve-context/handler.go
package resolvecontext

import (
	"context"

	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/models"
)

const (
	StageName = "resolve-context"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// Execute merges one turn's partial intent into the session's prior intent.
// The merge is pure and deterministic: identical inputs always produce the
// same resolved intent.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(input), nil
}

func (h *Handler) execute(input *Input) *Output {
	resolved := input.Prior.Clone()
	partial := input.Partial

	// A pet switch invalidates brand and size assumptions before anything
	// new is applied; dietary constraints follow the owner, not the pet.
	// The cue alone is not enough: "lamb instead of chicken" carries the
	// switch phrasing but names no pet, so nothing is reset.
	if partial.PetSwitch && partial.PetType != nil {
		resolved.Brand = ""
		resolved.SizeCategory = ""
		resolved.ExcludedBrands = nil
	}

	applyScalars(&resolved, &partial)
	applySets(&resolved, &partial)
	applyBrandExclusions(&resolved, &partial, input.LastResults)
	h.applyComparative(&resolved, &partial, input.LastResults)

	resolved.Reference = partial.Reference
	h.enforceInvariants(&resolved, priceUpdatedThisTurn(&partial))

	return &Output{Resolved: resolved}
}

// applyScalars overrides single-valued fields when the turn set them;
// absence keeps the prior value.
func applyScalars(resolved *models.QueryIntent, partial *models.PartialIntent) {
	if partial.PetType != nil {
		resolved.PetType = *partial.PetType
	}
	if partial.Brand != nil {
		resolved.Brand = *partial.Brand
	}
	if partial.LifeStage != nil {
		resolved.LifeStage = *partial.LifeStage
	}
	if partial.SizeCategory != nil {
		resolved.SizeCategory = *partial.SizeCategory
	}
	if partial.PriceMin != nil {
		v := *partial.PriceMin
		resolved.PriceMin = &v
	}
	if partial.PriceMax != nil {
		v := *partial.PriceMax
		resolved.PriceMax = &v
	}
	if partial.Keywords != nil {
		resolved.Keywords = *partial.Keywords
	} else {
		resolved.Keywords = ""
	}
}

// applySets accumulates dietary constraints across turns. The newer polarity
// wins a conflict: a tag included this turn leaves the exclusion set and
// vice versa. Exclusions are applied last so a tag both included and
// excluded in the same turn ends up excluded.
func applySets(resolved *models.QueryIntent, partial *models.PartialIntent) {
	for _, tag := range partial.Inclusions {
		resolved.Inclusions = addTag(resolved.Inclusions, tag)
		resolved.Exclusions = removeTag(resolved.Exclusions, tag)
	}
	for _, tag := range partial.Exclusions {
		resolved.Exclusions = addTag(resolved.Exclusions, tag)
		resolved.Inclusions = removeTag(resolved.Inclusions, tag)
	}
}

// applyBrandExclusions rules out the brands the previous turn showed when
// the user asked for different ones. Explicitly asking for a brand lifts its
// ban again.
func applyBrandExclusions(resolved *models.QueryIntent, partial *models.PartialIntent, last models.ResultSet) {
	if partial.DifferentBrands {
		for _, b := range last.Brands() {
			resolved.ExcludedBrands = addTag(resolved.ExcludedBrands, b)
		}
		if partial.Brand == nil {
			// A sticky brand filter cannot survive a request for others.
			resolved.Brand = ""
		}
	}
	if resolved.Brand != "" {
		resolved.ExcludedBrands = removeTag(resolved.ExcludedBrands, resolved.Brand)
	}
}

// applyComparative turns "cheaper"/"pricier" into price bounds anchored on
// the previous result set. Without previous results there is nothing to
// anchor on and the turn is a no-op on prices.
func (h *Handler) applyComparative(resolved *models.QueryIntent, partial *models.PartialIntent, last models.ResultSet) {
	switch partial.Comparative {
	case models.ComparativeCheaper:
		if min, ok := last.MinPrice(); ok {
			ceiling := h.config.CheaperFactor * min
			resolved.PriceMax = &ceiling
			if resolved.PriceMin != nil && *resolved.PriceMin > ceiling {
				resolved.PriceMin = nil
			}
		}
	case models.ComparativePricier:
		if max, ok := last.MaxPrice(); ok {
			floor := h.config.PricierFactor * max
			resolved.PriceMin = &floor
			if resolved.PriceMax != nil && *resolved.PriceMax < floor {
				resolved.PriceMax = nil
			}
		}
	}
}

// enforceInvariants is the final gate regardless of which path built the
// intent: inclusion/exclusion disjointness (exclusion wins) and price bound
// ordering. Violations reaching this point are policy gaps, logged as
// internal defects and repaired, never surfaced to the caller.
func (h *Handler) enforceInvariants(resolved *models.QueryIntent, updated priceUpdate) {
	for _, tag := range resolved.Exclusions {
		if containsTag(resolved.Inclusions, tag) {
			h.logger.Warn("merge conflict repaired", map[string]interface{}{
				"errorCode": "INVALID_MERGE_CONFLICT",
				"tag":       tag,
			})
			resolved.Inclusions = removeTag(resolved.Inclusions, tag)
		}
	}

	if resolved.PriceMin != nil && resolved.PriceMax != nil && *resolved.PriceMin > *resolved.PriceMax {
		h.logger.Warn("merge conflict repaired", map[string]interface{}{
			"errorCode": "INVALID_MERGE_CONFLICT",
			"priceMin":  *resolved.PriceMin,
			"priceMax":  *resolved.PriceMax,
		})
		// Keep the bound this turn touched; drop the stale one. When the
		// turn set both, the ceiling wins.
		switch {
		case updated.max:
			resolved.PriceMin = nil
		case updated.min:
			resolved.PriceMax = nil
		default:
			resolved.PriceMin = nil
		}
	}
}

type priceUpdate struct {
	min bool
	max bool
}

func priceUpdatedThisTurn(partial *models.PartialIntent) priceUpdate {
	u := priceUpdate{
		min: partial.PriceMin != nil,
		max: partial.PriceMax != nil,
	}
	switch partial.Comparative {
	case models.ComparativeCheaper:
		u.max = true
	case models.ComparativePricier:
		u.min = true
	}
	return u
}

func addTag(tags []string, tag string) []string {
	if tag == "" || containsTag(tags, tag) {
		return tags
	}
	return append(tags, tag)
}

func removeTag(tags []string, tag string) []string {
	out := tags[:0]
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
