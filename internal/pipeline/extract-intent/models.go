// internal/pipeline/extract-intent/models.go
package extractintent

import (
	"pet-search-assistant/internal/lexicon"
	"pet-search-assistant/internal/models"
)

type Input struct {
	Utterance string          `json:"utterance"`
	Tokens    []lexicon.Token `json:"tokens"`
}

type Output struct {
	Partial models.PartialIntent `json:"partial"`
}

// nluResponse is the structured payload returned by the external
// text-understanding service. Every field is optional; pointer and slice
// fields distinguish "absent" from zero values.
type nluResponse struct {
	TargetPet           *string  `json:"target_pet"`
	DietaryExclusions   []string `json:"dietary_exclusions"`
	DietaryRequirements []string `json:"dietary_requirements"`
	PriceMin            *float64 `json:"price_min"`
	PriceMax            *float64 `json:"price_max"`
	LifeStage           *string  `json:"life_stage"`
	SizeCategory        *string  `json:"size_category"`
	Brand               *string  `json:"brand"`
	Keywords            *string  `json:"keywords"`
}

// nluResponseSchema validates the service payload before any field is
// trusted. Enum violations fail fast here; finer vocabulary checks happen
// per field afterwards.
const nluResponseSchema = `{
	"type": "object",
	"properties": {
		"target_pet": {"type": ["string", "null"], "enum": ["dog", "cat", "bird", "fish", "other", null]},
		"dietary_exclusions": {"type": ["array", "null"], "items": {"type": "string"}},
		"dietary_requirements": {"type": ["array", "null"], "items": {"type": "string"}},
		"price_min": {"type": ["number", "null"], "minimum": 0},
		"price_max": {"type": ["number", "null"], "minimum": 0},
		"life_stage": {"type": ["string", "null"], "enum": ["puppy", "adult", "senior", "all", null]},
		"size_category": {"type": ["string", "null"], "enum": ["small", "medium", "large", "all", null]},
		"brand": {"type": ["string", "null"]},
		"keywords": {"type": ["string", "null"]}
	},
	"additionalProperties": true
}`
