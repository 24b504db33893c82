// internal/pipeline/extract-intent/handler.go
package extractintent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/common/validation"
	"pet-search-assistant/internal/lexicon"
	"pet-search-assistant/internal/models"
)

const (
	StageName = "extract-intent"
)

var (
	ErrExtractionUnavailable = errors.New("EXTRACTION_UNAVAILABLE")
	ErrNLUTimeout            = errors.New("NLU_TIMEOUT")
)

type Handler struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	partial := models.PartialIntent{}

	// Conversational cues are detected locally; the external service only
	// fills the structured catalog fields.
	partial.Comparative = detectComparative(input.Utterance)
	partial.DifferentBrands = detectDifferentBrands(input.Utterance)
	partial.Reference = partial.Comparative != models.ComparativeNone ||
		partial.DifferentBrands || isReferenceOnly(input.Utterance)
	partial.PetSwitch = detectPetSwitch(input.Utterance)
	partial.DeclaredAllergies = detectDeclaredAllergies(input.Utterance, input.Tokens)

	if (partial.Comparative != models.ComparativeNone || partial.DifferentBrands) &&
		!hasCatalogSignal(input.Tokens) {
		// A bare reference turn ("show me cheaper ones", "any different
		// brands?") introduces no new constraints, so the service round-trip
		// is skipped. A turn that also names catalog content still goes
		// through extraction.
		if len(partial.DeclaredAllergies) > 0 {
			partial.Exclusions = mergeTags(partial.Exclusions, partial.DeclaredAllergies)
		}
		h.logger.Debug("reference-only turn, skipping extraction call", map[string]interface{}{
			"comparative":     string(partial.Comparative),
			"differentBrands": partial.DifferentBrands,
		})
		return &Output{Partial: partial}, nil
	}

	raw, err := h.callNLU(ctx, input.Utterance)
	if err != nil {
		return nil, err
	}

	result, err := validation.ValidateJSON(nluResponseSchema, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: schema check: %v", ErrExtractionUnavailable, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: invalid payload: %s", ErrExtractionUnavailable, result.ErrorSummary())
	}

	var resp nluResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrExtractionUnavailable, err)
	}

	h.applyFields(&partial, &resp)

	h.logger.Info("intent extracted", map[string]interface{}{
		"hasPetType":   partial.PetType != nil,
		"inclusions":   len(partial.Inclusions),
		"exclusions":   len(partial.Exclusions),
		"reference":    partial.Reference,
		"petSwitch":    partial.PetSwitch,
		"allergyCount": len(partial.DeclaredAllergies),
	})

	return &Output{Partial: partial}, nil
}

// applyFields copies service fields into the partial intent, re-checking
// every value against the known enumerations. Anything out of range is
// treated as absent rather than passed through.
func (h *Handler) applyFields(partial *models.PartialIntent, resp *nluResponse) {
	if resp.TargetPet != nil {
		if pt := models.PetType(*resp.TargetPet); pt.Valid() && pt != models.PetTypeUnspecified {
			partial.PetType = &pt
		}
	}
	if resp.LifeStage != nil {
		if ls := models.LifeStage(*resp.LifeStage); ls.Valid() {
			partial.LifeStage = &ls
		}
	}
	if resp.SizeCategory != nil {
		if sc := models.SizeCategory(*resp.SizeCategory); sc.Valid() {
			partial.SizeCategory = &sc
		}
	}
	if resp.PriceMin != nil && *resp.PriceMin >= 0 {
		partial.PriceMin = resp.PriceMin
	}
	if resp.PriceMax != nil && *resp.PriceMax > 0 {
		partial.PriceMax = resp.PriceMax
	}
	if resp.Brand != nil {
		if b := lexicon.Canonical(*resp.Brand); b != "" {
			partial.Brand = &b
		}
	}
	if resp.Keywords != nil {
		if k := strings.TrimSpace(*resp.Keywords); k != "" {
			partial.Keywords = &k
		}
	}
	if resp.DietaryExclusions != nil {
		partial.Exclusions = canonicalTags(resp.DietaryExclusions)
	}
	if resp.DietaryRequirements != nil {
		partial.Inclusions = canonicalTags(resp.DietaryRequirements)
	}
	// Declared allergies are exclusions too, whether or not the service
	// mentioned them.
	if len(partial.DeclaredAllergies) > 0 {
		partial.Exclusions = mergeTags(partial.Exclusions, partial.DeclaredAllergies)
	}
}

func (h *Handler) callNLU(ctx context.Context, utterance string) ([]byte, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"utterance": utterance,
		"fields": map[string]interface{}{
			"target_pet":    []string{"dog", "cat", "bird", "fish", "other"},
			"life_stage":    []string{"puppy", "adult", "senior", "all"},
			"size_category": []string{"small", "medium", "large", "all"},
		},
	})

	var raw []byte
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Apply exponential backoff for retries
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrNLUTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", h.config.BaseURL+"/v1/extract", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if h.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
		}

		resp, err := h.client.Do(req)

		// If context expired during the request, return timeout immediately.
		if ctx.Err() != nil ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			return nil, ErrNLUTimeout
		}

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		raw, lastErr = io.ReadAll(resp.Body)
		resp.Body.Close()
		if lastErr == nil {
			return raw, nil
		}
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrNLUTimeout
	}
	return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, lastErr)
}

// ==========================================
// Local cue detection
// ==========================================

var cheaperCues = []string{"cheaper", "less expensive", "more affordable", "lower price", "budget option"}
var pricierCues = []string{"pricier", "more expensive", "premium option", "higher end", "more upscale"}
var referenceCues = []string{"show me more", "more like these", "more like that", "similar to these", "other options"}
var petSwitchCues = []string{"instead", "switch to", "actually for my", "not for my"}
var differentBrandCues = []string{"different brand", "other brands", "another brand", "some other brand"}
var allergyCues = []string{"allergic to", "has an allergy to", "allergy to", "can't eat", "cannot eat", "can not eat", "intolerant to"}

func detectComparative(utterance string) models.Comparative {
	t := strings.ToLower(utterance)
	for _, cue := range cheaperCues {
		if strings.Contains(t, cue) {
			return models.ComparativeCheaper
		}
	}
	for _, cue := range pricierCues {
		if strings.Contains(t, cue) {
			return models.ComparativePricier
		}
	}
	return models.ComparativeNone
}

// hasCatalogSignal reports whether the normalized tokens carry catalog
// content beyond conversational filler: a known vocabulary concept or a
// negated one.
func hasCatalogSignal(tokens []lexicon.Token) bool {
	for _, tok := range tokens {
		if tok.Negated || lexicon.Known(tok.Raw) {
			return true
		}
	}
	return false
}

func isReferenceOnly(utterance string) bool {
	t := strings.ToLower(utterance)
	for _, cue := range referenceCues {
		if strings.Contains(t, cue) {
			return true
		}
	}
	return false
}

func detectDifferentBrands(utterance string) bool {
	t := strings.ToLower(utterance)
	for _, cue := range differentBrandCues {
		if strings.Contains(t, cue) {
			return true
		}
	}
	return false
}

func detectPetSwitch(utterance string) bool {
	t := strings.ToLower(utterance)
	for _, cue := range petSwitchCues {
		if strings.Contains(t, cue) {
			return true
		}
	}
	return false
}

// detectDeclaredAllergies looks for declarative allergy statements and maps
// the concepts after the cue to canonical tags.
func detectDeclaredAllergies(utterance string, tokens []lexicon.Token) []string {
	t := strings.ToLower(utterance)
	idx := -1
	for _, cue := range allergyCues {
		if i := strings.Index(t, cue); i >= 0 {
			idx = i + len(cue)
			break
		}
	}
	if idx < 0 {
		return nil
	}

	// The allergen phrase runs from the cue to the end of the clause.
	phrase := t[idx:]
	if cut := strings.IndexAny(phrase, ".,;!?"); cut >= 0 {
		phrase = phrase[:cut]
	}

	var tags []string
	for _, tok := range lexicon.Normalize(phrase) {
		tags = appendTag(tags, tok.Canonical)
	}
	if len(tags) > 0 {
		return tags
	}

	// Fall back to any negated token already found in the utterance.
	for _, tok := range tokens {
		if tok.Negated {
			tags = appendTag(tags, tok.Canonical)
		}
	}
	return tags
}

func canonicalTags(raw []string) []string {
	tags := []string{}
	for _, r := range raw {
		tags = appendTag(tags, lexicon.Canonical(r))
	}
	return tags
}

func mergeTags(base, extra []string) []string {
	out := append([]string{}, base...)
	for _, e := range extra {
		out = appendTag(out, e)
	}
	return out
}

func appendTag(tags []string, tag string) []string {
	if tag == "" {
		return tags
	}
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
