// internal/pipeline/resolve-context/handler_test.go
package resolvecontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{CheaperFactor: 0.8, PricierFactor: 1.2}, logger.NewTestLogger(t))
}

func resolve(t *testing.T, input *Input) models.QueryIntent {
	t.Helper()
	output, err := newTestHandler(t).Execute(context.Background(), input)
	require.NoError(t, err)
	return output.Resolved
}

func petPtr(p models.PetType) *models.PetType { return &p }

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func sizePtr(s models.SizeCategory) *models.SizeCategory { return &s }

func resultsAt(prices ...float64) models.ResultSet {
	rs := make(models.ResultSet, 0, len(prices))
	for i, p := range prices {
		rs = append(rs, models.RankedProduct{
			Product: models.Product{ID: string(rune('a' + i)), Price: p},
			Score:   1.0 - float64(i)*0.1,
		})
	}
	return rs
}

// ==========================
// Field Merge Tests
// ==========================

func TestExecute_AbsenceKeepsPrior(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PetType = models.PetTypeDog
	prior.Brand = "orijen"
	prior.Exclusions = []string{"chicken"}
	prior.PriceMax = floatPtr(40)

	resolved := resolve(t, &Input{Prior: prior, Partial: models.PartialIntent{}})

	assert.Equal(t, models.PetTypeDog, resolved.PetType)
	assert.Equal(t, "orijen", resolved.Brand)
	assert.Equal(t, []string{"chicken"}, resolved.Exclusions)
	require.NotNil(t, resolved.PriceMax)
	assert.Equal(t, 40.0, *resolved.PriceMax)
}

func TestExecute_ExplicitValueOverrides(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PetType = models.PetTypeDog
	prior.Brand = "orijen"

	resolved := resolve(t, &Input{
		Prior: prior,
		Partial: models.PartialIntent{
			PetType: petPtr(models.PetTypeCat),
			Brand:   strPtr("wellness"),
		},
	})

	assert.Equal(t, models.PetTypeCat, resolved.PetType)
	assert.Equal(t, "wellness", resolved.Brand)
}

func TestExecute_ExclusionsAccumulate(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.Exclusions = []string{"chicken"}

	resolved := resolve(t, &Input{
		Prior:   prior,
		Partial: models.PartialIntent{Exclusions: []string{"corn"}},
	})

	assert.Equal(t, []string{"chicken", "corn"}, resolved.Exclusions)
}

func TestExecute_MergeIdempotent(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PetType = models.PetTypeDog
	prior.Exclusions = []string{"chicken"}

	partial := models.PartialIntent{
		Brand:      strPtr("wellness"),
		Inclusions: []string{"grain-free"},
		Exclusions: []string{"corn"},
		PriceMax:   floatPtr(30),
	}

	once := resolve(t, &Input{Prior: prior, Partial: partial})
	twice := resolve(t, &Input{Prior: once, Partial: partial})

	assert.Equal(t, once, twice)
}

func TestExecute_NewerPolarityWins(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.Exclusions = []string{"grain"}

	// "actually grain is fine" moves the tag to the inclusion side.
	resolved := resolve(t, &Input{
		Prior:   prior,
		Partial: models.PartialIntent{Inclusions: []string{"grain"}},
	})

	assert.Equal(t, []string{"grain"}, resolved.Inclusions)
	assert.Empty(t, resolved.Exclusions)
}

func TestExecute_SameTurnConflictExclusionWins(t *testing.T) {
	resolved := resolve(t, &Input{
		Prior: models.NewQueryIntent(),
		Partial: models.PartialIntent{
			Inclusions: []string{"fish"},
			Exclusions: []string{"fish"},
		},
	})

	assert.Empty(t, resolved.Inclusions)
	assert.Equal(t, []string{"fish"}, resolved.Exclusions)
}

func TestExecute_KeywordsDoNotPersist(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.Keywords = "senior small breed"

	resolved := resolve(t, &Input{Prior: prior, Partial: models.PartialIntent{}})
	assert.Empty(t, resolved.Keywords)

	resolved = resolve(t, &Input{
		Prior:   prior,
		Partial: models.PartialIntent{Keywords: strPtr("dental chews")},
	})
	assert.Equal(t, "dental chews", resolved.Keywords)
}

// ==========================
// Comparative Turn Tests
// ==========================

func TestExecute_CheaperAnchorsOnLastResults(t *testing.T) {
	resolved := resolve(t, &Input{
		Prior: models.NewQueryIntent(),
		Partial: models.PartialIntent{
			Reference:   true,
			Comparative: models.ComparativeCheaper,
		},
		LastResults: resultsAt(30, 25, 45),
	})

	require.NotNil(t, resolved.PriceMax)
	assert.InDelta(t, 0.8*25, *resolved.PriceMax, 1e-9)
	assert.True(t, resolved.Reference)
}

func TestExecute_PricierAnchorsOnLastResults(t *testing.T) {
	resolved := resolve(t, &Input{
		Prior: models.NewQueryIntent(),
		Partial: models.PartialIntent{
			Reference:   true,
			Comparative: models.ComparativePricier,
		},
		LastResults: resultsAt(30, 25, 45),
	})

	require.NotNil(t, resolved.PriceMin)
	assert.InDelta(t, 1.2*45, *resolved.PriceMin, 1e-9)
}

func TestExecute_ComparativeWithoutResultsIsNoOp(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PriceMax = floatPtr(50)

	resolved := resolve(t, &Input{
		Prior: prior,
		Partial: models.PartialIntent{
			Reference:   true,
			Comparative: models.ComparativeCheaper,
		},
	})

	require.NotNil(t, resolved.PriceMax)
	assert.Equal(t, 50.0, *resolved.PriceMax)
	assert.Nil(t, resolved.PriceMin)
}

func TestExecute_CheaperClearsConflictingFloor(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PriceMin = floatPtr(40)

	resolved := resolve(t, &Input{
		Prior: prior,
		Partial: models.PartialIntent{
			Reference:   true,
			Comparative: models.ComparativeCheaper,
		},
		LastResults: resultsAt(30),
	})

	// New ceiling 24 conflicts with the old floor 40; the floor goes.
	assert.Nil(t, resolved.PriceMin)
	require.NotNil(t, resolved.PriceMax)
	assert.InDelta(t, 24, *resolved.PriceMax, 1e-9)
}

// ==========================
// Brand Exclusion Tests
// ==========================

func brandedResults(brands ...string) models.ResultSet {
	rs := make(models.ResultSet, 0, len(brands))
	for i, b := range brands {
		rs = append(rs, models.RankedProduct{
			Product: models.Product{ID: string(rune('a' + i)), Brand: b, Price: 20},
			Score:   1.0 - float64(i)*0.1,
		})
	}
	return rs
}

func TestExecute_DifferentBrandsExcludesShownBrands(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.Brand = "purina"

	resolved := resolve(t, &Input{
		Prior:       prior,
		Partial:     models.PartialIntent{DifferentBrands: true},
		LastResults: brandedResults("purina", "orijen", "purina"),
	})

	assert.Equal(t, []string{"purina", "orijen"}, resolved.ExcludedBrands)
	// The sticky brand filter cannot survive a request for others.
	assert.Empty(t, resolved.Brand)
}

func TestExecute_ExplicitBrandLiftsItsExclusion(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.ExcludedBrands = []string{"purina", "orijen"}

	resolved := resolve(t, &Input{
		Prior:   prior,
		Partial: models.PartialIntent{Brand: strPtr("purina")},
	})

	assert.Equal(t, "purina", resolved.Brand)
	assert.Equal(t, []string{"orijen"}, resolved.ExcludedBrands)
}

func TestExecute_DifferentBrandsWithoutResultsIsNoOp(t *testing.T) {
	resolved := resolve(t, &Input{
		Prior:   models.NewQueryIntent(),
		Partial: models.PartialIntent{DifferentBrands: true},
	})

	assert.Empty(t, resolved.ExcludedBrands)
}

// ==========================
// Pet Switch Tests
// ==========================

func TestExecute_PetSwitchClearsBrandAndSize(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PetType = models.PetTypeDog
	prior.Brand = "orijen"
	prior.SizeCategory = models.SizeLarge
	prior.Exclusions = []string{"chicken"}

	resolved := resolve(t, &Input{
		Prior: prior,
		Partial: models.PartialIntent{
			PetType:   petPtr(models.PetTypeCat),
			PetSwitch: true,
		},
	})

	assert.Equal(t, models.PetTypeCat, resolved.PetType)
	assert.Empty(t, resolved.Brand)
	assert.Empty(t, resolved.SizeCategory)
	// Dietary sets follow the owner, not the pet.
	assert.Equal(t, []string{"chicken"}, resolved.Exclusions)
}

func TestExecute_SwitchPhrasingWithoutPetKeepsBrandAndSize(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PetType = models.PetTypeDog
	prior.Brand = "orijen"
	prior.SizeCategory = models.SizeLarge

	// "lamb instead of chicken" trips the switch cue but names no pet.
	resolved := resolve(t, &Input{
		Prior: prior,
		Partial: models.PartialIntent{
			PetSwitch:  true,
			Inclusions: []string{"lamb"},
			Exclusions: []string{"chicken"},
		},
	})

	assert.Equal(t, models.PetTypeDog, resolved.PetType)
	assert.Equal(t, "orijen", resolved.Brand)
	assert.Equal(t, models.SizeLarge, resolved.SizeCategory)
	assert.Equal(t, []string{"lamb"}, resolved.Inclusions)
	assert.Equal(t, []string{"chicken"}, resolved.Exclusions)
}

func TestExecute_PetSwitchWithNewSizeKeepsIt(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.SizeCategory = models.SizeLarge

	resolved := resolve(t, &Input{
		Prior: prior,
		Partial: models.PartialIntent{
			PetType:      petPtr(models.PetTypeCat),
			PetSwitch:    true,
			SizeCategory: sizePtr(models.SizeSmall),
		},
	})

	assert.Equal(t, models.SizeSmall, resolved.SizeCategory)
}

// ==========================
// Invariant Tests
// ==========================

func TestExecute_PriceOrderingRepaired(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.PriceMin = floatPtr(60)

	// New ceiling below the stale floor; the bound this turn touched wins.
	resolved := resolve(t, &Input{
		Prior:   prior,
		Partial: models.PartialIntent{PriceMax: floatPtr(30)},
	})

	assert.Nil(t, resolved.PriceMin)
	require.NotNil(t, resolved.PriceMax)
	assert.Equal(t, 30.0, *resolved.PriceMax)
}

func TestExecute_Deterministic(t *testing.T) {
	input := &Input{
		Prior: models.NewQueryIntent(),
		Partial: models.PartialIntent{
			PetType:    petPtr(models.PetTypeDog),
			Inclusions: []string{"grain-free", "high-protein"},
			Exclusions: []string{"chicken"},
			PriceMax:   floatPtr(55),
		},
	}

	first := resolve(t, input)
	second := resolve(t, input)
	assert.Equal(t, first, second)
}

func TestExecute_PriorNotMutated(t *testing.T) {
	prior := models.NewQueryIntent()
	prior.Exclusions = []string{"chicken"}

	_ = resolve(t, &Input{
		Prior:   prior,
		Partial: models.PartialIntent{Exclusions: []string{"corn"}, Inclusions: []string{"chicken"}},
	})

	assert.Equal(t, []string{"chicken"}, prior.Exclusions)
}
