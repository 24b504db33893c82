package models

// PetType is the kind of animal a product targets.
type PetType string

const (
	PetTypeDog         PetType = "dog"
	PetTypeCat         PetType = "cat"
	PetTypeBird        PetType = "bird"
	PetTypeFish        PetType = "fish"
	PetTypeOther       PetType = "other"
	PetTypeUnspecified PetType = "unspecified"
)

// Valid reports whether the value is a known pet type.
func (p PetType) Valid() bool {
	switch p {
	case PetTypeDog, PetTypeCat, PetTypeBird, PetTypeFish, PetTypeOther, PetTypeUnspecified:
		return true
	}
	return false
}

// LifeStage is the pet's life stage a product targets.
type LifeStage string

const (
	LifeStagePuppy  LifeStage = "puppy"
	LifeStageAdult  LifeStage = "adult"
	LifeStageSenior LifeStage = "senior"
	LifeStageAll    LifeStage = "all"
)

func (l LifeStage) Valid() bool {
	switch l {
	case LifeStagePuppy, LifeStageAdult, LifeStageSenior, LifeStageAll:
		return true
	}
	return false
}

// SizeCategory is the breed size a product targets (mainly dogs).
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
	SizeAll    SizeCategory = "all"
)

func (s SizeCategory) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge, SizeAll:
		return true
	}
	return false
}

// Comparative marks a reference-only turn's price direction.
type Comparative string

const (
	ComparativeNone    Comparative = ""
	ComparativeCheaper Comparative = "cheaper"
	ComparativePricier Comparative = "pricier"
)

// QueryIntent is the fully resolved search intent for one turn. It is a
// value object: once produced by the resolver it is never mutated.
//
// Invariants (enforced by the resolver):
//   - Inclusions and Exclusions are disjoint; on conflict the exclusion wins.
//   - PriceMin <= PriceMax when both are set.
type QueryIntent struct {
	PetType      PetType      `json:"petType"`
	Inclusions   []string     `json:"inclusions"`
	Exclusions   []string     `json:"exclusions"`
	PriceMin     *float64     `json:"priceMin,omitempty"`
	PriceMax     *float64     `json:"priceMax,omitempty"`
	Brand        string       `json:"brand,omitempty"`
	LifeStage    LifeStage    `json:"lifeStage,omitempty"`
	SizeCategory SizeCategory `json:"sizeCategory,omitempty"`
	Reference    bool         `json:"reference,omitempty"`
	Keywords     string       `json:"keywords,omitempty"`

	// ExcludedBrands accumulates brands ruled out by "different brands"
	// turns; asking for one of them explicitly lifts the exclusion.
	ExcludedBrands []string `json:"excludedBrands,omitempty"`
}

// NewQueryIntent returns an empty intent with no constraints.
func NewQueryIntent() QueryIntent {
	return QueryIntent{
		PetType:    PetTypeUnspecified,
		Inclusions: []string{},
		Exclusions: []string{},
	}
}

// Clone returns a deep copy so a turn's resolved intent stays immutable.
func (q QueryIntent) Clone() QueryIntent {
	out := q
	out.Inclusions = append([]string{}, q.Inclusions...)
	out.Exclusions = append([]string{}, q.Exclusions...)
	out.ExcludedBrands = append([]string(nil), q.ExcludedBrands...)
	if q.PriceMin != nil {
		v := *q.PriceMin
		out.PriceMin = &v
	}
	if q.PriceMax != nil {
		v := *q.PriceMax
		out.PriceMax = &v
	}
	return out
}

// PartialIntent is the per-turn extraction result. Every field may be
// explicitly absent (nil), which is distinct from an empty value: absence
// means "this turn said nothing about this field" and keeps the prior value
// during the merge.
type PartialIntent struct {
	PetType      *PetType      `json:"petType,omitempty"`
	Inclusions   []string      `json:"inclusions,omitempty"`
	Exclusions   []string      `json:"exclusions,omitempty"`
	PriceMin     *float64      `json:"priceMin,omitempty"`
	PriceMax     *float64      `json:"priceMax,omitempty"`
	Brand        *string       `json:"brand,omitempty"`
	LifeStage    *LifeStage    `json:"lifeStage,omitempty"`
	SizeCategory *SizeCategory `json:"sizeCategory,omitempty"`
	Keywords     *string       `json:"keywords,omitempty"`

	// Reference marks a turn that only compares against the previous result
	// set ("cheaper options") instead of introducing new constraints.
	Reference   bool        `json:"reference,omitempty"`
	Comparative Comparative `json:"comparative,omitempty"`

	// PetSwitch marks "instead"/"switch to" phrasing on the pet type, which
	// invalidates brand and size assumptions.
	PetSwitch bool `json:"petSwitch,omitempty"`

	// DifferentBrands marks "different brands" phrasing, which rules out
	// the brands carried by the previous result set.
	DifferentBrands bool `json:"differentBrands,omitempty"`

	// DeclaredAllergies holds allergy tags from declarative statements
	// ("my dog is allergic to chicken"); they feed the profile save path.
	DeclaredAllergies []string `json:"declaredAllergies,omitempty"`
}

// Empty reports whether the turn contributed no constraints at all.
func (p PartialIntent) Empty() bool {
	return p.PetType == nil && p.Inclusions == nil && p.Exclusions == nil &&
		p.PriceMin == nil && p.PriceMax == nil && p.Brand == nil &&
		p.LifeStage == nil && p.SizeCategory == nil && p.Keywords == nil &&
		!p.Reference && !p.DifferentBrands
}
