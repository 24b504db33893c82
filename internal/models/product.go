package models

// Product is a catalog item as stored in the search index.
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Brand        string       `json:"brand"`
	Price        float64      `json:"price"`
	TargetPet    PetType      `json:"targetPet"`
	LifeStage    LifeStage    `json:"lifeStage"`
	SizeCategory SizeCategory `json:"sizeCategory"`
	Ingredients  []string     `json:"ingredients"`
	DietaryTags  []string     `json:"dietaryTags"`
}

// RankedProduct pairs a product with its retrieval score.
type RankedProduct struct {
	Product Product `json:"product"`
	Score   float64 `json:"score"`
}

// ResultSet is an ordered (best first) list of scored products.
type ResultSet []RankedProduct

// MinPrice returns the lowest price in the set, false when empty.
func (r ResultSet) MinPrice() (float64, bool) {
	if len(r) == 0 {
		return 0, false
	}
	min := r[0].Product.Price
	for _, rp := range r[1:] {
		if rp.Product.Price < min {
			min = rp.Product.Price
		}
	}
	return min, true
}

// Brands returns the distinct brands in the set, first-seen order.
func (r ResultSet) Brands() []string {
	var brands []string
	for _, rp := range r {
		b := rp.Product.Brand
		if b == "" {
			continue
		}
		seen := false
		for _, known := range brands {
			if known == b {
				seen = true
				break
			}
		}
		if !seen {
			brands = append(brands, b)
		}
	}
	return brands
}

// MaxPrice returns the highest price in the set, false when empty.
func (r ResultSet) MaxPrice() (float64, bool) {
	if len(r) == 0 {
		return 0, false
	}
	max := r[0].Product.Price
	for _, rp := range r[1:] {
		if rp.Product.Price > max {
			max = rp.Product.Price
		}
	}
	return max, true
}
