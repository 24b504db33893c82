package models

// Pet is one animal on a customer's profile.
type Pet struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	PetType      PetType      `json:"petType"`
	Breed        string       `json:"breed,omitempty"`
	LifeStage    LifeStage    `json:"lifeStage,omitempty"`
	SizeCategory SizeCategory `json:"sizeCategory,omitempty"`
	Allergies    []string     `json:"allergies"`
}

// CustomerProfile is the durable customer record used to seed new sessions
// and to receive allergy facts learned during conversations.
type CustomerProfile struct {
	CustomerID  string            `json:"customerId"`
	Name        string            `json:"name,omitempty"`
	Pets        []Pet             `json:"pets"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// PrimaryPet returns the first pet on the profile, false when there is none.
func (c CustomerProfile) PrimaryPet() (Pet, bool) {
	if len(c.Pets) == 0 {
		return Pet{}, false
	}
	return c.Pets[0], true
}
