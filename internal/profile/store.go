// Package profile bridges durable customer records into the conversation:
// stored pet allergies and budget preferences seed a new session's intent,
// and allergies declared mid-conversation are written back.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/lexicon"
	"pet-search-assistant/internal/models"
)

var (
	ErrProfileReadFailure  = errors.New("PROFILE_READ_FAILURE")
	ErrProfileWriteFailure = errors.New("PROFILE_WRITE_FAILURE")
	ErrCustomerNotFound    = errors.New("CUSTOMER_NOT_FOUND")
)

// budgetPreferenceKey is the preference row holding the customer's price
// ceiling.
const budgetPreferenceKey = "budget_max"

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "profile-store"}),
	}
}

// GetProfile loads a customer with pets and preferences.
func (s *Store) GetProfile(ctx context.Context, customerID string) (*models.CustomerProfile, error) {
	profile := &models.CustomerProfile{CustomerID: customerID}

	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM customers WHERE id = $1", customerID,
	).Scan(&profile.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
	}

	pets, err := s.loadPets(ctx, customerID)
	if err != nil {
		return nil, err
	}
	profile.Pets = pets

	prefs, err := s.loadPreferences(ctx, customerID)
	if err != nil {
		return nil, err
	}
	profile.Preferences = prefs

	return profile, nil
}

// SeedIntent builds the starting partial intent for a new session: stored
// allergies become canonical exclusions and the budget preference becomes a
// price ceiling. An unknown customer seeds nothing.
func (s *Store) SeedIntent(ctx context.Context, customerID string) (models.PartialIntent, error) {
	partial := models.PartialIntent{}

	profile, err := s.GetProfile(ctx, customerID)
	if errors.Is(err, ErrCustomerNotFound) {
		return partial, nil
	}
	if err != nil {
		return partial, err
	}

	var exclusions []string
	for _, pet := range profile.Pets {
		for _, allergy := range pet.Allergies {
			if tag := lexicon.Canonical(allergy); tag != "" && !containsTag(exclusions, tag) {
				exclusions = append(exclusions, tag)
			}
		}
	}
	if len(exclusions) > 0 {
		partial.Exclusions = exclusions
	}

	if pet, ok := profile.PrimaryPet(); ok && pet.PetType.Valid() && pet.PetType != models.PetTypeUnspecified {
		pt := pet.PetType
		partial.PetType = &pt
	}

	if raw, ok := profile.Preferences[budgetPreferenceKey]; ok {
		if budget, err := strconv.ParseFloat(raw, 64); err == nil && budget > 0 {
			partial.PriceMax = &budget
		}
	}

	s.logger.Info("session seeded from profile", map[string]interface{}{
		"customerId": customerID,
		"exclusions": len(exclusions),
		"hasBudget":  partial.PriceMax != nil,
	})

	return partial, nil
}

// SaveDeclaredAllergies merges newly declared allergy tags into the
// customer's primary pet record. Saving an already-known allergy is a no-op,
// so replays are safe.
func (s *Store) SaveDeclaredAllergies(ctx context.Context, customerID string, allergies []string) error {
	if len(allergies) == 0 {
		return nil
	}

	var petID string
	var current []string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, allergies FROM pets WHERE customer_id = $1 ORDER BY created_at LIMIT 1",
		customerID,
	).Scan(&petID, pq.Array(&current))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCustomerNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileWriteFailure, err)
	}

	merged := append([]string{}, current...)
	changed := false
	for _, allergy := range allergies {
		if tag := lexicon.Canonical(allergy); tag != "" && !containsTag(merged, tag) {
			merged = append(merged, tag)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE pets SET allergies = $1 WHERE id = $2",
		pq.Array(merged), petID,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileWriteFailure, err)
	}

	s.logger.Info("allergies saved to profile", map[string]interface{}{
		"customerId": customerID,
		"petId":      petID,
		"allergies":  merged,
	})
	return nil
}

// UpsertPreference overwrites one preference row, keyed by (customer, key).
func (s *Store) UpsertPreference(ctx context.Context, customerID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (customer_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (customer_id, key) DO UPDATE SET value = EXCLUDED.value`,
		customerID, key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileWriteFailure, err)
	}
	return nil
}

func (s *Store) loadPets(ctx context.Context, customerID string) ([]models.Pet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, pet_type, breed, life_stage, size_category, allergies
		 FROM pets WHERE customer_id = $1 ORDER BY created_at`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
	}
	defer rows.Close()

	var pets []models.Pet
	for rows.Next() {
		var pet models.Pet
		var breed, lifeStage, sizeCategory sql.NullString
		if err := rows.Scan(&pet.ID, &pet.Name, &pet.PetType, &breed, &lifeStage, &sizeCategory, pq.Array(&pet.Allergies)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
		}
		pet.Breed = breed.String
		pet.LifeStage = models.LifeStage(lifeStage.String)
		pet.SizeCategory = models.SizeCategory(sizeCategory.String)
		pets = append(pets, pet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
	}
	return pets, nil
}

func (s *Store) loadPreferences(ctx context.Context, customerID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM preferences WHERE customer_id = $1", customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
		}
		prefs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileReadFailure, err)
	}
	return prefs, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
