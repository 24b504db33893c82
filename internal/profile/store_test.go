package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewTestLogger(t)), mock
}

func expectCustomer(mock sqlmock.Sqlmock, name string) {
	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow(name))
}

func expectPets(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT id, name, pet_type, breed, life_stage, size_category, allergies").
		WithArgs("c1").
		WillReturnRows(rows)
}

func expectPreferences(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT key, value FROM preferences").
		WithArgs("c1").
		WillReturnRows(rows)
}

func petRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "pet_type", "breed", "life_stage", "size_category", "allergies"})
}

func prefRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"key", "value"})
}

// ==========================
// GetProfile Tests
// ==========================

func TestGetProfile_Success(t *testing.T) {
	store, mock := newTestStore(t)

	expectCustomer(mock, "Dana")
	expectPets(mock, petRows().
		AddRow("pet1", "Rex", "dog", "labrador", "adult", "large", []byte("{chicken}")))
	expectPreferences(mock, prefRows().AddRow("budget_max", "45"))

	profile, err := store.GetProfile(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "Dana", profile.Name)
	require.Len(t, profile.Pets, 1)
	assert.Equal(t, models.PetTypeDog, profile.Pets[0].PetType)
	assert.Equal(t, []string{"chicken"}, profile.Pets[0].Allergies)
	assert.Equal(t, "45", profile.Preferences["budget_max"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_UnknownCustomer(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := store.GetProfile(context.Background(), "c1")
	assert.True(t, errors.Is(err, ErrCustomerNotFound))
}

func TestGetProfile_DatabaseError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs("c1").
		WillReturnError(errors.New("connection refused"))

	_, err := store.GetProfile(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProfileReadFailure))
}

// ==========================
// SeedIntent Tests
// ==========================

func TestSeedIntent_AllergiesAndBudget(t *testing.T) {
	store, mock := newTestStore(t)

	expectCustomer(mock, "Dana")
	expectPets(mock, petRows().
		AddRow("pet1", "Rex", "dog", "labrador", "adult", "large", []byte("{chicken,Grain Free}")))
	expectPreferences(mock, prefRows().AddRow("budget_max", "45"))

	partial, err := store.SeedIntent(context.Background(), "c1")
	require.NoError(t, err)

	// Stored allergy surface forms come back canonicalized.
	assert.Equal(t, []string{"chicken", "grain-free"}, partial.Exclusions)
	require.NotNil(t, partial.PetType)
	assert.Equal(t, models.PetTypeDog, *partial.PetType)
	require.NotNil(t, partial.PriceMax)
	assert.Equal(t, 45.0, *partial.PriceMax)
}

func TestSeedIntent_UnknownCustomerSeedsNothing(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT name FROM customers").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	partial, err := store.SeedIntent(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, partial.Empty())
}

func TestSeedIntent_InvalidBudgetIgnored(t *testing.T) {
	store, mock := newTestStore(t)

	expectCustomer(mock, "Dana")
	expectPets(mock, petRows())
	expectPreferences(mock, prefRows().AddRow("budget_max", "not-a-number"))

	partial, err := store.SeedIntent(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, partial.PriceMax)
}

// ==========================
// SaveDeclaredAllergies Tests
// ==========================

func TestSaveDeclaredAllergies_MergesNewTags(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, allergies FROM pets").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "allergies"}).
			AddRow("pet1", []byte("{chicken}")))
	mock.ExpectExec("UPDATE pets SET allergies").
		WithArgs(sqlmock.AnyArg(), "pet1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveDeclaredAllergies(context.Background(), "c1", []string{"corn"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDeclaredAllergies_AlreadyKnownIsNoOp(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, allergies FROM pets").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "allergies"}).
			AddRow("pet1", []byte("{chicken}")))
	// No UPDATE expected.

	err := store.SaveDeclaredAllergies(context.Background(), "c1", []string{"chicken"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDeclaredAllergies_EmptyListIsNoOp(t *testing.T) {
	store, mock := newTestStore(t)

	require.NoError(t, store.SaveDeclaredAllergies(context.Background(), "c1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDeclaredAllergies_WriteFailure(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, allergies FROM pets").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "allergies"}).
			AddRow("pet1", []byte("{}")))
	mock.ExpectExec("UPDATE pets SET allergies").
		WillReturnError(errors.New("connection refused"))

	err := store.SaveDeclaredAllergies(context.Background(), "c1", []string{"corn"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProfileWriteFailure))
}

// ==========================
// UpsertPreference Tests
// ==========================

func TestUpsertPreference(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO preferences").
		WithArgs("c1", "budget_max", "60").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpsertPreference(context.Background(), "c1", "budget_max", "60"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
