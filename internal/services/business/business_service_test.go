package business

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/loadedteafinder/backend/internal/database"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&database.Business{}))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewService(db, nil, log), db
}

func TestCreateBusiness(t *testing.T) {
	service, _ := setupService(t)

	created, err := service.Create(context.Background(), CreateInput{
		Name:  "Green Leaf Nutrition",
		City:  "Springfield",
		State: "mo",
	})
	require.NoError(t, err)
	assert.Equal(t, "green-leaf-nutrition-springfield", created.Slug)
	assert.Equal(t, "MO", created.State)
	assert.False(t, created.IsClaimed)
}

func TestCreateBusinessRequiredFields(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.Create(context.Background(), CreateInput{Name: "No City"})
	assert.Error(t, err)
}

func TestCreateBusinessUniqueSlugs(t *testing.T) {
	service, _ := setupService(t)

	input := CreateInput{Name: "Green Leaf Nutrition", City: "Springfield", State: "MO"}

	first, err := service.Create(context.Background(), input)
	require.NoError(t, err)
	second, err := service.Create(context.Background(), input)
	require.NoError(t, err)
	third, err := service.Create(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "green-leaf-nutrition-springfield", first.Slug)
	assert.Equal(t, "green-leaf-nutrition-springfield-2", second.Slug)
	assert.Equal(t, "green-leaf-nutrition-springfield-3", third.Slug)
}

func TestGetBySlug(t *testing.T) {
	service, _ := setupService(t)

	created, err := service.Create(context.Background(), CreateInput{
		Name: "Green Leaf Nutrition", City: "Springfield", State: "MO",
	})
	require.NoError(t, err)

	found, err := service.GetBySlug(context.Background(), created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = service.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchFilters(t *testing.T) {
	service, _ := setupService(t)

	seed := []CreateInput{
		{Name: "Green Leaf Nutrition", City: "Springfield", State: "MO"},
		{Name: "Power Tea House", City: "Springfield", State: "MO"},
		{Name: "Loaded Lounge", City: "Tulsa", State: "OK"},
	}
	for _, input := range seed {
		_, err := service.Create(context.Background(), input)
		require.NoError(t, err)
	}

	results, err := service.Search(context.Background(), SearchParams{City: "springfield"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = service.Search(context.Background(), SearchParams{State: "ok"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Loaded Lounge", results[0].Name)

	results, err = service.Search(context.Background(), SearchParams{Query: "tea"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Power Tea House", results[0].Name)

	results, err = service.Search(context.Background(), SearchParams{City: "Springfield", Query: "green"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Green Leaf Nutrition", results[0].Name)

	results, err = service.Search(context.Background(), SearchParams{City: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchLimitClamped(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.Search(context.Background(), SearchParams{Limit: 5000})
	assert.NoError(t, err)
	_, err = service.Search(context.Background(), SearchParams{Limit: -1})
	assert.NoError(t, err)
}
