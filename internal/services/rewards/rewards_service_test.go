package rewards

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/loadedteafinder/backend/internal/config"
	"github.com/loadedteafinder/backend/internal/database"
)

func setupService(t *testing.T) (*Service, *gorm.DB, database.User, database.Business) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.Business{},
		&database.RewardAccount{},
		&database.CheckIn{},
	))

	user := database.User{Email: "member@example.com", Password: "hashed"}
	require.NoError(t, db.Create(&user).Error)
	business := database.Business{Name: "Green Leaf Nutrition", Slug: "green-leaf", City: "Springfield", State: "MO"}
	require.NoError(t, db.Create(&business).Error)

	cfg := config.RewardsConfig{PointsPerCheckIn: 10, RedeemThreshold: 100}
	return NewService(db, cfg), db, user, business
}

func TestCheckInCreatesAccount(t *testing.T) {
	service, db, user, business := setupService(t)

	account, err := service.CheckIn(context.Background(), user.ID, business.ID, "large mango blast")
	require.NoError(t, err)
	assert.Equal(t, 10, account.Points)

	var checkIns []database.CheckIn
	require.NoError(t, db.Where("account_id = ?", account.ID).Find(&checkIns).Error)
	require.Len(t, checkIns, 1)
	assert.Equal(t, 10, checkIns[0].Points)
	assert.Equal(t, "large mango blast", checkIns[0].Note)
}

func TestCheckInAccumulates(t *testing.T) {
	service, _, user, business := setupService(t)

	for i := 0; i < 3; i++ {
		_, err := service.CheckIn(context.Background(), user.ID, business.ID, "")
		require.NoError(t, err)
	}

	account, err := service.Balance(context.Background(), user.ID, business.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, account.Points)
}

func TestCheckInUnknownBusiness(t *testing.T) {
	service, _, user, _ := setupService(t)

	_, err := service.CheckIn(context.Background(), user.ID, uuid.New(), "")
	assert.Error(t, err)
}

func TestBalanceWithoutAccount(t *testing.T) {
	service, _, user, business := setupService(t)

	account, err := service.Balance(context.Background(), user.ID, business.ID)
	require.NoError(t, err)
	assert.Zero(t, account.Points)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	service, _, user, business := setupService(t)

	_, err := service.Redeem(context.Background(), user.ID, business.ID)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, err = service.CheckIn(context.Background(), user.ID, business.ID, "")
	require.NoError(t, err)

	_, err = service.Redeem(context.Background(), user.ID, business.ID)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

func TestRedeem(t *testing.T) {
	service, db, user, business := setupService(t)

	for i := 0; i < 10; i++ {
		_, err := service.CheckIn(context.Background(), user.ID, business.ID, "")
		require.NoError(t, err)
	}

	account, err := service.Redeem(context.Background(), user.ID, business.ID)
	require.NoError(t, err)
	assert.Zero(t, account.Points)

	// The redemption shows up as a negative check-in
	var redemption database.CheckIn
	require.NoError(t, db.Where("account_id = ? AND points < 0", account.ID).First(&redemption).Error)
	assert.Equal(t, -100, redemption.Points)
}
