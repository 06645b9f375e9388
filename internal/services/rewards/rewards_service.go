package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/config"
	"github.com/loadedteafinder/backend/internal/database"
)

// ErrInsufficientPoints is returned when a redemption exceeds the balance
var ErrInsufficientPoints = errors.New("not enough points to redeem")

// Service handles the purchase-based rewards program
type Service struct {
	db  *gorm.DB
	cfg config.RewardsConfig
}

// NewService creates a rewards service
func NewService(db *gorm.DB, cfg config.RewardsConfig) *Service {
	return &Service{db: db, cfg: cfg}
}

// CheckIn records a purchase check-in and credits points to the user's
// account at the business, creating the account on first visit.
func (s *Service) CheckIn(ctx context.Context, userID, businessID uuid.UUID, note string) (*database.RewardAccount, error) {
	var account database.RewardAccount

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var business database.Business
		if err := tx.First(&business, "id = ?", businessID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("business %s not found", businessID)
			}
			return err
		}

		err := tx.Where("user_id = ? AND business_id = ?", userID, businessID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = database.RewardAccount{UserID: userID, BusinessID: businessID}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		checkIn := database.CheckIn{
			AccountID: account.ID,
			Points:    s.cfg.PointsPerCheckIn,
			Note:      note,
		}
		if err := tx.Create(&checkIn).Error; err != nil {
			return err
		}

		account.Points += s.cfg.PointsPerCheckIn
		return tx.Save(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Balance returns the user's reward account at a business. A user with no
// check-ins has a zero balance, not an error.
func (s *Service) Balance(ctx context.Context, userID, businessID uuid.UUID) (*database.RewardAccount, error) {
	var account database.RewardAccount
	err := s.db.Where("user_id = ? AND business_id = ?", userID, businessID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &database.RewardAccount{UserID: userID, BusinessID: businessID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Redeem deducts the redemption threshold from the balance and records the
// redemption as a negative check-in.
func (s *Service) Redeem(ctx context.Context, userID, businessID uuid.UUID) (*database.RewardAccount, error) {
	var account database.RewardAccount

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND business_id = ?", userID, businessID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInsufficientPoints
		}
		if err != nil {
			return err
		}

		if account.Points < s.cfg.RedeemThreshold {
			return ErrInsufficientPoints
		}

		redemption := database.CheckIn{
			AccountID: account.ID,
			Points:    -s.cfg.RedeemThreshold,
			Note:      "reward redemption",
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return err
		}

		account.Points -= s.cfg.RedeemThreshold
		return tx.Save(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
