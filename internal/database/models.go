package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a visitor, business owner, or admin account
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	IsAdmin   bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Claims         []Claim         `gorm:"foreignKey:ClaimantID" json:"claims,omitempty"`
	Reviews        []Review        `json:"reviews,omitempty"`
	RewardAccounts []RewardAccount `json:"reward_accounts,omitempty"`
}

// BeforeCreate assigns an id when the database does not generate one
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Business represents a nutrition club listing in the directory
type Business struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	Description string     `json:"description"`
	Address     string     `json:"address"`
	City        string     `gorm:"index" json:"city"`
	State       string     `gorm:"index" json:"state"`
	Zip         string     `json:"zip"`
	Phone       string     `json:"phone"`
	Website     string     `json:"website"`
	IsClaimed   bool       `gorm:"default:false" json:"is_claimed"`
	ClaimedBy   *uuid.UUID `gorm:"type:uuid" json:"claimed_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Reviews []Review `json:"reviews,omitempty"`
	Claims  []Claim  `json:"claims,omitempty"`
}

// BeforeCreate assigns an id when the database does not generate one
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Review represents a user review of a business
type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_reviews_business_user" json:"business_id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reviews_business_user" json:"user_id"`
	Rating     int       `gorm:"not null" json:"rating"` // 1..5
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id when the database does not generate one
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RewardAccount tracks a user's reward points at a single business
type RewardAccount struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reward_accounts_user_business" json:"user_id"`
	BusinessID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reward_accounts_user_business" json:"business_id"`
	Points     int       `gorm:"default:0" json:"points"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relationships
	CheckIns []CheckIn `gorm:"foreignKey:AccountID" json:"check_ins,omitempty"`
}

// BeforeCreate assigns an id when the database does not generate one
func (a *RewardAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CheckIn records a single purchase-based reward event
type CheckIn struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;index" json:"account_id"`
	Points    int       `json:"points"` // negative for redemptions
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns an id when the database does not generate one
func (ci *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	return nil
}
