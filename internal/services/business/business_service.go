package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/loadedteafinder/backend/internal/database"
)

// searchCacheTTL bounds staleness of cached search results
const searchCacheTTL = 5 * time.Minute

// ErrNotFound is returned when a business does not exist
var ErrNotFound = errors.New("business not found")

// SearchParams filters a directory search
type SearchParams struct {
	City  string
	State string
	Query string
	Limit int
}

// Service handles directory listings
type Service struct {
	db    *gorm.DB
	cache *redis.Client // nil disables caching
	log   *logrus.Logger
}

// NewService creates a business service. cache may be nil, in which case
// every search hits the database.
func NewService(db *gorm.DB, cache *redis.Client, log *logrus.Logger) *Service {
	return &Service{db: db, cache: cache, log: log}
}

// CreateInput holds the fields for a new listing
type CreateInput struct {
	Name        string
	Description string
	Address     string
	City        string
	State       string
	Zip         string
	Phone       string
	Website     string
}

// Create adds a new listing with a unique slug derived from its name and city
func (s *Service) Create(ctx context.Context, input CreateInput) (*database.Business, error) {
	if input.Name == "" || input.City == "" || input.State == "" {
		return nil, errors.New("name, city, and state are required")
	}

	business := database.Business{
		Name:        input.Name,
		Slug:        s.uniqueSlug(input.Name, input.City),
		Description: input.Description,
		Address:     input.Address,
		City:        input.City,
		State:       strings.ToUpper(input.State),
		Zip:         input.Zip,
		Phone:       input.Phone,
		Website:     input.Website,
	}

	if err := s.db.Create(&business).Error; err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}
	return &business, nil
}

// GetBySlug returns a listing by its slug
func (s *Service) GetBySlug(ctx context.Context, businessSlug string) (*database.Business, error) {
	var business database.Business
	if err := s.db.First(&business, "slug = ?", businessSlug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &business, nil
}

// GetByID returns a listing by id
func (s *Service) GetByID(ctx context.Context, id string) (*database.Business, error) {
	var business database.Business
	if err := s.db.First(&business, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &business, nil
}

// Search returns listings matching the params, consulting the Redis cache
// first. Cache errors are logged and ignored; the database is the source of
// truth.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]database.Business, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}

	cacheKey := searchCacheKey(params)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var result []database.Business
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				return result, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Warn("search cache read failed")
		}
	}

	query := s.db.Model(&database.Business{})
	if params.City != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(params.City))
	}
	if params.State != "" {
		query = query.Where("LOWER(state) = ?", strings.ToLower(params.State))
	}
	if params.Query != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(params.Query)+"%")
	}

	var result []database.Business
	if err := query.Order("name ASC").Limit(params.Limit).Find(&result).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, searchCacheTTL).Err(); err != nil {
				s.log.WithError(err).Warn("search cache write failed")
			}
		}
	}

	return result, nil
}

// uniqueSlug derives a slug from name and city, suffixing a counter on
// collision.
func (s *Service) uniqueSlug(name, city string) string {
	base := slug.Make(name + " " + city)
	candidate := base
	for i := 2; ; i++ {
		var count int64
		s.db.Model(&database.Business{}).Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func searchCacheKey(params SearchParams) string {
	return fmt.Sprintf("search:%s:%s:%s:%d",
		strings.ToLower(params.City),
		strings.ToLower(params.State),
		strings.ToLower(params.Query),
		params.Limit,
	)
}
