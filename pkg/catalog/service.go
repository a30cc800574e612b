package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultFeaturedLimit = 10

// Filters narrows ListProducts. Zero values mean "no filter".
type Filters struct {
	Category   string
	Search     string
	Trending   bool
	Bestseller bool
	SkinType   string
}

// Cache is the subset of the Redis repository used for cache-aside reads.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Service struct {
	db       *gorm.DB
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService builds the catalog reader. cache may be nil.
func NewService(db *gorm.DB, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{db: db, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func (s *Service) productQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Product{}).Preload("Category")
}

func (s *Service) ListProducts(ctx context.Context, f Filters) ([]models.Product, error) {
	query := s.productQuery(ctx)

	if f.Category != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", f.Category)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := containsPattern(search)
		query = query.Where("(LOWER(products.name) LIKE ? ESCAPE '!' OR LOWER(products.description) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if f.Trending {
		query = query.Where("products.is_trending = ?", true)
	}
	if f.Bestseller {
		query = query.Where("products.is_bestseller = ?", true)
	}
	if f.SkinType != "" {
		query = query.Where("products.skin_type = ?", f.SkinType)
	}

	var products []models.Product
	if err := query.Order("products.created_at DESC").Order("products.id DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := s.productQuery(ctx).Where("products.slug = ?", slug).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

// FeaturedProducts returns up to limit trending or bestselling products,
// newest first. Results are cached when a cache is configured.
func (s *Service) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > DefaultFeaturedLimit {
		limit = DefaultFeaturedLimit
	}
	key := fmt.Sprintf("catalog:featured:%d", limit)

	if s.cache != nil {
		var cached []models.Product
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var products []models.Product
	err := s.productQuery(ctx).
		Where("products.is_trending = ? OR products.is_bestseller = ?", true, true).
		Order("products.created_at DESC").Order("products.id DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, products, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache featured products", zap.Error(err))
		}
	}
	return products, nil
}
