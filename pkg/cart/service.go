package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Lines loads every cart line of userID with its product, oldest first.
// db may be a transaction.
func Lines(db *gorm.DB, userID uint) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := db.Preload("Product.Category").
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	return lines, nil
}

// AddItem merges quantity into the (user, product) line, creating it if needed.
// The merge is a single upsert so concurrent adds never lose an increment.
func (s *Service) AddItem(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1", "quantity")
	}
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.Select("id").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, fmt.Errorf("lookup product: %w", err)
	}

	line := models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_items.quantity + ?", quantity),
		}),
	}).Create(&line).Error
	if err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}

	var merged models.CartItem
	err = db.Preload("Product.Category").
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&merged).Error
	if err != nil {
		return nil, fmt.Errorf("reload cart line: %w", err)
	}
	return &merged, nil
}

func (s *Service) ListItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return Lines(s.db.WithContext(ctx), userID)
}

// ownedLine loads lineID and checks it belongs to userID.
func (s *Service) ownedLine(db *gorm.DB, userID, lineID uint) (*models.CartItem, error) {
	var line models.CartItem
	if err := db.First(&line, lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cart item not found")
		}
		return nil, fmt.Errorf("lookup cart line: %w", err)
	}
	if line.UserID != userID {
		return nil, apperr.Forbidden("cart item belongs to another user")
	}
	return &line, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, lineID uint) error {
	db := s.db.WithContext(ctx)
	line, err := s.ownedLine(db, userID, lineID)
	if err != nil {
		return err
	}
	if err := db.Delete(line).Error; err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1", "quantity")
	}
	db := s.db.WithContext(ctx)
	line, err := s.ownedLine(db, userID, lineID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(line).Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("update cart line: %w", err)
	}
	if err := db.Preload("Product.Category").First(line, line.ID).Error; err != nil {
		return nil, fmt.Errorf("reload cart line: %w", err)
	}
	return line, nil
}

func (s *Service) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	lines, err := s.ListItems(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return models.CartTotal(lines), nil
}
