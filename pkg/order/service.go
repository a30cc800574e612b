package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNumberAttempts = 5

type Notifier interface {
	Dispatch(msg *notify.Message)
}

type ShippingDetails struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	ShippingAddress string `json:"shipping_address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Pincode         string `json:"pincode"`
	Phone           string `json:"phone"`
}

// PaymentIntent is what the client needs to open the provider's checkout.
type PaymentIntent struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

type Service struct {
	db        *gorm.DB
	payment   config.PaymentConfig
	provider  payment.Provider
	notifier  Notifier
	auditor   repository.AuditLogger
	metrics   *metrics.Metrics
	logger    *zap.Logger
	newNumber NumberGenerator
}

type Option func(*Service)

func WithNumberGenerator(g NumberGenerator) Option {
	return func(s *Service) { s.newNumber = g }
}

// NewService wires the order workflow. provider may be nil when payment
// credentials are not configured; payment operations then fail.
func NewService(db *gorm.DB, cfg config.PaymentConfig, provider payment.Provider, notifier Notifier,
	auditor repository.AuditLogger, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		db:        db,
		payment:   cfg,
		provider:  provider,
		notifier:  notifier,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		newNumber: RandomNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (d *ShippingDetails) normalize(accountEmail string) error {
	for _, f := range []*string{&d.FullName, &d.Email, &d.ShippingAddress, &d.City, &d.State, &d.Pincode, &d.Phone} {
		*f = strings.TrimSpace(*f)
	}
	var missing []string
	if d.ShippingAddress == "" {
		missing = append(missing, "shipping_address")
	}
	if d.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return apperr.Validation(strings.Join(missing, ", ")+" required", missing...)
	}
	if d.Email == "" {
		d.Email = accountEmail
	}
	return nil
}

// PlaceOrder turns the user's cart into an order. Order and items are
// created and the cart is cleared in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, user models.User, details ShippingDetails) (*models.Order, error) {
	if err := details.normalize(user.Email); err != nil {
		return nil, err
	}

	var placed *models.Order
	for attempt := 1; ; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}

		placed, err = s.placeOnce(ctx, user.ID, number, details)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		s.logger.Warn("Order number collision", zap.String("order_number", number), zap.Int("attempt", attempt))
		if attempt == maxNumberAttempts {
			return nil, fmt.Errorf("could not allocate a unique order number after %d attempts", maxNumberAttempts)
		}
	}

	s.metrics.OrderPlaced()
	s.logger.Info("Order placed",
		zap.String("order_number", placed.OrderNumber),
		zap.Uint("user_id", user.ID),
		zap.String("total_amount", placed.TotalAmount.String()),
		zap.Int("items", len(placed.Items)))
	s.audit(repository.ActionOrderPlaced, placed.OrderNumber, bson.M{
		"user_id":      user.ID,
		"total_amount": placed.TotalAmount.String(),
		"items":        len(placed.Items),
	})

	return s.Get(ctx, user.ID, placed.ID)
}

func (s *Service) placeOnce(ctx context.Context, userID uint, number string, d ShippingDetails) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := cart.Lines(tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.InvalidState("cart is empty")
		}

		items := make([]models.OrderItem, len(lines))
		for i, l := range lines {
			items[i] = models.OrderItem{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Price:     models.FinalPrice(l.Product),
			}
		}
		order = models.Order{
			OrderNumber:     number,
			UserID:          userID,
			TotalAmount:     models.CartTotal(lines),
			FullName:        d.FullName,
			Email:           d.Email,
			ShippingAddress: d.ShippingAddress,
			City:            d.City,
			State:           d.State,
			Pincode:         d.Pincode,
			Phone:           d.Phone,
			Status:          models.OrderStatusCreated,
			Items:           items,
		}
		// A taken order number surfaces as gorm.ErrDuplicatedKey from the unique index.
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) orderQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Items.Product").Preload("User")
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.orderQuery(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns one of the user's orders. Orders of other users are not found.
func (s *Service) Get(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.orderQuery(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (s *Service) requirePayments() error {
	if !s.payment.Configured() || s.provider == nil {
		return apperr.Misconfigured("payment gateway is not configured")
	}
	return nil
}

// CreatePaymentIntent registers the order's total with the payment provider.
// The order status is not changed.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID, orderID uint) (*PaymentIntent, error) {
	if err := s.requirePayments(); err != nil {
		return nil, err
	}
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusCreated {
		return nil, apperr.InvalidState("order is not awaiting payment")
	}

	amount := payment.ToMinorUnits(order.TotalAmount)
	intent, err := s.provider.CreateIntent(ctx, amount, s.payment.Currency, order.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{ID: order.ID}).Update("razorpay_order_id", intent.ID).Error; err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("order_number", order.OrderNumber),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", intent.Amount))
	s.audit(repository.ActionPaymentIntent, order.OrderNumber, bson.M{
		"intent_id": intent.ID,
		"amount":    intent.Amount,
		"currency":  intent.Currency,
	})

	return &PaymentIntent{
		OrderID:  intent.ID,
		Amount:   intent.Amount,
		Currency: intent.Currency,
		Key:      s.payment.KeyID,
	}, nil
}

// VerifyPayment checks the provider signature for the order's payment and
// moves the order from created to processing. A valid signature for an order
// already past created succeeds without changing anything.
func (s *Service) VerifyPayment(ctx context.Context, userID, orderID uint, paymentID, signature string) error {
	if err := s.requirePayments(); err != nil {
		return err
	}
	paymentID = strings.TrimSpace(paymentID)
	signature = strings.TrimSpace(signature)
	var missing []string
	if paymentID == "" {
		missing = append(missing, "payment_id")
	}
	if signature == "" {
		missing = append(missing, "signature")
	}
	if len(missing) > 0 {
		return apperr.Validation(strings.Join(missing, ", ")+" required", missing...)
	}

	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if order.RazorpayOrderID == nil || *order.RazorpayOrderID == "" {
		return apperr.InvalidState("payment was not initiated for this order")
	}

	if !s.provider.VerifySignature(*order.RazorpayOrderID, paymentID, signature) {
		s.metrics.PaymentVerification(metrics.PaymentRejected)
		s.logger.Warn("Payment signature rejected",
			zap.String("order_number", order.OrderNumber),
			zap.String("payment_id", paymentID))
		s.audit(repository.ActionPaymentRejected, order.OrderNumber, bson.M{"payment_id": paymentID})
		return apperr.PaymentVerificationFailed("payment verification failed")
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusCreated).
		Updates(map[string]interface{}{
			"razorpay_payment_id": paymentID,
			"razorpay_signature":  signature,
			"status":              models.OrderStatusProcessing,
		})
	if res.Error != nil {
		return fmt.Errorf("mark order paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.metrics.PaymentVerification(metrics.PaymentRepeated)
		s.logger.Info("Payment already verified", zap.String("order_number", order.OrderNumber), zap.String("status", string(order.Status)))
		return nil
	}

	order.Status = models.OrderStatusProcessing
	order.RazorpayPaymentID = &paymentID
	order.RazorpaySignature = &signature

	s.metrics.PaymentVerification(metrics.PaymentVerified)
	s.logger.Info("Payment verified",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_id", paymentID))
	s.audit(repository.ActionPaymentVerified, order.OrderNumber, bson.M{
		"payment_id": paymentID,
		"status":     string(order.Status),
	})

	s.notify(notify.OrderConfirmation(order))
	s.notify(notify.OrderAlert(order, paymentID))
	return nil
}

func (s *Service) notify(msg *notify.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(msg)
}

func (s *Service) audit(action, entityID string, data bson.M) {
	entry := &repository.AuditLog{
		Service:  "order",
		Action:   action,
		EntityID: entityID,
		Data:     data,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.auditor.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
		}
	}()
}
