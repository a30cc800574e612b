package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test_secret"

var paymentConfig = config.PaymentConfig{KeyID: "rzp_test_key", KeySecret: testSecret, Currency: "INR"}

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	amount   int64
	receipt  string
	currency string
	err      error
}

func (p *fakeProvider) CreateIntent(_ context.Context, amount int64, currency, receipt string) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.calls++
	p.amount, p.currency, p.receipt = amount, currency, receipt
	return &payment.Intent{ID: fmt.Sprintf("order_test_%d", p.calls), Amount: amount, Currency: currency}, nil
}

func (p *fakeProvider) VerifySignature(intentID, paymentID, signature string) bool {
	return payment.Sign(intentID, paymentID, testSecret) == signature
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*notify.Message
}

func (n *recordingNotifier) Dispatch(msg *notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) messages() []*notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*notify.Message(nil), n.sent...)
}

type fixture struct {
	db       *gorm.DB
	carts    *cart.Service
	provider *fakeProvider
	notifier *recordingNotifier
	alice    models.User
	bob      models.User
	serum    models.Product
	lotion   models.Product
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := repotest.DB(t)
	c := repotest.CreateCategory(t, db, "face")
	return &fixture{
		db:       db,
		carts:    cart.NewService(db, zap.NewNop()),
		provider: &fakeProvider{},
		notifier: &recordingNotifier{},
		alice:    repotest.CreateUser(t, db, "alice"),
		bob:      repotest.CreateUser(t, db, "bob"),
		serum: repotest.CreateProduct(t, db, models.Product{
			Name: "Serum", Slug: "serum", Price: repotest.Price("100"), DiscountPrice: repotest.Discount("80"), CategoryID: c.ID,
		}),
		lotion: repotest.CreateProduct(t, db, models.Product{
			Name: "Lotion", Slug: "lotion", Price: repotest.Price("50"), CategoryID: c.ID,
		}),
	}
}

func (f *fixture) service(cfg config.PaymentConfig, opts ...Option) *Service {
	var provider payment.Provider
	if cfg.Configured() {
		provider = f.provider
	}
	return NewService(f.db, cfg, provider, f.notifier, repository.NopAuditLogger{}, nil, zap.NewNop(), opts...)
}

func (f *fixture) fillCart(t *testing.T, user models.User) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, user.ID, f.serum.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, user.ID, f.lotion.ID, 1)
	require.NoError(t, err)
}

var shipping = ShippingDetails{
	FullName:        "Alice Liddell",
	ShippingAddress: "1 Main St",
	City:            "Pune",
	State:           "MH",
	Pincode:         "411001",
	Phone:           "9999999999",
}

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()
	f.fillCart(t, f.alice)

	order, err := svc.PlaceOrder(ctx, f.alice, shipping)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCreated, order.Status)
	assert.True(t, order.TotalAmount.Equal(repotest.Price("210")), "got %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	prices := map[string]string{}
	for _, it := range order.Items {
		prices[it.Product.Slug] = it.Price.String()
	}
	assert.Equal(t, map[string]string{"serum": "80", "lotion": "50"}, prices)
	assert.Equal(t, "alice@example.com", order.Email)

	lines, err := f.carts.ListItems(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.serum.ID).
		Updates(map[string]interface{}{"price": "500", "discount_price": nil}).Error)

	reloaded, err := svc.Get(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TotalAmount.Equal(repotest.Price("210")))
	for _, it := range reloaded.Items {
		if it.ProductID == f.serum.ID {
			assert.True(t, it.Price.Equal(repotest.Price("80")))
		}
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)

	_, err := svc.PlaceOrder(context.Background(), f.alice, shipping)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderRequiresAddressAndPhone(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	f.fillCart(t, f.alice)

	_, err := svc.PlaceOrder(context.Background(), f.alice, ShippingDetails{FullName: "Alice", Phone: "  "})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"shipping_address", "phone"}, appErr.Fields)

	lines, err := f.carts.ListItems(context.Background(), f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func (f *fixture) assertNothingPlaced(t *testing.T, user models.User) {
	t.Helper()
	var orders, items int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)

	lines, err := f.carts.ListItems(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPlaceOrderRollsBackWhenItemsFail(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	f.fillCart(t, f.alice)
	require.NoError(t, f.db.Exec(`CREATE TRIGGER reject_order_items BEFORE INSERT ON order_items
		BEGIN SELECT RAISE(ABORT, 'order items rejected'); END`).Error)

	_, err := svc.PlaceOrder(context.Background(), f.alice, shipping)
	require.Error(t, err)
	assert.False(t, errors.Is(err, gorm.ErrDuplicatedKey))
	f.assertNothingPlaced(t, f.alice)
}

func TestPlaceOrderRollsBackWhenCartClearFails(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	f.fillCart(t, f.alice)
	require.NoError(t, f.db.Exec(`CREATE TRIGGER keep_cart_items BEFORE DELETE ON cart_items
		BEGIN SELECT RAISE(ABORT, 'cart is locked'); END`).Error)

	_, err := svc.PlaceOrder(context.Background(), f.alice, shipping)
	require.Error(t, err)
	f.assertNothingPlaced(t, f.alice)
}

func sequence(numbers ...string) NumberGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n := numbers[i%len(numbers)]
		i++
		return n, nil
	}
}

func TestPlaceOrderRetriesNumberCollision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.service(paymentConfig, WithNumberGenerator(sequence("ORDAAAAAAAAAA", "ORDAAAAAAAAAA", "ORDBBBBBBBBBB")))

	f.fillCart(t, f.alice)
	first, err := svc.PlaceOrder(ctx, f.alice, shipping)
	require.NoError(t, err)
	assert.Equal(t, "ORDAAAAAAAAAA", first.OrderNumber)

	f.fillCart(t, f.bob)
	second, err := svc.PlaceOrder(ctx, f.bob, shipping)
	require.NoError(t, err)
	assert.Equal(t, "ORDBBBBBBBBBB", second.OrderNumber)
	assert.Len(t, second.Items, 2)

	// The rejected attempt left no partial rows behind.
	var orders, items int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Equal(t, int64(2), orders)
	assert.Equal(t, int64(4), items)
	lines, err := f.carts.ListItems(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDuplicateOrderNumberIsTranslated(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig, WithNumberGenerator(sequence("ORDAAAAAAAAAA")))
	placed(t, f, svc)

	f.fillCart(t, f.bob)
	_, err := svc.placeOnce(context.Background(), f.bob.ID, "ORDAAAAAAAAAA", shipping)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
	lines, err := f.carts.ListItems(context.Background(), f.bob.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPlaceOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.service(paymentConfig, WithNumberGenerator(sequence("ORDAAAAAAAAAA")))

	f.fillCart(t, f.alice)
	_, err := svc.PlaceOrder(ctx, f.alice, shipping)
	require.NoError(t, err)

	f.fillCart(t, f.bob)
	_, err = svc.PlaceOrder(ctx, f.bob, shipping)
	require.Error(t, err)

	lines, err := f.carts.ListItems(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestRandomNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD[A-Z0-9]{10}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n, err := RandomNumber()
		require.NoError(t, err)
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	assert.Len(t, seen, 100)
}

func TestListAndGetScopedToOwner(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()

	f.fillCart(t, f.alice)
	older, err := svc.PlaceOrder(ctx, f.alice, shipping)
	require.NoError(t, err)
	f.fillCart(t, f.alice)
	newer, err := svc.PlaceOrder(ctx, f.alice, shipping)
	require.NoError(t, err)

	orders, err := svc.List(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	orders, err = svc.List(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = svc.Get(ctx, f.bob.ID, older.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func placed(t *testing.T, f *fixture, svc *Service) *models.Order {
	t.Helper()
	f.fillCart(t, f.alice)
	order, err := svc.PlaceOrder(context.Background(), f.alice, shipping)
	require.NoError(t, err)
	return order
}

func TestCreatePaymentIntent(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()
	order := placed(t, f, svc)

	intent, err := svc.CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_test_1", intent.OrderID)
	assert.Equal(t, int64(21000), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "rzp_test_key", intent.Key)
	assert.Equal(t, order.OrderNumber, f.provider.receipt)

	reloaded, err := svc.Get(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.RazorpayOrderID)
	assert.Equal(t, "order_test_1", *reloaded.RazorpayOrderID)
	assert.Equal(t, models.OrderStatusCreated, reloaded.Status)
}

func TestCreatePaymentIntentTouchesOnlyTheOrder(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()
	order := placed(t, f, svc)

	// Live price changes after checkout must not be overwritten by the preloaded snapshot.
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", f.serum.ID).Update("price", repotest.Price("120")).Error)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.alice.ID).Update("first_name", "Alicia").Error)

	_, err := svc.CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)

	var products, items, users int64
	require.NoError(t, f.db.Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&items).Error)
	require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(2), products)
	assert.Equal(t, int64(2), items)
	assert.Equal(t, int64(2), users)

	var serum models.Product
	require.NoError(t, f.db.First(&serum, f.serum.ID).Error)
	assert.True(t, serum.Price.Equal(repotest.Price("120")))
	var alice models.User
	require.NoError(t, f.db.First(&alice, f.alice.ID).Error)
	assert.Equal(t, "Alicia", alice.FirstName)
}

func TestCreatePaymentIntentErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	order := placed(t, f, f.service(paymentConfig))

	_, err := f.service(config.PaymentConfig{Currency: "INR"}).CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 500, apperr.StatusOf(err))

	svc := f.service(paymentConfig)
	_, err = svc.CreatePaymentIntent(ctx, f.bob.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	f.provider.err = errors.New("gateway timeout")
	_, err = svc.CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	require.Error(t, err)
	assert.Equal(t, 500, apperr.StatusOf(err))
	f.provider.err = nil

	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.OrderStatusCancelled).Error)
	_, err = svc.CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestVerifyPayment(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()
	order := placed(t, f, svc)
	intent, err := svc.CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)

	sig := payment.Sign(intent.OrderID, "pay_123", testSecret)
	require.NoError(t, svc.VerifyPayment(ctx, f.alice.ID, order.ID, "pay_123", sig))

	reloaded, err := svc.Get(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, reloaded.Status)
	require.NotNil(t, reloaded.RazorpayPaymentID)
	assert.Equal(t, "pay_123", *reloaded.RazorpayPaymentID)
	assert.Equal(t, sig, *reloaded.RazorpaySignature)

	sent := f.notifier.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, notify.KindOrderConfirmation, sent[0].Kind)
	assert.Equal(t, []string{"alice@example.com"}, sent[0].To)
	assert.Equal(t, notify.KindOrderAlert, sent[1].Kind)
	assert.True(t, sent[1].Operator)

	// Repeating the call leaves the order alone and does not notify again.
	require.NoError(t, svc.VerifyPayment(ctx, f.alice.ID, order.ID, "pay_123", sig))
	assert.Len(t, f.notifier.messages(), 2)

	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.OrderStatusShipped).Error)
	require.NoError(t, svc.VerifyPayment(ctx, f.alice.ID, order.ID, "pay_123", sig))
	reloaded, err = svc.Get(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, reloaded.Status)
}

func TestVerifyPaymentForgedSignature(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()
	order := placed(t, f, svc)
	intent, err := svc.CreatePaymentIntent(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)

	forged := []string{
		"deadbeef",
		payment.Sign(intent.OrderID, "pay_123", "not-the-secret"),
		payment.Sign(intent.OrderID, "pay_other", testSecret),
	}
	for _, sig := range forged {
		err := svc.VerifyPayment(ctx, f.alice.ID, order.ID, "pay_123", sig)
		assert.True(t, apperr.Is(err, apperr.KindPayment))
	}

	reloaded, err := svc.Get(ctx, f.alice.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCreated, reloaded.Status)
	assert.Nil(t, reloaded.RazorpayPaymentID)
	assert.Empty(t, f.notifier.messages())
}

func TestVerifyPaymentPreconditions(t *testing.T) {
	f := setup(t)
	svc := f.service(paymentConfig)
	ctx := context.Background()
	order := placed(t, f, svc)

	err := f.service(config.PaymentConfig{}).VerifyPayment(ctx, f.alice.ID, order.ID, "pay_1", "sig")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 500, apperr.StatusOf(err))

	err = svc.VerifyPayment(ctx, f.alice.ID, order.ID, "", " ")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"payment_id", "signature"}, appErr.Fields)

	err = svc.VerifyPayment(ctx, f.alice.ID, order.ID, "pay_1", "sig")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))

	err = svc.VerifyPayment(ctx, f.bob.ID, order.ID, "pay_1", "sig")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
