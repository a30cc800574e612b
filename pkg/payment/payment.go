// Package payment talks to the external payment provider.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

// Intent is the provider-side record authorizing collection of Amount.
type Intent struct {
	ID       string
	Amount   int64
	Currency string
}

type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*Intent, error)
	VerifySignature(intentID, paymentID, signature string) bool
}

// ToMinorUnits converts a two-decimal amount to the smallest currency unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Sign produces the signature the provider attaches to a captured payment.
func Sign(intentID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type Razorpay struct {
	client *razorpay.Client
	secret string
}

func NewRazorpay(cfg config.PaymentConfig) *Razorpay {
	return &Razorpay{
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		secret: cfg.KeySecret,
	}
}

func (r *Razorpay) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay create order: response has no id")
	}
	intent := &Intent{ID: id, Amount: amount, Currency: currency}
	switch v := body["amount"].(type) {
	case float64:
		intent.Amount = int64(v)
	case int64:
		intent.Amount = v
	}
	if c, ok := body["currency"].(string); ok && c != "" {
		intent.Currency = c
	}
	return intent, nil
}

func (r *Razorpay) VerifySignature(intentID, paymentID, signature string) bool {
	attrs := map[string]interface{}{
		"razorpay_order_id":   intentID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(attrs, signature, r.secret)
}
