package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderNumber       string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"order_number"`
	UserID            uint            `gorm:"not null;index" json:"-"`
	User              User            `json:"-"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	FullName          string          `gorm:"type:varchar(200)" json:"full_name"`
	Email             string          `gorm:"type:varchar(254)" json:"email"`
	ShippingAddress   string          `gorm:"type:text;not null" json:"shipping_address"`
	City              string          `gorm:"type:varchar(100)" json:"city"`
	State             string          `gorm:"type:varchar(100)" json:"state"`
	Pincode           string          `gorm:"type:varchar(10)" json:"pincode"`
	Phone             string          `gorm:"type:varchar(20);not null" json:"phone"`
	Status            OrderStatus     `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`
	RazorpayOrderID   *string         `gorm:"type:varchar(100)" json:"-"`
	RazorpayPaymentID *string         `gorm:"type:varchar(100)" json:"-"`
	RazorpaySignature *string         `gorm:"type:varchar(255)" json:"-"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem freezes the unit price paid; it is never recomputed from Product.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"-"`
	ProductID uint            `gorm:"not null" json:"-"`
	Product   Product         `json:"product"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
