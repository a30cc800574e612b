package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"-"`
}

func (Category) TableName() string {
	return "categories"
}

type Product struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"type:varchar(200);not null" json:"name"`
	Slug          string              `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
	Description   string              `gorm:"type:text" json:"description"`
	Price         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"discount_price"`
	CategoryID    uint                `gorm:"not null;index" json:"-"`
	Category      Category            `json:"category"`
	Image         string              `gorm:"type:varchar(255)" json:"image"`
	Images        StringList          `gorm:"type:text" json:"images"`
	Stock         int                 `gorm:"not null;default:0" json:"stock"`
	SkinType      string              `gorm:"type:varchar(20);index" json:"skin_type"`
	Rating        float64             `gorm:"default:0" json:"rating"`
	ReviewCount   int                 `gorm:"default:0" json:"review_count"`
	IsTrending    bool                `gorm:"default:false" json:"is_trending"`
	IsBestseller  bool                `gorm:"default:false" json:"is_bestseller"`
	IsNew         bool                `gorm:"default:false" json:"is_new"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (Product) TableName() string {
	return "products"
}

// StringList is stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("models: cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
