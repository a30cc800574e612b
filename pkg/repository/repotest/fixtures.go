package repotest

import (
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func CreateUser(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "-"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func CreateCategory(t testing.TB, db *gorm.DB, slug string) models.Category {
	t.Helper()
	c := models.Category{Name: slug, Slug: slug}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create category %s: %v", slug, err)
	}
	return c
}

// CreateProduct inserts p, filling Name from Slug when empty.
func CreateProduct(t testing.TB, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.Name == "" {
		p.Name = p.Slug
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create product %s: %v", p.Slug, err)
	}
	return p
}

func Price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Discount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
