package gateway

import (
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/shopspring/decimal"
)

type productView struct {
	models.Product
	DiscountPercentage int             `json:"discount_percentage"`
	FinalPrice         decimal.Decimal `json:"final_price"`
}

func newProductView(p models.Product) productView {
	if p.Images == nil {
		p.Images = models.StringList{}
	}
	return productView{
		Product:            p,
		DiscountPercentage: models.DiscountPercentage(p),
		FinalPrice:         models.FinalPrice(p),
	}
}

func newProductViews(products []models.Product) []productView {
	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = newProductView(p)
	}
	return out
}

type cartLineView struct {
	ID         uint            `json:"id"`
	Product    productView     `json:"product"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

func newCartLineView(l models.CartItem) cartLineView {
	return cartLineView{
		ID:         l.ID,
		Product:    newProductView(l.Product),
		Quantity:   l.Quantity,
		TotalPrice: models.LineTotal(l),
		CreatedAt:  l.CreatedAt,
	}
}

type orderItemView struct {
	ID       uint            `json:"id"`
	Product  productView     `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderView struct {
	models.Order
	Items []orderItemView `json:"items"`
}

func newOrderView(o models.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{ID: it.ID, Product: newProductView(it.Product), Quantity: it.Quantity, Price: it.Price}
	}
	return orderView{Order: o, Items: items}
}
