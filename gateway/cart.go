package gateway

import (
	"net/http"

	"github.com/example/storefront/pkg/apperr"
	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  *int `json:"quantity"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (g *Gateway) listCart(c *gin.Context) {
	lines, err := g.services.Cart.ListItems(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	out := make([]cartLineView, len(lines))
	for i, l := range lines {
		out[i] = newCartLineView(l)
	}
	c.JSON(http.StatusOK, out)
}

// addToCart godoc
// @Summary Add a product to the cart, merging with an existing line
// @Tags cart
// @Param body body addToCartRequest true "product and quantity (default 1)"
// @Success 201 {object} cartLineView
// @Failure 404 {object} map[string]string
// @Router /cart [post]
func (g *Gateway) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}
	if req.ProductID == 0 {
		g.respondError(c, apperr.Validation("product_id is required", "product_id"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	line, err := g.services.Cart.AddItem(c.Request.Context(), currentUser(c).ID, req.ProductID, quantity)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCartLineView(*line))
}

func (g *Gateway) cartTotal(c *gin.Context) {
	total, err := g.services.Cart.Total(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (g *Gateway) updateCartLine(c *gin.Context) {
	id, err := parseID(c, "cart item")
	if err != nil {
		g.respondError(c, err)
		return
	}
	var req quantityRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}
	if req.Quantity == nil {
		g.respondError(c, apperr.Validation("quantity is required", "quantity"))
		return
	}

	line, err := g.services.Cart.UpdateQuantity(c.Request.Context(), currentUser(c).ID, id, *req.Quantity)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartLineView(*line))
}

func (g *Gateway) removeCartLine(c *gin.Context) {
	id, err := parseID(c, "cart item")
	if err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.services.Cart.RemoveItem(c.Request.Context(), currentUser(c).ID, id); err != nil {
		g.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
