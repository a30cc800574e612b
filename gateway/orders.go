package gateway

import (
	"net/http"

	"github.com/example/storefront/pkg/order"
	"github.com/gin-gonic/gin"
)

type verifyPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.services.Orders.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	out := make([]orderView, len(orders))
	for i, o := range orders {
		out[i] = newOrderView(o)
	}
	c.JSON(http.StatusOK, out)
}

// createOrder godoc
// @Summary Place an order from the caller's cart
// @Tags orders
// @Param body body order.ShippingDetails true "shipping details"
// @Success 201 {object} orderView
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func (g *Gateway) createOrder(c *gin.Context) {
	var details order.ShippingDetails
	if err := bindJSON(c, &details); err != nil {
		g.respondError(c, err)
		return
	}
	placed, err := g.services.Orders.PlaceOrder(c.Request.Context(), *currentUser(c), details)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderView(*placed))
}

func (g *Gateway) getOrder(c *gin.Context) {
	id, err := parseID(c, "order")
	if err != nil {
		g.respondError(c, err)
		return
	}
	o, err := g.services.Orders.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(*o))
}

// createPayment godoc
// @Summary Create a payment intent for the order total
// @Tags orders
// @Param id path int true "order id"
// @Success 200 {object} order.PaymentIntent
// @Failure 500 {object} map[string]string "payment gateway not configured"
// @Router /orders/{id}/create_payment [post]
func (g *Gateway) createPayment(c *gin.Context) {
	id, err := parseID(c, "order")
	if err != nil {
		g.respondError(c, err)
		return
	}
	intent, err := g.services.Orders.CreatePaymentIntent(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

// verifyPayment godoc
// @Summary Verify the provider signature and mark the order processing
// @Tags orders
// @Param id path int true "order id"
// @Param body body verifyPaymentRequest true "payment id and signature"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /orders/{id}/verify_payment [post]
func (g *Gateway) verifyPayment(c *gin.Context) {
	id, err := parseID(c, "order")
	if err != nil {
		g.respondError(c, err)
		return
	}
	var req verifyPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.services.Orders.VerifyPayment(c.Request.Context(), currentUser(c).ID, id, req.PaymentID, req.Signature); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Payment verified"})
}
