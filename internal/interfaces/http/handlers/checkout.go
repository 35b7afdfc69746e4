// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/cart"
	"github.com/your-org/feedmarket-backend/internal/domain/checkout"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"github.com/your-org/feedmarket-backend/internal/domain/shipping"
	"github.com/your-org/feedmarket-backend/internal/domain/user"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	config          *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		config:          cfg,
	}
}

// CreateQuote handles POST /checkout/quotes
func (h *CheckoutHandler) CreateQuote(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req checkout.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	quote, err := h.checkoutService.CreateQuote(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrEmptySelection):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No valid items in the selection"})
		case errors.Is(err, cart.ErrMixedStores):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Selected items must belong to a single store"})
		case errors.Is(err, user.ErrNoPrimaryAddress), errors.Is(err, user.ErrAddressNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No usable shipping address"})
		case errors.Is(err, shipping.ErrProviderUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Shipping rates are temporarily unavailable"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout quote created successfully",
		"data":    quote,
	})
}

// PlaceOrder handles POST /orders
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.checkoutService.PlaceOrder(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrStaleQuote):
			c.JSON(http.StatusConflict, gin.H{
				"error": "The quote has expired or the cart has changed, request a new quote",
			})
		case errors.Is(err, cart.ErrEmptySelection):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No valid items in the selection"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    created,
	})
}
