// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"github.com/your-org/feedmarket-backend/internal/domain/payment"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/middleware"
	"github.com/your-org/feedmarket-backend/internal/pkg/pdf"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	reconciler   *payment.Reconciler
	config       *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, pdfService *pdf.Service, reconciler *payment.Reconciler, cfg *config.Config) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		pdfService:   pdfService,
		reconciler:   reconciler,
		config:       cfg,
	}
}

// GetOrders handles GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	orders, err := h.orderService.GetOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    orders,
	})
}

// GetOrder handles GET /orders/:code. After ownership is established,
// a best-effort live status check runs so a missed webhook does not
// leave the view stale; the stored record stays authoritative when the
// gateway is unreachable.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	isAdmin := middleware.IsAdminFromContext(c)

	found, err := h.orderService.GetOrderByCode(c.Request.Context(), userID, c.Param("code"), isAdmin)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order"})
		return
	}

	if _, rerr := h.reconciler.Resolve(c.Request.Context(), found.OrderCode); rerr == nil {
		if refreshed, lerr := h.orderService.GetOrderByCode(c.Request.Context(), userID, found.OrderCode, isAdmin); lerr == nil {
			found = refreshed
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    found,
	})
}

// GetStoreOrders handles GET /store/orders, the seller's view of
// orders placed against their store
func (h *OrderHandler) GetStoreOrders(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	orders, err := h.orderService.GetSellerOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		if errors.Is(err, order.ErrNotStoreOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "No store is registered for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve store orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Store orders retrieved successfully",
		"data":    orders,
	})
}

// CancelOrderRequest carries the optional cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder handles PUT /orders/:code/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	isAdmin := middleware.IsAdminFromContext(c)

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	cancelled, err := h.orderService.CancelOrder(c.Request.Context(), userID, c.Param("code"), req.Reason, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, order.ErrNotCancellable), errors.Is(err, order.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Order can no longer be cancelled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    cancelled,
	})
}

// CompleteRequest carries the optional completion comment
type CompleteRequest struct {
	Comment string `json:"comment"`
}

// Complete handles PUT /orders/:code/complete, the seller's
// single-step processing -> delivered action for direct handovers.
// Only the owner of the order's store (or an admin) may complete.
func (h *OrderHandler) Complete(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	isAdmin := middleware.IsAdminFromContext(c)

	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	updated, err := h.orderService.CompleteOrder(c.Request.Context(), userID, c.Param("code"), req.Comment, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, order.ErrNotStoreOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the store owner can complete this order"})
		case errors.Is(err, order.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order completed successfully",
		"data":    updated,
	})
}

// GetInvoice handles GET /orders/:code/invoice
func (h *OrderHandler) GetInvoice(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	isAdmin := middleware.IsAdminFromContext(c)

	found, err := h.orderService.GetOrderByCode(c.Request.Context(), userID, c.Param("code"), isAdmin)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order"})
		return
	}

	if found.PaymentStatus != order.PaymentStatusPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "Invoice is only available for paid orders"})
		return
	}

	invoice, err := h.pdfService.GenerateInvoice(found)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate invoice"})
		return
	}

	filename := fmt.Sprintf("invoice-%s.pdf", found.OrderCode)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", invoice.Bytes())
}
