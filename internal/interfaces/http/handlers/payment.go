// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/payment"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment session and reconciliation endpoints
// for both orders and appointments
type PaymentHandler struct {
	sessions   *payment.SessionManager
	reconciler *payment.Reconciler
	config     *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(sessions *payment.SessionManager, reconciler *payment.Reconciler, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		sessions:   sessions,
		reconciler: reconciler,
		config:     cfg,
	}
}

// CreateSessionRequest confirms the amount the client expects to pay
type CreateSessionRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// CreateSession handles POST /orders/:code/payment and
// POST /appointments/:code/payment. Re-requesting while a session is
// live returns the same session. Only the payable's owner may request
// one.
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	payable, err := h.sessions.CreateSession(c.Request.Context(), c.Param("code"), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPayableNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.Is(err, payment.ErrAmountMismatch):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Payment amount does not match the total"})
		case errors.Is(err, payment.ErrAlreadyPaid):
			c.JSON(http.StatusConflict, gin.H{"error": "Already paid"})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway is temporarily unavailable"})
		case errors.Is(err, payment.ErrGatewayRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway rejected the request"})
		default:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment session ready",
		"data":    payable,
	})
}

// Refresh handles POST /orders/:code/refresh and the appointment
// equivalent. With wait=true the gateway is polled until
// the payment resolves or the poll budget runs out; the payable may
// legitimately still be pending afterwards. Only the owner may refresh.
func (h *PaymentHandler) Refresh(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	ctx := c.Request.Context()
	code := c.Param("code")

	var payable *payment.Payable
	var err error
	if c.Query("wait") == "true" {
		payable, err = h.reconciler.PollUntilResolvedFor(ctx, code, userID)
	} else {
		payable, err = h.reconciler.ResolveFor(ctx, code, userID)
	}
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPayableNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.Is(err, payment.ErrNoActiveSession):
			c.JSON(http.StatusConflict, gin.H{"error": "No payment session to refresh"})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway is temporarily unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh payment status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status refreshed",
		"data":    payable,
	})
}

// Return handles GET /payments/return, the customer's redirect back
// from the hosted payment page. The status in the query string is
// advisory only; the gateway is queried for the real one.
func (h *PaymentHandler) Return(c *gin.Context) {
	code := c.Query("order_id")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing order_id parameter"})
		return
	}

	payable, err := h.reconciler.HandleReturn(c.Request.Context(), code, c.Query("transaction_status"))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrPayableNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		case errors.Is(err, payment.ErrNoActiveSession):
			c.JSON(http.StatusConflict, gin.H{"error": "No payment session for this code"})
		case errors.Is(err, payment.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway is temporarily unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status resolved",
		"data":    payable,
	})
}

// Webhook handles POST /webhooks/payment, the gateway's
// server-to-server notification. Always returns 200 on processed
// notifications so the gateway stops retrying.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var notification payment.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification payload"})
		return
	}

	payable, err := h.reconciler.HandleNotification(c.Request.Context(), &notification)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		case errors.Is(err, payment.ErrPayableNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown order"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notification"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification processed",
		"data": gin.H{
			"code":           payable.Code,
			"payment_status": payable.PaymentStatus,
		},
	})
}
