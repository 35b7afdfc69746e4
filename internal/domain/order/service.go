// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/cart"
	"github.com/your-org/feedmarket-backend/internal/domain/product"
	"gorm.io/gorm"
)

// idempotencyKeyTTL bounds how long a checkout idempotency key maps to
// its order. Retries after this window create a fresh order.
const idempotencyKeyTTL = 24 * time.Hour

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
	carts  *cart.Service
	keys   KeyStore
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, carts *cart.Service, keys KeyStore) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
		carts:  carts,
		keys:   keys,
	}
}

// CreateOrderRequest carries everything already resolved by checkout:
// the materialized selection, the destination address copy and the
// chosen shipping quote
type CreateOrderRequest struct {
	IdempotencyKey  string
	Email           string
	Materialization *cart.Materialization
	SelectedItemIDs []uint
	Address         ShippingAddress
	Courier         string
	CourierService  string
	EstimatedDays   string
	ShippingCost    int64
	Notes           string
}

// OrderListResponse represents a paginated order list
type OrderListResponse struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// CreateOrder creates an order from a materialized checkout. The
// idempotency key makes retries safe: a second call with the same key
// returns the order created by the first, never a duplicate.
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if req.Materialization == nil || len(req.Materialization.Lines) == 0 {
		return nil, cart.ErrEmptySelection
	}

	orderCode := GenerateOrderCode()
	order, fresh, err := createWithIdempotency(ctx, s.keys, s.logger, req.IdempotencyKey, orderCode, userID,
		s.getByCode,
		func() (*Order, error) { return s.createOrder(ctx, userID, orderCode, req) },
	)
	if err != nil {
		return nil, err
	}

	if fresh {
		// Remove only the purchased items; unselected lines stay in the cart
		if err := s.carts.ClearItems(ctx, userID, req.SelectedItemIDs); err != nil {
			s.logger.WithError(err).WithField("order_code", orderCode).
				Warn("Failed to clear purchased cart items")
		}
	}

	return order, nil
}

// createWithIdempotency wraps create in the reserve/replay protocol.
// The winner of the key reservation creates the order; every later call
// with the same key gets the winner's order back instead of a
// duplicate. A failed create frees the key so the same checkout can be
// retried.
func createWithIdempotency(
	ctx context.Context,
	keys KeyStore,
	logger *logrus.Logger,
	key, orderCode string,
	userID uint,
	find func(ctx context.Context, code string) (*Order, error),
	create func() (*Order, error),
) (*Order, bool, error) {
	winner, reserved, err := keys.Reserve(ctx, key, orderCode, idempotencyKeyTTL)
	if err != nil {
		return nil, false, err
	}
	if !reserved {
		// A previous attempt with this key already created the order
		existing, err := find(ctx, winner)
		if err != nil {
			return nil, false, fmt.Errorf("idempotent replay failed for %s: %w", winner, err)
		}
		if existing.UserID != userID {
			return nil, false, ErrOrderNotFound
		}
		return existing, false, nil
	}

	created, err := create()
	if err != nil {
		if releaseErr := keys.Release(ctx, key); releaseErr != nil {
			logger.WithError(releaseErr).WithField("order_code", orderCode).
				Warn("Failed to release idempotency key after create failure")
		}
		return nil, false, err
	}
	return created, true, nil
}

func (s *Service) createOrder(ctx context.Context, userID uint, orderCode string, req *CreateOrderRequest) (*Order, error) {
	totals := ComputeTotals(
		req.Materialization.Subtotal,
		req.ShippingCost,
		s.config.Pricing.TaxRatePercent,
		s.config.Pricing.MemberDiscountPercent,
	)

	order := &Order{
		OrderCode:            orderCode,
		UserID:               userID,
		StoreID:              req.Materialization.StoreID,
		Email:                req.Email,
		Status:               StatusPending,
		PaymentStatus:        PaymentStatusPending,
		SubtotalAmount:       totals.Subtotal,
		ShippingAmount:       totals.Shipping,
		TaxAmount:            totals.Tax,
		DiscountAmount:       totals.Discount,
		TotalAmount:          totals.Total,
		ShippingAddress:      req.Address,
		Courier:              req.Courier,
		CourierService:       req.CourierService,
		CourierEstimatedDays: req.EstimatedDays,
		TotalWeightGrams:     req.Materialization.TotalWeightGrams,
		Notes:                req.Notes,
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, line := range req.Materialization.Lines {
		item := OrderItem{
			OrderID:      order.ID,
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			Name:         line.Name,
			VariantLabel: line.VariantLabel,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			WeightGrams:  line.WeightGrams,
			TotalPrice:   line.Subtotal,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	history := StatusHistory{
		OrderID:   order.ID,
		Status:    string(StatusPending),
		Comment:   "Order created",
		CreatedBy: userID,
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_code": order.OrderCode,
		"user_id":    userID,
		"store_id":   order.StoreID,
		"total":      order.TotalAmount,
	}).Info("Order created")

	return order, nil
}

// GetOrders retrieves the user's orders, newest first
func (s *Service) GetOrders(ctx context.Context, userID uint, page, limit int) (*OrderListResponse, error) {
	return s.listOrders(ctx, s.db.WithContext(ctx).Where("user_id = ?", userID), page, limit)
}

// GetStoreOrders retrieves orders placed against a seller's store
func (s *Service) GetStoreOrders(ctx context.Context, storeID uint, page, limit int) (*OrderListResponse, error) {
	return s.listOrders(ctx, s.db.WithContext(ctx).Where("store_id = ?", storeID), page, limit)
}

// GetSellerOrders retrieves the incoming orders for the store owned by
// the user
func (s *Service) GetSellerOrders(ctx context.Context, userID uint, page, limit int) (*OrderListResponse, error) {
	store, err := s.storeOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GetStoreOrders(ctx, store.ID, page, limit)
}

func (s *Service) listOrders(ctx context.Context, query *gorm.DB, page, limit int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := query.Model(&Order{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (page - 1) * limit
	if err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &OrderListResponse{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// GetOrderByCode retrieves an order visible to the given user. Admins
// see any order.
func (s *Service) GetOrderByCode(ctx context.Context, userID uint, orderCode string, isAdmin bool) (*Order, error) {
	order, err := s.getByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) getByCode(ctx context.Context, orderCode string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_code = ?", orderCode).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// CancelOrder cancels an order on behalf of its owner or an admin.
// Owners may cancel only while pending; admins may also cancel a
// processing order. Shipped and delivered orders are never cancellable.
func (s *Service) CancelOrder(ctx context.Context, userID uint, orderCode, reason string, isAdmin bool) (*Order, error) {
	order, err := s.GetOrderByCode(ctx, userID, orderCode, isAdmin)
	if err != nil {
		return nil, err
	}

	if !order.CanBeCancelledBy(isAdmin) {
		return nil, ErrNotCancellable
	}

	comment := "Order cancelled"
	if reason != "" {
		comment = fmt.Sprintf("Order cancelled: %s", reason)
	}
	return s.transition(ctx, order, StatusCancelled, userID, comment)
}

// CompleteOrder applies the seller's single-step handover: the order
// goes straight from processing to delivered. Only the owner of the
// order's store, or an admin, may complete it.
func (s *Service) CompleteOrder(ctx context.Context, userID uint, orderCode, comment string, isAdmin bool) (*Order, error) {
	order, err := s.getByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	ownsStore := false
	if !isAdmin {
		ownsStore, err = s.userOwnsStore(ctx, userID, order.StoreID)
		if err != nil {
			return nil, err
		}
	}
	if !order.CanBeCompletedBy(ownsStore, isAdmin) {
		if !ownsStore && !isAdmin {
			return nil, ErrNotStoreOwner
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, StatusDelivered)
	}

	if comment == "" {
		comment = "Order completed by seller"
	}
	return s.transition(ctx, order, StatusDelivered, userID, comment)
}

// MarkProcessing moves a freshly paid order into processing. Called by
// the payment reconciler, never by users.
func (s *Service) MarkProcessing(ctx context.Context, orderCode string) (*Order, error) {
	order, err := s.getByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, StatusProcessing, 0, "Payment confirmed, processing started")
}

func (s *Service) userOwnsStore(ctx context.Context, userID, storeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&product.Store{}).
		Where("id = ? AND owner_user_id = ?", storeID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check store ownership: %w", err)
	}
	return count > 0, nil
}

func (s *Service) storeOwnedBy(ctx context.Context, userID uint) (*product.Store, error) {
	var store product.Store
	err := s.db.WithContext(ctx).Where("owner_user_id = ?", userID).First(&store).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotStoreOwner
		}
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	return &store, nil
}

// transition applies a fulfillment state change atomically with its
// history record and timestamp
func (s *Service) transition(ctx context.Context, order *Order, to Status, actorID uint, comment string) (*Order, error) {
	if !IsValidStatusTransition(order.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": to}
	switch to {
	case StatusProcessing:
		updates["processed_at"] = now
	case StatusShipped:
		updates["shipped_at"] = now
	case StatusDelivered:
		updates["delivered_at"] = now
	case StatusCancelled:
		updates["cancelled_at"] = now
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Guard against a concurrent transition having won the race
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, order.OrderCode)
	}

	history := StatusHistory{
		OrderID:   order.ID,
		Status:    string(to),
		Comment:   comment,
		CreatedBy: actorID,
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record status history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_code": order.OrderCode,
		"from":       order.Status,
		"to":         to,
		"actor_id":   actorID,
	}).Info("Order status changed")

	order.Status = to
	order.StatusHistory = append(order.StatusHistory, history)
	switch to {
	case StatusProcessing:
		order.ProcessedAt = &now
	case StatusShipped:
		order.ShippedAt = &now
	case StatusDelivered:
		order.DeliveredAt = &now
	case StatusCancelled:
		order.CancelledAt = &now
	}
	return order, nil
}
