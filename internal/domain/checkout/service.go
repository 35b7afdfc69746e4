// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/cart"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"github.com/your-org/feedmarket-backend/internal/domain/product"
	"github.com/your-org/feedmarket-backend/internal/domain/shipping"
	"github.com/your-org/feedmarket-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Service drives the two-step checkout: quote first, then place the
// order against that quote while it is still fresh
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	logger      *logrus.Logger
	carts       *cart.Service
	addresses   *user.AddressService
	shipping    *shipping.Service
	orders      *order.Service
}

// NewService creates a new checkout service
func NewService(
	db *gorm.DB,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *logrus.Logger,
	carts *cart.Service,
	addresses *user.AddressService,
	shippingService *shipping.Service,
	orders *order.Service,
) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		logger:      logger,
		carts:       carts,
		addresses:   addresses,
		shipping:    shippingService,
		orders:      orders,
	}
}

// QuoteRequest selects cart items and a destination address. Setting
// cash_on_delivery restricts the quote to couriers offering COD on the
// route.
type QuoteRequest struct {
	SelectedItemIDs []uint `json:"selected_item_ids" binding:"required,min=1"`
	AddressID       uint   `json:"address_id"`
	CashOnDelivery  bool   `json:"cash_on_delivery"`
}

// QuoteSession is the Redis-persisted snapshot a quote produces. An
// order can only be placed against a live session whose cart contents
// have not changed since.
type QuoteSession struct {
	ID               string                `json:"id"`
	UserID           uint                  `json:"user_id"`
	StoreID          uint                  `json:"store_id"`
	SelectedItemIDs  []uint                `json:"selected_item_ids"`
	Address          order.ShippingAddress `json:"address"`
	Subtotal         int64                 `json:"subtotal"`
	TotalWeightGrams int                   `json:"total_weight_grams"`
	Quotes           []shipping.Quote      `json:"quotes"`
	CreatedAt        time.Time             `json:"created_at"`
	ExpiresAt        time.Time             `json:"expires_at"`
}

// QuoteResponse is the quote returned to the client
type QuoteResponse struct {
	QuoteID        string                `json:"quote_id"`
	Lines          []cart.LineSnapshot   `json:"lines"`
	DroppedItemIDs []uint                `json:"dropped_item_ids,omitempty"`
	Address        order.ShippingAddress `json:"address"`
	Subtotal       int64                 `json:"subtotal"`
	TaxAmount      int64                 `json:"tax_amount"`
	DiscountAmount int64                 `json:"discount_amount"`
	WeightGrams    int                   `json:"weight_grams"`
	ShippingRates  []shipping.Quote      `json:"shipping_rates"`
	ExpiresAt      time.Time             `json:"expires_at"`
}

// PlaceOrderRequest places an order against a previously issued quote
type PlaceOrderRequest struct {
	QuoteID        string `json:"quote_id" binding:"required"`
	Courier        string `json:"courier" binding:"required"`
	CourierService string `json:"courier_service" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	Notes          string `json:"notes"`
}

// CreateQuote materializes the selection, resolves the destination and
// fetches shipping rates, then freezes the lot into a session with a
// TTL. An empty rate list is a valid quote: no courier serves the
// route, and no order can be placed from it.
func (s *Service) CreateQuote(ctx context.Context, userID uint, req *QuoteRequest) (*QuoteResponse, error) {
	materialization, err := s.carts.Materialize(ctx, userID, req.SelectedItemIDs)
	if err != nil {
		return nil, err
	}

	address, err := s.resolveAddress(userID, req.AddressID)
	if err != nil {
		return nil, err
	}
	if err := s.addresses.ValidateForOrder(address); err != nil {
		return nil, err
	}

	originID, err := s.storeOrigin(ctx, materialization.StoreID)
	if err != nil {
		return nil, err
	}

	rates, err := s.shipping.GetRates(ctx, &shipping.RateRequest{
		OriginID:       originID,
		DestinationID:  address.LocationID,
		WeightGrams:    materialization.TotalWeightGrams,
		DeclaredValue:  materialization.Subtotal,
		CashOnDelivery: req.CashOnDelivery,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &QuoteSession{
		ID:               uuid.NewString(),
		UserID:           userID,
		StoreID:          materialization.StoreID,
		SelectedItemIDs:  req.SelectedItemIDs,
		Address:          shippingAddressFrom(address),
		Subtotal:         materialization.Subtotal,
		TotalWeightGrams: materialization.TotalWeightGrams,
		Quotes:           rates,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.config.Pricing.QuoteSessionTTL),
	}
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	totals := order.ComputeTotals(
		materialization.Subtotal, 0,
		s.config.Pricing.TaxRatePercent,
		s.config.Pricing.MemberDiscountPercent,
	)

	return &QuoteResponse{
		QuoteID:        session.ID,
		Lines:          materialization.Lines,
		DroppedItemIDs: materialization.DroppedItemIDs,
		Address:        session.Address,
		Subtotal:       materialization.Subtotal,
		TaxAmount:      totals.Tax,
		DiscountAmount: totals.Discount,
		WeightGrams:    materialization.TotalWeightGrams,
		ShippingRates:  rates,
		ExpiresAt:      session.ExpiresAt,
	}, nil
}

// PlaceOrder creates an order from a live quote session. The cart is
// re-materialized and compared against the session: any drift since the
// quote invalidates it with ErrStaleQuote rather than silently
// repricing.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, req *PlaceOrderRequest) (*order.Order, error) {
	session, err := s.loadSession(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, order.ErrStaleQuote
	}

	materialization, err := s.carts.Materialize(ctx, userID, session.SelectedItemIDs)
	if err != nil {
		return nil, err
	}
	if materialization.Subtotal != session.Subtotal ||
		materialization.TotalWeightGrams != session.TotalWeightGrams ||
		materialization.StoreID != session.StoreID {
		return nil, order.ErrStaleQuote
	}

	chosen, err := findQuote(session.Quotes, req.Courier, req.CourierService)
	if err != nil {
		return nil, err
	}

	var buyer user.User
	if err := s.db.WithContext(ctx).First(&buyer, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	created, err := s.orders.CreateOrder(ctx, userID, &order.CreateOrderRequest{
		IdempotencyKey:  req.IdempotencyKey,
		Email:           buyer.Email,
		Materialization: materialization,
		SelectedItemIDs: session.SelectedItemIDs,
		Address:         session.Address,
		Courier:         chosen.Courier,
		CourierService:  chosen.Service,
		EstimatedDays:   chosen.EstimatedDays,
		ShippingCost:    chosen.Cost,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}

	// The quote is spent; a retry with the same idempotency key still
	// returns the order even after this delete
	if err := s.redisClient.Del(ctx, s.quoteKey(session.ID)).Err(); err != nil {
		s.logger.WithError(err).WithField("quote_id", session.ID).
			Warn("Failed to delete spent quote session")
	}

	return created, nil
}

func (s *Service) resolveAddress(userID, addressID uint) (*user.Address, error) {
	if addressID == 0 {
		return s.addresses.ResolvePrimary(userID)
	}
	return s.addresses.GetAddress(userID, addressID)
}

// storeOrigin resolves the shipping origin for a store, falling back to
// the platform-wide origin when the store has none configured
func (s *Service) storeOrigin(ctx context.Context, storeID uint) (string, error) {
	var store product.Store
	if err := s.db.WithContext(ctx).First(&store, storeID).Error; err != nil {
		return "", fmt.Errorf("failed to load store: %w", err)
	}
	if store.OriginID != "" {
		return store.OriginID, nil
	}
	return s.config.Shipping.OriginID, nil
}

func findQuote(quotes []shipping.Quote, courier, service string) (*shipping.Quote, error) {
	for i := range quotes {
		if quotes[i].Courier == courier && quotes[i].Service == service {
			return &quotes[i], nil
		}
	}
	return nil, fmt.Errorf("shipping option %s/%s is not part of the quote", courier, service)
}

func shippingAddressFrom(a *user.Address) order.ShippingAddress {
	return order.ShippingAddress{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		Province:      a.Province,
		City:          a.City,
		District:      a.District,
		Subdistrict:   a.Subdistrict,
		PostalCode:    a.PostalCode,
		Detail:        a.Detail,
		LocationID:    a.LocationID,
	}
}

func (s *Service) quoteKey(id string) string {
	return fmt.Sprintf("checkout:quote:%s", id)
}

func (s *Service) saveSession(ctx context.Context, session *QuoteSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal quote session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if err := s.redisClient.Set(ctx, s.quoteKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store quote session: %w", err)
	}
	return nil
}

func (s *Service) loadSession(ctx context.Context, quoteID string) (*QuoteSession, error) {
	data, err := s.redisClient.Get(ctx, s.quoteKey(quoteID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, order.ErrStaleQuote
		}
		return nil, fmt.Errorf("failed to load quote session: %w", err)
	}

	var session QuoteSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode quote session: %w", err)
	}
	return &session, nil
}
