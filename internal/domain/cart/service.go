// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// CartItemResponse represents a cart item with product details
type CartItemResponse struct {
	ID           uint   `json:"id"`
	ProductID    uint   `json:"product_id"`
	VariantID    uint   `json:"variant_id"`
	ProductName  string `json:"product_name"`
	VariantLabel string `json:"variant_label"`
	StoreID      uint   `json:"store_id"`
	StoreName    string `json:"store_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	WeightGrams  int    `json:"weight_grams"`
	Subtotal     int64  `json:"subtotal"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	UserID uint               `json:"user_id"`
	Items  []CartItemResponse `json:"items"`
	Totals CartTotals         `json:"totals"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// GetCart retrieves the user's cart with product details
func (s *Service) GetCart(ctx context.Context, userID uint) (*CartResponse, error) {
	rows, err := s.loadRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]CartItemResponse, len(rows))
	totals := CartTotals{}
	for i, row := range rows {
		items[i] = CartItemResponse{
			ID:           row.Item.ID,
			ProductID:    row.Item.ProductID,
			VariantID:    row.Item.VariantID,
			ProductName:  row.ProductName,
			VariantLabel: row.VariantLabel,
			StoreID:      row.StoreID,
			StoreName:    row.StoreName,
			Quantity:     row.Item.Quantity,
			UnitPrice:    row.Item.UnitPrice,
			WeightGrams:  row.Item.WeightGrams,
			Subtotal:     row.Item.UnitPrice * int64(row.Item.Quantity),
		}
		totals.ItemCount++
		totals.TotalQuantity += row.Item.Quantity
		totals.SubTotal += items[i].Subtotal
		totals.WeightGrams += row.Item.WeightGrams * row.Item.Quantity
	}

	return &CartResponse{
		UserID: userID,
		Items:  items,
		Totals: totals,
	}, nil
}

// AddToCart adds a product weight variant to the cart, locking its
// current unit price and weight
func (s *Service) AddToCart(ctx context.Context, userID uint, req *AddToCartRequest) (*CartResponse, error) {
	var prod product.Product
	result := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", req.ProductID, true).First(&prod)
	if result.Error != nil {
		return nil, fmt.Errorf("product not found or inactive")
	}

	var variant product.WeightVariant
	result = s.db.WithContext(ctx).Where("id = ? AND product_id = ? AND is_active = ?",
		req.VariantID, req.ProductID, true).First(&variant)
	if result.Error != nil {
		return nil, fmt.Errorf("weight variant not found or inactive")
	}

	// Merge with an existing line for the same variant instead of
	// creating a duplicate row
	var existing CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND variant_id = ?", userID, req.ProductID, req.VariantID).
		First(&existing).Error
	if err == nil {
		existing.Quantity += req.Quantity
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
		return s.GetCart(ctx, userID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check cart: %w", err)
	}

	item := CartItem{
		UserID:      userID,
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Quantity:    req.Quantity,
		UnitPrice:   variant.Price,
		WeightGrams: variant.WeightGrams,
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

// UpdateItemQuantity updates the quantity of a cart item; zero removes it
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*CartResponse, error) {
	if quantity == 0 {
		if err := s.RemoveItem(ctx, userID, itemID); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, userID)
	}

	result := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", quantity)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem removes a cart item
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// ClearCart empties the user's cart. The cart record itself is never
// deleted, only its items.
func (s *Service) ClearCart(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ClearItems removes specific items from the cart, used after order
// creation so unselected items survive checkout
func (s *Service) ClearItems(ctx context.Context, userID uint, itemIDs []uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	return nil
}

// Materialize snapshots the selected cart items into immutable line
// snapshots with locked prices and weights. Selected ids missing from
// the live cart are dropped with a warning so a partially-stale
// selection still proceeds with the valid subset.
func (s *Service) Materialize(ctx context.Context, userID uint, selectedIDs []uint) (*Materialization, error) {
	rows, err := s.loadRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	materialization, err := snapshotSelection(rows, selectedIDs)
	if err != nil {
		return nil, err
	}

	if len(materialization.DroppedItemIDs) > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id":      userID,
			"dropped_ids":  materialization.DroppedItemIDs,
			"kept_lines":   len(materialization.Lines),
		}).Warn("Dropped stale cart item ids from checkout selection")
	}

	return materialization, nil
}

// snapshotRow pairs a cart item with the product details needed to
// build a line snapshot
type snapshotRow struct {
	Item         CartItem
	ProductName  string
	VariantLabel string
	StoreID      uint
	StoreName    string
	Active       bool
}

// loadRows fetches the user's cart items joined with product details
func (s *Service) loadRows(ctx context.Context, userID uint) ([]snapshotRow, error) {
	var items []CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}

	rows := make([]snapshotRow, 0, len(items))
	for _, item := range items {
		var prod product.Product
		if err := s.db.WithContext(ctx).Preload("Store").First(&prod, item.ProductID).Error; err != nil {
			// Product gone entirely; keep the row but mark inactive so
			// materialization drops it
			rows = append(rows, snapshotRow{Item: item, Active: false})
			continue
		}

		var variant product.WeightVariant
		variantLabel := ""
		if err := s.db.WithContext(ctx).First(&variant, item.VariantID).Error; err == nil {
			variantLabel = variant.Label
		}

		rows = append(rows, snapshotRow{
			Item:         item,
			ProductName:  prod.Name,
			VariantLabel: variantLabel,
			StoreID:      prod.StoreID,
			StoreName:    prod.Store.Name,
			Active:       prod.IsActive,
		})
	}

	return rows, nil
}

// snapshotSelection builds the materialization from live cart rows and
// the checkout selection
func snapshotSelection(rows []snapshotRow, selectedIDs []uint) (*Materialization, error) {
	selected := make(map[uint]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	materialization := &Materialization{}
	found := make(map[uint]bool, len(selectedIDs))

	for _, row := range rows {
		if !selected[row.Item.ID] {
			continue
		}
		found[row.Item.ID] = true

		if !row.Active {
			materialization.DroppedItemIDs = append(materialization.DroppedItemIDs, row.Item.ID)
			continue
		}

		if materialization.StoreID == 0 {
			materialization.StoreID = row.StoreID
		} else if materialization.StoreID != row.StoreID {
			return nil, ErrMixedStores
		}

		line := LineSnapshot{
			ProductID:    row.Item.ProductID,
			VariantID:    row.Item.VariantID,
			StoreID:      row.StoreID,
			Name:         row.ProductName,
			VariantLabel: row.VariantLabel,
			UnitPrice:    row.Item.UnitPrice,
			Quantity:     row.Item.Quantity,
			WeightGrams:  row.Item.WeightGrams,
			Subtotal:     row.Item.UnitPrice * int64(row.Item.Quantity),
		}
		materialization.Lines = append(materialization.Lines, line)
		materialization.Subtotal += line.Subtotal
		materialization.TotalWeightGrams += line.WeightGrams * line.Quantity
	}

	// Selected ids absent from the live cart are dropped, not fatal
	for _, id := range selectedIDs {
		if !found[id] {
			materialization.DroppedItemIDs = append(materialization.DroppedItemIDs, id)
		}
	}

	if len(materialization.Lines) == 0 {
		return nil, ErrEmptySelection
	}

	return materialization, nil
}
