// internal/domain/cart/entity.go
package cart

import (
	"time"

	"gorm.io/gorm"
)

// CartItem represents a cart item for an authenticated user. Price and
// weight are locked at add-time; the live product may drift afterwards.
type CartItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	ProductID   uint           `gorm:"not null;index" json:"product_id"`
	VariantID   uint           `gorm:"not null;index" json:"variant_id"`
	Quantity    int            `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   int64          `gorm:"not null" json:"unit_price"`
	WeightGrams int            `gorm:"not null" json:"weight_grams"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// LineSnapshot is an immutable copy of a cart item taken at checkout.
// Once embedded in an order it is never re-fetched from the live
// product, so later price changes cannot affect an existing order.
type LineSnapshot struct {
	ProductID    uint   `json:"product_id"`
	VariantID    uint   `json:"variant_id"`
	StoreID      uint   `json:"store_id"`
	Name         string `json:"name"`
	VariantLabel string `json:"variant_label"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	WeightGrams  int    `json:"weight_grams"` // Per unit
	Subtotal     int64  `json:"subtotal"`     // UnitPrice * Quantity
}

// Materialization is the output of snapshotting a cart selection
type Materialization struct {
	StoreID          uint           `json:"store_id"`
	Lines            []LineSnapshot `json:"lines"`
	Subtotal         int64          `json:"subtotal"`
	TotalWeightGrams int            `json:"total_weight_grams"`
	DroppedItemIDs   []uint         `json:"dropped_item_ids,omitempty"`
}

// CartTotals represents calculated cart totals for display
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique items
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	SubTotal      int64 `json:"sub_total"`
	WeightGrams   int   `json:"weight_grams"`
}
