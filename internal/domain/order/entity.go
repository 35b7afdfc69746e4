// internal/domain/order/entity.go
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status represents the fulfillment state of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

// IsTerminal reports whether the payment state can no longer change
func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentStatusPaid || p == PaymentStatusFailed || p == PaymentStatusExpired
}

// Order is the central entity: an immutable priced snapshot of a
// checkout, plus two state machines (fulfillment and payment) advanced
// only by the reconciler and the owning store
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderCode     string        `gorm:"uniqueIndex;not null;size:50" json:"order_code"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	StoreID       uint          `gorm:"not null;index" json:"store_id"`
	Email         string        `gorm:"not null;size:255" json:"email"`
	Status        Status        `gorm:"not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending'" json:"payment_status"`

	// Financial information, computed once at creation (IDR)
	SubtotalAmount int64 `gorm:"not null" json:"subtotal_amount"`
	ShippingAmount int64 `gorm:"not null" json:"shipping_amount"`
	TaxAmount      int64 `gorm:"default:0" json:"tax_amount"`
	DiscountAmount int64 `gorm:"default:0" json:"discount_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	// Denormalized shipping address (a copy, not a live reference)
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Denormalized chosen shipping quote
	Courier              string `gorm:"size:50" json:"courier"`
	CourierService       string `gorm:"size:50" json:"courier_service"`
	CourierEstimatedDays string `gorm:"size:20" json:"courier_estimated_days"`
	TotalWeightGrams     int    `gorm:"not null" json:"total_weight_grams"`

	// Active payment session (at most one non-expired at a time)
	PaymentSessionID        string     `gorm:"size:100" json:"payment_session_id,omitempty"`
	PaymentRedirectURL      string     `gorm:"size:500" json:"payment_redirect_url,omitempty"`
	PaymentSessionExpiresAt *time.Time `json:"payment_session_expires_at,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`

	// Timestamps
	PaidAt      *time.Time     `json:"paid_at"`
	ProcessedAt *time.Time     `json:"processed_at"`
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []StatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a persisted line snapshot
type OrderItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	ProductID    uint      `gorm:"not null;index" json:"product_id"`
	VariantID    uint      `gorm:"index" json:"variant_id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	VariantLabel string    `gorm:"size:50" json:"variant_label"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	UnitPrice    int64     `gorm:"not null" json:"unit_price"`
	WeightGrams  int       `gorm:"not null" json:"weight_grams"`
	TotalPrice   int64     `gorm:"not null" json:"total_price"` // Quantity * UnitPrice
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusHistory tracks order state changes
type StatusHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Status    string    `gorm:"not null;size:30" json:"status"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedBy uint      `gorm:"index" json:"created_by"` // 0 for system/gateway transitions
	CreatedAt time.Time `json:"created_at"`
}

// ShippingAddress is the denormalized address embedded in an order
type ShippingAddress struct {
	RecipientName string `gorm:"size:100" json:"recipient_name"`
	Phone         string `gorm:"size:20" json:"phone"`
	Province      string `gorm:"size:100" json:"province"`
	City          string `gorm:"size:100" json:"city"`
	District      string `gorm:"size:100" json:"district"`
	Subdistrict   string `gorm:"size:100" json:"subdistrict"`
	PostalCode    string `gorm:"size:10" json:"postal_code"`
	Detail        string `gorm:"type:text" json:"detail"`
	LocationID    string `gorm:"size:20" json:"location_id"`
}

// TableName overrides
func (Order) TableName() string         { return "orders" }
func (OrderItem) TableName() string     { return "order_items" }
func (StatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderCode allocates a new externally-visible order code.
// Format: ORD-YYYYMMDD-XXXXXXXX
func GenerateOrderCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// CanBeCancelledBy reports whether the order can be cancelled. Owners
// may cancel only before processing starts; admins may also cancel a
// processing order.
func (o *Order) CanBeCancelledBy(isAdmin bool) bool {
	if o.Status == StatusPending {
		return true
	}
	return isAdmin && o.Status == StatusProcessing
}

// CanBeCompletedBy reports whether the seller's single-step completion
// is available to the actor. Only the owning seller or an admin may
// complete, and only a processing order can be completed.
func (o *Order) CanBeCompletedBy(ownsStore, isAdmin bool) bool {
	if !ownsStore && !isAdmin {
		return false
	}
	return o.Status == StatusProcessing
}

// validStatusTransitions is the forward-only fulfillment state table.
// processing -> delivered is the seller's single-step completion.
var validStatusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// IsValidStatusTransition reports whether a fulfillment transition is
// allowed by the state table
func IsValidStatusTransition(from, to Status) bool {
	for _, allowed := range validStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsValidPaymentTransition reports whether a payment transition is
// allowed. The only legal moves are pending -> paid/failed/expired;
// paid is terminal and authoritative.
func IsValidPaymentTransition(from, to PaymentStatus) bool {
	if from != PaymentStatusPending {
		return false
	}
	return to == PaymentStatusPaid || to == PaymentStatusFailed || to == PaymentStatusExpired
}
