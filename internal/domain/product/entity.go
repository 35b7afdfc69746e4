// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a feed product listed by a seller store
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	StoreID     uint           `gorm:"not null;index" json:"store_id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"` // Base price in IDR
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Store    Store           `gorm:"foreignKey:StoreID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"store"`
	Variants []WeightVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// WeightVariant represents a purchasable weight option of a product
// (feed is sold in fixed-weight bags, each with its own price)
type WeightVariant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	Label       string    `gorm:"not null;size:50" json:"label"` // e.g. "5 kg"
	WeightGrams int       `gorm:"not null" json:"weight_grams"`
	Price       int64     `gorm:"not null" json:"price"` // Unit price in IDR
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store represents a seller storefront
type Store struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerUserID uint           `gorm:"not null;uniqueIndex" json:"owner_user_id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Phone       string         `gorm:"size:20" json:"phone"`
	City        string         `gorm:"size:100" json:"city"`
	OriginID    string         `gorm:"size:20" json:"origin_id"` // Shipping provider location id
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string       { return "products" }
func (WeightVariant) TableName() string { return "product_weight_variants" }
func (Store) TableName() string         { return "stores" }
