// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents the user entity. Credentials live with the identity
// provider; this record only carries the profile fields the checkout
// flow needs as payment-customer metadata.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FirstName string         `gorm:"size:100" json:"first_name"`
	LastName  string         `gorm:"size:100" json:"last_name"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	IsAdmin   bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Addresses []Address `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"addresses,omitempty"`
}

// Address represents a user shipping address, normalized into the
// location hierarchy the shipping provider understands
type Address struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Label         string    `gorm:"size:50" json:"label"` // e.g. "Home", "Farm"
	RecipientName string    `gorm:"not null;size:100" json:"recipient_name"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Province      string    `gorm:"not null;size:100" json:"province"`
	City          string    `gorm:"not null;size:100" json:"city"`
	District      string    `gorm:"size:100" json:"district"`
	Subdistrict   string    `gorm:"size:100" json:"subdistrict"`
	PostalCode    string    `gorm:"size:10" json:"postal_code"`
	Detail        string    `gorm:"type:text" json:"detail"` // Street, house number, landmarks
	LocationID    string    `gorm:"size:20" json:"location_id"` // Shipping provider destination id
	IsPrimary     bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsResolved reports whether the address carries a normalized provider
// location id, which order creation requires
func (a *Address) IsResolved() bool {
	return a.LocationID != ""
}
