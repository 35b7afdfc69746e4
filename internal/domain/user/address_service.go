// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/shipping"
	"gorm.io/gorm"
)

// LocationSearcher is the slice of the shipping service the address
// resolver needs for free-text normalization
type LocationSearcher interface {
	SearchLocations(ctx context.Context, query string) ([]shipping.Location, error)
}

// AddressService handles address business logic
type AddressService struct {
	db        *gorm.DB
	config    *config.Config
	locations LocationSearcher
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB, cfg *config.Config, locations LocationSearcher) *AddressService {
	return &AddressService{
		db:        db,
		config:    cfg,
		locations: locations,
	}
}

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	Label         string `json:"label"`
	RecipientName string `json:"recipient_name" binding:"required"`
	Phone         string `json:"phone"`
	Province      string `json:"province" binding:"required"`
	City          string `json:"city" binding:"required"`
	District      string `json:"district"`
	Subdistrict   string `json:"subdistrict"`
	PostalCode    string `json:"postal_code"`
	Detail        string `json:"detail" binding:"required"`
	LocationID    string `json:"location_id" binding:"required"`
	IsPrimary     bool   `json:"is_primary"`
}

// UpdateAddressRequest represents address update data
type UpdateAddressRequest struct {
	Label         *string `json:"label"`
	RecipientName *string `json:"recipient_name"`
	Phone         *string `json:"phone"`
	Province      *string `json:"province"`
	City          *string `json:"city"`
	District      *string `json:"district"`
	Subdistrict   *string `json:"subdistrict"`
	PostalCode    *string `json:"postal_code"`
	Detail        *string `json:"detail"`
	LocationID    *string `json:"location_id"`
	IsPrimary     *bool   `json:"is_primary"`
}

// GetUserAddresses retrieves all addresses for a user
func (s *AddressService) GetUserAddresses(userID uint) ([]Address, error) {
	var addresses []Address
	err := s.db.Where("user_id = ?", userID).
		Order("is_primary DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve addresses: %w", err)
	}

	return addresses, nil
}

// GetAddress retrieves a specific address for a user
func (s *AddressService) GetAddress(userID, addressID uint) (*Address, error) {
	var address Address
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).First(&address)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to retrieve address: %w", result.Error)
	}

	return &address, nil
}

// ResolvePrimary returns the user's primary address
func (s *AddressService) ResolvePrimary(userID uint) (*Address, error) {
	var address Address
	result := s.db.Where("user_id = ? AND is_primary = ?", userID, true).First(&address)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNoPrimaryAddress
		}
		return nil, fmt.Errorf("failed to retrieve primary address: %w", result.Error)
	}

	return &address, nil
}

// Normalize maps a free-text location string to a single provider
// location record. More than one match returns the candidates with
// ErrAmbiguousLocation so the caller can disambiguate.
func (s *AddressService) Normalize(ctx context.Context, freeform string) (*shipping.Location, []shipping.Location, error) {
	candidates, err := s.locations.SearchLocations(ctx, freeform)
	if err != nil {
		return nil, nil, fmt.Errorf("location lookup failed: %w", err)
	}

	switch len(candidates) {
	case 0:
		return nil, nil, ErrLocationNotFound
	case 1:
		return &candidates[0], nil, nil
	default:
		return nil, candidates, ErrAmbiguousLocation
	}
}

// CreateAddress creates a new address for a user
func (s *AddressService) CreateAddress(userID uint, req *CreateAddressRequest) (*Address, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Setting a new primary clears the previous one
	if req.IsPrimary {
		if err := s.unsetPrimaryAddress(tx, userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	address := Address{
		UserID:        userID,
		Label:         req.Label,
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Province:      req.Province,
		City:          req.City,
		District:      req.District,
		Subdistrict:   req.Subdistrict,
		PostalCode:    req.PostalCode,
		Detail:        req.Detail,
		LocationID:    req.LocationID,
		IsPrimary:     req.IsPrimary,
	}

	if err := tx.Create(&address).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &address, nil
}

// UpdateAddress updates an existing address
func (s *AddressService) UpdateAddress(userID, addressID uint, req *UpdateAddressRequest) (*Address, error) {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.IsPrimary != nil && *req.IsPrimary {
		if err := s.unsetPrimaryAddress(tx, userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	updates := make(map[string]interface{})

	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.RecipientName != nil {
		updates["recipient_name"] = *req.RecipientName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Province != nil {
		updates["province"] = *req.Province
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.District != nil {
		updates["district"] = *req.District
	}
	if req.Subdistrict != nil {
		updates["subdistrict"] = *req.Subdistrict
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.Detail != nil {
		updates["detail"] = *req.Detail
	}
	if req.LocationID != nil {
		updates["location_id"] = *req.LocationID
	}
	if req.IsPrimary != nil {
		updates["is_primary"] = *req.IsPrimary
	}

	if err := tx.Model(address).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetAddress(userID, addressID)
}

// DeleteAddress deletes an address
func (s *AddressService) DeleteAddress(userID, addressID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete address: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrAddressNotFound
	}

	return nil
}

// SetPrimaryAddress marks an address as the user's primary address
func (s *AddressService) SetPrimaryAddress(userID, addressID uint) error {
	address, err := s.GetAddress(userID, addressID)
	if err != nil {
		return err
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.unsetPrimaryAddress(tx, userID); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Model(address).Update("is_primary", true).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to set primary address: %w", err)
	}

	return tx.Commit().Error
}

// Private helper methods

// unsetPrimaryAddress removes the primary flag from the user's current
// primary address, keeping the at-most-one-primary invariant
func (s *AddressService) unsetPrimaryAddress(tx *gorm.DB, userID uint) error {
	return tx.Model(&Address{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}

// ValidateForOrder validates address completeness for order creation
func (s *AddressService) ValidateForOrder(address *Address) error {
	if address.RecipientName == "" {
		return fmt.Errorf("recipient name is required")
	}
	if address.Province == "" {
		return fmt.Errorf("province is required")
	}
	if address.City == "" {
		return fmt.Errorf("city is required")
	}
	if address.Detail == "" {
		return fmt.Errorf("address detail is required")
	}
	if !address.IsResolved() {
		return fmt.Errorf("address has no resolved location id")
	}

	return nil
}
