// internal/interfaces/http/handlers/address.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/user"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/middleware"
)

// AddressHandler handles address book and location endpoints
type AddressHandler struct {
	addressService *user.AddressService
	config         *config.Config
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addressService *user.AddressService, cfg *config.Config) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		config:         cfg,
	}
}

// GetAddresses handles GET /addresses
func (h *AddressHandler) GetAddresses(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	addresses, err := h.addressService.GetUserAddresses(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve addresses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Addresses retrieved successfully",
		"data":    addresses,
	})
}

// CreateAddress handles POST /addresses
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req user.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	address, err := h.addressService.CreateAddress(userID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Address created successfully",
		"data":    address,
	})
}

// UpdateAddress handles PUT /addresses/:id
func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	addressID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address ID"})
		return
	}

	var req user.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	address, err := h.addressService.UpdateAddress(userID, uint(addressID), &req)
	if err != nil {
		if errors.Is(err, user.ErrAddressNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address updated successfully",
		"data":    address,
	})
}

// DeleteAddress handles DELETE /addresses/:id
func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	addressID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address ID"})
		return
	}

	if err := h.addressService.DeleteAddress(userID, uint(addressID)); err != nil {
		if errors.Is(err, user.ErrAddressNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address deleted successfully",
	})
}

// SetPrimaryAddress handles PUT /addresses/:id/primary
func (h *AddressHandler) SetPrimaryAddress(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	addressID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address ID"})
		return
	}

	if err := h.addressService.SetPrimaryAddress(userID, uint(addressID)); err != nil {
		if errors.Is(err, user.ErrAddressNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set primary address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Primary address updated successfully",
	})
}

// SearchLocations handles GET /locations?q=
// Free-text destination lookup against the shipping provider. An
// ambiguous query returns the candidate list for the client to pick
// from.
func (h *AddressHandler) SearchLocations(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	location, candidates, err := h.addressService.Normalize(c.Request.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrAmbiguousLocation):
			c.JSON(http.StatusOK, gin.H{
				"message": "Multiple locations match",
				"data": gin.H{
					"ambiguous":  true,
					"candidates": candidates,
				},
			})
		case errors.Is(err, user.ErrLocationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "No location matches the query"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Location lookup failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Location resolved",
		"data": gin.H{
			"ambiguous": false,
			"location":  location,
		},
	})
}
