package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

type AddressController struct {
	addressService service.AddressService
}

func NewAddressController(addressService service.AddressService) *AddressController {
	return &AddressController{
		addressService: addressService,
	}
}

// AddressRequest is shared by create and update
type AddressRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Recipient     string `json:"recipient" binding:"required,max=100"`
	Phone         string `json:"phone" binding:"required,max=30"`
	ZipCode       string `json:"zip_code" binding:"max=10"`
	Address       string `json:"address" binding:"required"`
	DetailAddress string `json:"detail_address"`
	IsDefault     bool   `json:"is_default"`
}

func (r AddressRequest) toModel() *model.Address {
	return &model.Address{
		Name:          r.Name,
		Recipient:     r.Recipient,
		Phone:         r.Phone,
		ZipCode:       r.ZipCode,
		Address:       r.Address,
		DetailAddress: r.DetailAddress,
		IsDefault:     r.IsDefault,
	}
}

// ListAddresses returns user's addresses
// GET /api/v1/addresses
func (ctrl *AddressController) ListAddresses(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	addresses, err := ctrl.addressService.GetUserAddresses(userID)
	if err != nil {
		log.Error("Failed to fetch addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to fetch addresses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

// CreateAddress creates a new address
// POST /api/v1/addresses
func (ctrl *AddressController) CreateAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create address request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	address := req.toModel()
	if err := ctrl.addressService.CreateAddress(userID, address); err != nil {
		log.Error("Failed to create address", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to create address")
		return
	}

	log.Info("Address created", map[string]interface{}{
		"user_id":    userID,
		"address_id": address.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": "Address created",
		"address": address,
	})
}

// UpdateAddress replaces an address
// PUT /api/v1/addresses/:id
func (ctrl *AddressController) UpdateAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "address ID")
	if !ok {
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update address request", map[string]interface{}{
			"user_id":    userID,
			"address_id": id,
			"error":      err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.addressService.UpdateAddress(userID, id, req.toModel()); err != nil {
		respondAddressError(c, log, err, userID, id)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address updated",
	})
}

// DeleteAddress deletes an address
// DELETE /api/v1/addresses/:id
func (ctrl *AddressController) DeleteAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "address ID")
	if !ok {
		return
	}

	if err := ctrl.addressService.DeleteAddress(userID, id); err != nil {
		respondAddressError(c, log, err, userID, id)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address deleted",
	})
}

// SetDefaultAddress marks an address as the default
// PUT /api/v1/addresses/:id/default
func (ctrl *AddressController) SetDefaultAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "address ID")
	if !ok {
		return
	}

	if err := ctrl.addressService.SetDefaultAddress(userID, id); err != nil {
		respondAddressError(c, log, err, userID, id)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Default address updated",
	})
}

func respondAddressError(c *gin.Context, log *logger.Logger, err error, userID, addressID uint) {
	fields := map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	}
	switch {
	case errors.Is(err, service.ErrAddressNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Address not found")
	case errors.Is(err, service.ErrUnauthorizedAccess):
		log.Warn("Access to another user's address", fields)
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only manage your own addresses")
	default:
		log.Error("Failed to update address", err, fields)
		apperrors.InternalError(c, "")
	}
}
