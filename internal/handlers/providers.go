package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/utils"
)

// ProviderHandler serves the provider directory.
type ProviderHandler struct {
	DB *gorm.DB
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(db *gorm.DB) *ProviderHandler {
	return &ProviderHandler{DB: db}
}

// ProviderResponse combines a provider's user record with their
// directory profile.
type ProviderResponse struct {
	models.UserSanitized
	Specialty     string `json:"specialty"`
	OfficeAddress string `json:"officeAddress"`
	Bio           string `json:"bio"`
}

func toProviderResponse(user *models.User) ProviderResponse {
	resp := ProviderResponse{UserSanitized: user.Sanitize()}
	if user.Profile != nil {
		resp.Specialty = user.Profile.Specialty
		resp.OfficeAddress = user.Profile.OfficeAddress
		resp.Bio = user.Profile.Bio
	}
	return resp
}

// GetProviders lists all providers with their directory profiles.
// Accessible to every authenticated user for booking.
func (h *ProviderHandler) GetProviders(c *gin.Context) {
	var providers []models.User
	if err := h.DB.Preload("Profile").Where("role = ?", models.RoleProvider).Find(&providers).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch providers: "+err.Error())
		return
	}

	response := make([]ProviderResponse, len(providers))
	for i := range providers {
		response[i] = toProviderResponse(&providers[i])
	}

	utils.Success(c, "Providers fetched successfully", response)
}

// GetProviderByID returns a single provider directory entry.
func (h *ProviderHandler) GetProviderByID(c *gin.Context) {
	id := c.Param("id")

	var provider models.User
	err := h.DB.Preload("Profile").Where("id = ? AND role = ?", id, models.RoleProvider).First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Provider not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Provider fetched successfully", toProviderResponse(&provider))
}

// UpdateProviderProfileRequest represents the request body for a
// provider editing their own directory entry.
type UpdateProviderProfileRequest struct {
	Specialty     string `json:"specialty" binding:"omitempty,max=100"`
	OfficeAddress string `json:"officeAddress" binding:"omitempty,max=255"`
	Bio           string `json:"bio"`
}

// UpdateProviderProfile lets a provider edit their own directory entry.
func (h *ProviderHandler) UpdateProviderProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProviderProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var profile models.ProviderProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Provider profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Specialty != "" {
		profile.Specialty = req.Specialty
	}
	if req.OfficeAddress != "" {
		profile.OfficeAddress = req.OfficeAddress
	}
	if req.Bio != "" {
		profile.Bio = req.Bio
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to update provider profile: "+err.Error())
		return
	}

	utils.Success(c, "Provider profile updated successfully", profile)
}
