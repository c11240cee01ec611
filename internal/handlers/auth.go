package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediconnect-server/internal/config"
	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/notify"
	"mediconnect-server/internal/utils"
)

// AuthHandler handles registration, email verification, login and
// profile requests.
type AuthHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer notify.EmailSender
	Logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, mailer notify.EmailSender, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Mailer: mailer, Logger: logger}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=patient provider"`
	Phone     string `json:"phoneNumber" binding:"omitempty,max=15"`
}

// Register handles user registration. New accounts start unverified; a
// verification email is sent best-effort and booking stays locked until
// the address is confirmed.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		PhoneNumber:       req.Phone,
		Role:              models.Role(req.Role),
		VerificationToken: uuid.New().String(),
	}

	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	// The email unique index is the authority on duplicates; two
	// concurrent registrations cannot both win it.
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.BadRequest(c, "User with this email already exists")
			return
		}
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	// Providers get an empty directory entry to fill in later.
	if user.Role == models.RoleProvider {
		profile := models.ProviderProfile{UserID: user.ID}
		if err := h.DB.Create(&profile).Error; err != nil {
			utils.InternalServerError(c, "Failed to create provider profile: "+err.Error())
			return
		}
	}

	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", h.Cfg.AppURL, user.VerificationToken)
	msg := notify.VerificationEmail(user.Email, user.FullName(), link)
	if err := h.Mailer.Send(c.Request.Context(), msg); err != nil {
		h.Logger.Error("failed to send verification email",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	utils.Created(c, "User registered successfully. Check your email to verify your address.", user.Sanitize())
}

// VerifyEmail confirms a user's email address from the emailed token.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.BadRequest(c, "Verification token is required")
		return
	}

	var user models.User
	if err := h.DB.Where("verification_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.BadRequest(c, "Invalid or expired verification token")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to verify email: "+err.Error())
		return
	}

	utils.Success(c, "Email verified successfully. You can now log in and book appointments.", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken string               `json:"accessToken"`
	User        models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, err := utils.GenerateAccessToken(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate token: "+err.Error())
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken: accessToken,
		User:        user.Sanitize(),
	})
}

// GetProfile returns the authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for profile updates.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phoneNumber" binding:"omitempty,max=15"`
}

// UpdateProfile updates the authenticated user's own profile fields.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Phone != "" {
		user.PhoneNumber = req.Phone
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
