package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/internal/middleware"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/seinetours/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AdminAuthAPI is the admin authentication the handler needs
type AdminAuthAPI interface {
	Register(ctx context.Context, req *models.AdminRegisterRequest, createdBy *uuid.UUID) (*models.AdminUser, error)
	Login(ctx context.Context, req *models.AdminLoginRequest, client models.ClientInfo) (*models.AdminLoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AdminLoginResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, adminID uuid.UUID) (*models.AdminUser, error)
}

// AdminAuthHandler handles admin authentication HTTP requests
type AdminAuthHandler struct {
	adminAuthService AdminAuthAPI
	logger           *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(adminAuthService AdminAuthAPI, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		adminAuthService: adminAuthService,
		logger:           logger,
	}
}

// Register handles POST /api/admin/register
// @Summary Register an admin
// @Description Open while no admin exists; afterwards requires an admin bearer token
// @Tags Admin Auth
// @Accept json
// @Produce json
// @Param request body models.AdminRegisterRequest true "Account"
// @Success 201 {object} models.AdminUser
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/admin/register [post]
func (h *AdminAuthHandler) Register(c *gin.Context) {
	var req models.AdminRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var createdBy *uuid.UUID
	if admin, ok := middleware.GetAdminContext(c); ok {
		if !admin.HasRole("admin") {
			RespondError(c, h.logger, models.ErrRegistrationClosed)
			return
		}
		createdBy = &admin.AdminID
	}

	created, err := h.adminAuthService.Register(c.Request.Context(), &req, createdBy)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": created})
}

// Login handles admin login requests
// @Summary Admin login
// @Description Authenticate admin user and return access and refresh tokens
// @Tags Admin Auth
// @Accept json
// @Produce json
// @Param loginRequest body models.AdminLoginRequest true "Login credentials"
// @Success 200 {object} models.AdminLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/admin/login [post]
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	client := utils.ClientInfoFromRequest(c)
	response, err := h.adminAuthService.Login(c.Request.Context(), &req, client)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"email": req.Email,
			"ip":    client.IPAddress,
			"error": err.Error(),
		}).Warn("Admin login failed")
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RefreshToken handles POST /api/admin/refresh
func (h *AdminAuthHandler) RefreshToken(c *gin.Context) {
	var req models.AdminRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.adminAuthService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Logout handles POST /api/admin/logout
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	var req models.AdminRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.adminAuthService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// GetProfile retrieves the current admin's profile
func (h *AdminAuthHandler) GetProfile(c *gin.Context) {
	admin, ok := middleware.GetAdminContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Code: "MISSING_ADMIN_CONTEXT"})
		return
	}

	profile, err := h.adminAuthService.Profile(c.Request.Context(), admin.AdminID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": profile})
}
