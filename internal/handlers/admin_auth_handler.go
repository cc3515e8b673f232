package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/sirupsen/logrus"
)

// AdminAuthenticator verifies admin credentials
type AdminAuthenticator interface {
	Login(ctx context.Context, email, password string) (*models.AdminLoginResponse, error)
}

// AdminAuthHandler handles admin authentication HTTP requests
type AdminAuthHandler struct {
	adminAuthService AdminAuthenticator
	logger           *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(adminAuthService AdminAuthenticator, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		adminAuthService: adminAuthService,
		logger:           logger,
	}
}

// Login handles admin login requests
// @Summary Admin login
// @Description Authenticate admin user and return an access token
// @Tags Admin Auth
// @Accept json
// @Produce json
// @Param loginRequest body models.AdminLoginRequest true "Login credentials"
// @Success 200 {object} models.AdminLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/admin/auth/login [post]
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	response, err := h.adminAuthService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.logger.WithFields(logrus.Fields{
				"email": req.Email,
				"ip":    c.ClientIP(),
			}).Warn("Admin login failed")
			respondError(c, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		h.logger.WithError(err).Error("Admin login error")
		respondError(c, http.StatusInternalServerError, "internal_error", "Login is temporarily unavailable")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id": response.AdminUser.ID,
		"email":    response.AdminUser.Email,
	}).Info("Admin login successful")

	c.JSON(http.StatusOK, response)
}
