package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/middleware"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/hotelbridge/liteapi-booking/pkg/validator"
	"github.com/sirupsen/logrus"
)

// ReportReader produces back-office reports
type ReportReader interface {
	Dashboard(ctx context.Context) (*models.DashboardKPIs, error)
	AbuseReport(ctx context.Context, window time.Duration, limit int) ([]models.AbuseReportRow, error)
}

// WalletManager reads and moves wallet balances
type WalletManager interface {
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Wallet, error)
	Transactions(ctx context.Context, customerID uuid.UUID, limit int) ([]models.WalletTransaction, error)
	TopUp(ctx context.Context, customerID uuid.UUID, amount float64, reference string) (*models.Wallet, error)
	Refund(ctx context.Context, bookingID uuid.UUID, amount float64, reason, approvedBy string) (*models.RefundAudit, error)
}

// SettingsManager reads and updates runtime LiteAPI credentials
type SettingsManager interface {
	GetLiteAPISettings(ctx context.Context) (*models.LiteAPISettings, error)
	UpdateLiteAPISettings(ctx context.Context, req models.UpdateLiteAPISettingsRequest, updatedBy string) (*models.LiteAPISettings, error)
}

// Purger reclaims expired data
type Purger interface {
	Purge(ctx context.Context) (*services.PurgeReport, error)
}

// AuditReader lists upstream audit records
type AuditReader interface {
	ListRecent(ctx context.Context, result string, limit int) ([]models.AuditLog, error)
}

// AdminHandler handles back-office requests
type AdminHandler struct {
	reports     ReportReader
	wallets     WalletManager
	settings    SettingsManager
	maintenance Purger
	audit       AuditReader
	validator   *validator.RequestValidator
	logger      *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	reports ReportReader,
	wallets WalletManager,
	settings SettingsManager,
	maintenance Purger,
	audit AuditReader,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		reports:     reports,
		wallets:     wallets,
		settings:    settings,
		maintenance: maintenance,
		audit:       audit,
		validator:   validator.NewRequestValidator(),
		logger:      logger,
	}
}

// ============================================================================
// REPORTS
// ============================================================================

// Dashboard handles GET /api/v1/admin/dashboard
// @Summary Dashboard KPIs
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.DashboardKPIs
// @Router /api/v1/admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	kpis, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build dashboard")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, kpis)
}

// AbuseReport handles GET /api/v1/admin/abuse-report?hours&limit
func (h *AdminHandler) AbuseReport(c *gin.Context) {
	hours := queryInt(c, "hours", 24, 24*30)
	limit := queryInt(c, "limit", 50, 500)

	rows, err := h.reports.AbuseReport(c.Request.Context(), time.Duration(hours)*time.Hour, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build abuse report")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to build abuse report")
		return
	}
	if rows == nil {
		rows = []models.AbuseReportRow{}
	}

	c.JSON(http.StatusOK, gin.H{
		"window_hours": hours,
		"rows":         rows,
		"count":        len(rows),
	})
}

// AuditLogs handles GET /api/v1/admin/audit-logs?result&limit
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	logs, err := h.audit.ListRecent(c.Request.Context(), c.Query("result"), queryInt(c, "limit", 100, 1000))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list audit logs")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to retrieve audit logs")
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// ============================================================================
// WALLETS & REFUNDS
// ============================================================================

// RefundBooking handles POST /api/v1/admin/bookings/:id/refund
// @Summary Refund a booking to the customer's wallet
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking id"
// @Param refund body models.RefundRequest true "Refund"
// @Success 200 {object} models.RefundAudit
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/admin/bookings/{id}/refund [post]
func (h *AdminHandler) RefundBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid booking id")
		return
	}

	var req models.RefundRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	adminCtx, _ := middleware.GetAdminContext(c)
	audit, err := h.wallets.Refund(c.Request.Context(), bookingID, req.Amount, req.Reason, adminCtx.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			respondError(c, http.StatusNotFound, "not_found", "Booking not found")
		case errors.Is(err, services.ErrBookingNotRefundable):
			respondError(c, http.StatusConflict, "not_refundable", "Only confirmed bookings can be refunded")
		case errors.Is(err, services.ErrRefundExceedsPrice):
			respondError(c, http.StatusBadRequest, "refund_exceeds_price", "Refund amount exceeds the booking price")
		default:
			h.logger.WithFields(logrus.Fields{
				"booking_id": bookingID.String(),
				"error":      err.Error(),
			}).Error("Refund failed")
			respondError(c, http.StatusInternalServerError, "internal_error", "Refund failed")
		}
		return
	}

	c.JSON(http.StatusOK, audit)
}

// GetWallet handles GET /api/v1/admin/wallets/:customer_id
func (h *AdminHandler) GetWallet(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customer_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid customer id")
		return
	}

	ctx := c.Request.Context()
	wallet, err := h.wallets.GetOrCreate(ctx, customerID)
	if err != nil {
		h.walletError(c, customerID, err)
		return
	}
	txns, err := h.wallets.Transactions(ctx, customerID, queryInt(c, "limit", 50, 500))
	if err != nil {
		h.walletError(c, customerID, err)
		return
	}
	if txns == nil {
		txns = []models.WalletTransaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":       wallet,
		"transactions": txns,
	})
}

// TopUpWallet handles POST /api/v1/admin/wallets/:customer_id/topup
func (h *AdminHandler) TopUpWallet(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customer_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid customer id")
		return
	}

	var req models.TopUpRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	wallet, err := h.wallets.TopUp(c.Request.Context(), customerID, req.Amount, req.Reference)
	if err != nil {
		h.walletError(c, customerID, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

func (h *AdminHandler) walletError(c *gin.Context, customerID uuid.UUID, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Customer not found")
	case errors.Is(err, services.ErrInsufficientBalance):
		respondError(c, http.StatusConflict, "insufficient_balance", "Insufficient wallet balance")
	default:
		h.logger.WithFields(logrus.Fields{
			"customer_id": customerID.String(),
			"error":       err.Error(),
		}).Error("Wallet operation failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "Wallet operation failed")
	}
}

// ============================================================================
// SETTINGS & MAINTENANCE
// ============================================================================

// GetLiteAPISettings handles GET /api/v1/admin/settings/liteapi
func (h *AdminHandler) GetLiteAPISettings(c *gin.Context) {
	settings, err := h.settings.GetLiteAPISettings(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to read LiteAPI settings")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to read settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateLiteAPISettings handles PUT /api/v1/admin/settings/liteapi
func (h *AdminHandler) UpdateLiteAPISettings(c *gin.Context) {
	var req models.UpdateLiteAPISettingsRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	adminCtx, _ := middleware.GetAdminContext(c)
	settings, err := h.settings.UpdateLiteAPISettings(c.Request.Context(), req, adminCtx.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to update LiteAPI settings")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to update settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Purge handles POST /api/v1/admin/maintenance/purge
func (h *AdminHandler) Purge(c *gin.Context) {
	report, err := h.maintenance.Purge(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Maintenance purge failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "Purge failed")
		return
	}
	c.JSON(http.StatusOK, report)
}
