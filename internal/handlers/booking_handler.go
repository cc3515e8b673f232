package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/hotelbridge/liteapi-booking/pkg/validator"
	"github.com/sirupsen/logrus"
)

// Prebooker holds an offer with the upstream
type Prebooker interface {
	Prebook(ctx context.Context, req models.PrebookRequest) (*models.PrebookResult, error)
}

// BookingFinalizer confirms prebooked stays and reads stored bookings
type BookingFinalizer interface {
	Finalize(ctx context.Context, req models.FinalizeRequest) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
}

// BookingHandler handles the prebook and confirmation flow
type BookingHandler struct {
	prebook   Prebooker
	bookings  BookingFinalizer
	validator *validator.RequestValidator
	logger    *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(prebook Prebooker, bookings BookingFinalizer, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		prebook:   prebook,
		bookings:  bookings,
		validator: validator.NewRequestValidator(),
		logger:    logger,
	}
}

// Prebook handles POST /api/v1/bookings/prebook
// @Summary Prebook an offer
// @Description Holds the offer and returns the payment session. An expired offer is refreshed once when search_context is sent.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param prebook body models.PrebookRequest true "Offer to hold"
// @Success 200 {object} models.PrebookResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Offer expired"
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/bookings/prebook [post]
func (h *BookingHandler) Prebook(c *gin.Context) {
	var req models.PrebookRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	result, err := h.prebook.Prebook(c.Request.Context(), req)
	if err != nil {
		h.respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Confirm handles POST /api/v1/bookings/confirm
// @Summary Confirm a booking
// @Description Commits a prebooked stay after payment and stores the booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param confirm body models.FinalizeRequest true "Prebook and transaction ids"
// @Success 201 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/bookings/confirm [post]
func (h *BookingHandler) Confirm(c *gin.Context) {
	var req models.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	booking, err := h.bookings.Finalize(c.Request.Context(), req)
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Request validation failed",
				Fields:  verr.Fields,
			})
			return
		}
		h.respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking handles GET /api/v1/bookings/:reference
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.GetBookingByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "Booking not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load booking")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to retrieve booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) respondBookingError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrMissingOfferID) {
		respondError(c, http.StatusBadRequest, "invalid_request", "Offer ID is missing")
		return
	}

	var expired *services.OfferExpiredError
	if errors.As(err, &expired) {
		respondError(c, http.StatusConflict, "offer_expired", expired.Error())
		return
	}

	var bookingErr *services.BookingError
	if errors.As(err, &bookingErr) {
		h.logger.WithFields(logrus.Fields{
			"stage": bookingErr.Stage,
			"error": err.Error(),
		}).Error("Booking flow failed")
		respondError(c, http.StatusBadGateway, "booking_error", "The booking could not be completed. Please try again.")
		return
	}

	h.logger.WithError(err).Error("Unexpected booking failure")
	respondError(c, http.StatusInternalServerError, "internal_error", "Internal server error")
}
