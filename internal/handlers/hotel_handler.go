package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/hotelbridge/liteapi-booking/pkg/validator"
	"github.com/sirupsen/logrus"
)

// HotelSearcher is the search surface used by HotelHandler
type HotelSearcher interface {
	SearchHotels(ctx context.Context, req models.SearchRequest) *models.SearchResult
	HotelDetails(ctx context.Context, liteID, language string, stay *models.StayQuery) (*models.HotelDetails, error)
	ListCities(ctx context.Context) ([]models.City, error)
	CityMinRates(ctx context.Context, cityID int64, stay models.StayQuery) ([]models.CityMinRate, error)
}

// HotelHandler handles hotel search and hotel detail requests
type HotelHandler struct {
	service   HotelSearcher
	validator *validator.RequestValidator
	logger    *logrus.Logger
}

// NewHotelHandler creates a new hotel handler
func NewHotelHandler(service HotelSearcher, logger *logrus.Logger) *HotelHandler {
	return &HotelHandler{
		service:   service,
		validator: validator.NewRequestValidator(),
		logger:    logger,
	}
}

// SearchHotels handles POST /api/v1/hotels/search
// @Summary Search hotels
// @Description Search hotels by city or free text. Upstream failures degrade to stale or empty results.
// @Tags Hotels
// @Accept json
// @Produce json
// @Param search body models.SearchRequest true "Search parameters"
// @Success 200 {object} models.SearchResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/hotels/search [post]
func (h *HotelHandler) SearchHotels(c *gin.Context) {
	var req models.SearchRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	if err := validator.ValidateStay(req.Checkin, req.Checkout); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	result := h.service.SearchHotels(c.Request.Context(), req)

	h.logger.WithFields(logrus.Fields{
		"search_type": req.SearchType,
		"value":       req.Value,
		"source":      result.Source,
		"count":       len(result.Hotels),
	}).Info("Hotel search completed")

	c.JSON(http.StatusOK, result)
}

// GetHotel handles GET /api/v1/hotels/:hotel_id
// @Summary Hotel details
// @Description Local metadata merged with upstream static data. Rooms are attached when checkin and checkout are given.
// @Tags Hotels
// @Produce json
// @Param hotel_id path string true "LiteAPI hotel id"
// @Param language query string false "Language code"
// @Param checkin query string false "YYYY-MM-DD"
// @Param checkout query string false "YYYY-MM-DD"
// @Param guests query int false "Adults" default(2)
// @Success 200 {object} models.HotelDetails
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/hotels/{hotel_id} [get]
func (h *HotelHandler) GetHotel(c *gin.Context) {
	hotelID := strings.TrimSpace(c.Param("hotel_id"))
	if hotelID == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "hotel_id is required")
		return
	}

	var stay *models.StayQuery
	if c.Query("checkin") != "" || c.Query("checkout") != "" {
		q, ok := h.stayQuery(c)
		if !ok {
			return
		}
		stay = &q
	}

	details, err := h.service.HotelDetails(c.Request.Context(), hotelID, c.Query("language"), stay)
	if err != nil {
		if errors.Is(err, services.ErrHotelNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "Hotel not found")
			return
		}
		h.logger.WithFields(logrus.Fields{
			"hotel_id": hotelID,
			"error":    err.Error(),
		}).Error("Failed to load hotel details")
		respondError(c, http.StatusBadGateway, "upstream_error", "Hotel details are temporarily unavailable")
		return
	}

	c.JSON(http.StatusOK, details)
}

// ListCities handles GET /api/v1/cities
func (h *HotelHandler) ListCities(c *gin.Context) {
	cities, err := h.service.ListCities(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cities")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to retrieve cities")
		return
	}
	if cities == nil {
		cities = []models.City{}
	}

	c.JSON(http.StatusOK, gin.H{
		"cities": cities,
		"count":  len(cities),
	})
}

// CityMinRates handles GET /api/v1/cities/:city_id/min-rates
func (h *HotelHandler) CityMinRates(c *gin.Context) {
	cityID, err := strconv.ParseInt(c.Param("city_id"), 10, 64)
	if err != nil || cityID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid city id")
		return
	}

	stay, ok := h.stayQuery(c)
	if !ok {
		return
	}

	rates, err := h.service.CityMinRates(c.Request.Context(), cityID, stay)
	if err != nil {
		if errors.Is(err, services.ErrCityNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "City not found")
			return
		}
		h.logger.WithFields(logrus.Fields{
			"city_id": cityID,
			"error":   err.Error(),
		}).Error("Failed to load city min rates")
		respondError(c, http.StatusBadGateway, "upstream_error", "Rates are temporarily unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rates": rates,
		"count": len(rates),
	})
}

func (h *HotelHandler) stayQuery(c *gin.Context) (models.StayQuery, bool) {
	var q models.StayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid query parameters")
		return q, false
	}
	if !validate(c, h.validator, &q) {
		return q, false
	}
	if err := validator.ValidateStay(q.Checkin, q.Checkout); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return q, false
	}
	return q, true
}
