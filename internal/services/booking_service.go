package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/events"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/hotelbridge/liteapi-booking/pkg/validator"
	"github.com/sirupsen/logrus"
)

// BookClient is the part of the LiteAPI client used to commit a booking
type BookClient interface {
	Book(ctx context.Context, req liteapi.BookRequest, bookingBaseURL string) (*liteapi.BookResponse, error)
}

// BookingStore persists confirmed bookings
type BookingStore interface {
	CreateConfirmed(ctx context.Context, customer *models.Customer, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error)
}

// EventPublisher emits booking events
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, evt events.BookingConfirmed) error
}

// BookingMetrics counts finalized bookings by status
type BookingMetrics interface {
	IncBookings(status string)
}

// BookingService finalizes prebooked stays and reads stored bookings
type BookingService struct {
	client         BookClient
	bookings       BookingStore
	publisher      EventPublisher
	metrics        BookingMetrics
	validator      *validator.RequestValidator
	bookingBaseURL string
	currency       string
	clock          clock.Clock
	logger         *logrus.Logger
}

// NewBookingService creates a new booking service. metrics may be nil.
func NewBookingService(
	client BookClient,
	bookings BookingStore,
	publisher EventPublisher,
	metrics BookingMetrics,
	bookingBaseURL string,
	currency string,
	clk clock.Clock,
	logger *logrus.Logger,
) *BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &BookingService{
		client:         client,
		bookings:       bookings,
		publisher:      publisher,
		metrics:        metrics,
		validator:      validator.NewRequestValidator(),
		bookingBaseURL: bookingBaseURL,
		currency:       currency,
		clock:          clk,
		logger:         logger,
	}
}

// ============================================================================
// FINALIZE
// ============================================================================

// Finalize commits a prebooked stay with the upstream and stores the confirmed
// booking. Upstream and storage failures are returned as *BookingError; input
// problems as *validator.ValidationError.
func (s *BookingService) Finalize(ctx context.Context, req models.FinalizeRequest) (*models.Booking, error) {
	req.Guest = req.Guest.WithDefaults()
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	meta := models.BookingMeta{}
	if req.Meta != nil {
		meta = *req.Meta
	}

	// 1. Commit with the upstream
	bookReq := liteapi.BookRequest{
		PrebookID: req.PrebookID,
		Payment: liteapi.BookPayment{
			Method:        "TRANSACTION_ID",
			TransactionID: req.TransactionID,
		},
		Holder: liteapi.BookHolder{
			FirstName: req.Guest.FirstName,
			LastName:  req.Guest.LastName,
			Email:     req.Guest.Email,
		},
		Guests: []liteapi.BookGuest{{
			OccupancyNumber: 1,
			FirstName:       req.Guest.FirstName,
			LastName:        req.Guest.LastName,
			Email:           req.Guest.Email,
		}},
		ClientReference: "REF-" + s.clock.Now().Format("200601021504"),
	}

	resp, err := s.client.Book(ctx, bookReq, s.bookingBaseURL)
	if err != nil {
		s.countBooking(string(models.BookingStatusFailed))
		s.logger.WithFields(logrus.Fields{
			"prebook_id": req.PrebookID,
			"error":      err.Error(),
		}).Error("Booking call failed")
		return nil, &BookingError{Stage: "book", Cause: err}
	}
	if err := checkBookResponse(resp); err != nil {
		s.countBooking(string(models.BookingStatusFailed))
		s.logger.WithFields(logrus.Fields{
			"prebook_id": req.PrebookID,
			"error":      err.Error(),
		}).Error("Booking rejected by upstream")
		return nil, &BookingError{Stage: "book", Cause: err}
	}

	// 2. Store customer and booking together
	customer := &models.Customer{
		Name:  req.Guest.FullName(),
		Email: req.Guest.Email,
	}
	booking := s.buildBooking(req, meta, resp)

	if err := s.bookings.CreateConfirmed(ctx, customer, booking); err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_reference": booking.BookingReference,
			"prebook_id":        req.PrebookID,
			"error":             err.Error(),
		}).Error("Failed to store confirmed booking")
		return nil, &BookingError{Stage: "persist", Cause: err}
	}

	// 3. Notify
	s.countBooking(string(models.BookingStatusConfirmed))
	if err := s.publisher.PublishBookingConfirmed(ctx, events.NewBookingConfirmed(booking)); err != nil {
		s.logger.WithFields(logrus.Fields{
			"booking_reference": booking.BookingReference,
			"error":             err.Error(),
		}).Warn("Failed to publish booking event")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID.String(),
		"booking_reference": booking.BookingReference,
		"customer_id":       booking.CustomerID.String(),
		"price":             booking.Price,
	}).Info("Booking confirmed")

	return booking, nil
}

// checkBookResponse rejects responses without a booking id or with a failed status
func checkBookResponse(resp *liteapi.BookResponse) error {
	if resp == nil {
		return errors.New("empty booking response")
	}
	if strings.EqualFold(resp.Status, "failed") {
		if len(resp.Error) > 0 {
			return fmt.Errorf("booking failed: %s", string(resp.Error))
		}
		return errors.New("booking failed")
	}
	if resp.BookingID == "" {
		if len(resp.Error) > 0 {
			return fmt.Errorf("booking response has no bookingId: %s", string(resp.Error))
		}
		return errors.New("booking response has no bookingId")
	}
	return nil
}

func (s *BookingService) buildBooking(req models.FinalizeRequest, meta models.BookingMeta, resp *liteapi.BookResponse) *models.Booking {
	booking := &models.Booking{
		BookingReference: resp.BookingID,
		PrebookID:        req.PrebookID,
		TransactionID:    req.TransactionID,
		HotelName:        firstNonEmpty(resp.HotelName, meta.HotelName),
		Guests:           meta.Guests,
		GuestName:        req.Guest.FullName(),
		Email:            req.Guest.Email,
		Price:            resp.Price.Amount,
		Currency:         firstNonEmpty(resp.Price.Currency, resp.Currency, meta.Currency, s.currency),
		Status:           models.BookingStatusConfirmed,
		IsRefundable:     meta.IsRefundable || resp.RefundableTag == "REF",
		RawResponse:      models.RawJSON(resp.Raw),
	}
	if booking.Guests <= 0 {
		booking.Guests = 2
	}
	if booking.Price <= 0 {
		booking.Price = meta.Price.Float()
	}
	if hotelID := firstNonEmpty(resp.HotelID, meta.HotelID); hotelID != "" {
		booking.HotelID = &hotelID
	}
	if deadline := firstNonEmpty(resp.CancellationDeadline, meta.CancellationDeadline); deadline != "" {
		booking.CancellationDeadline = &deadline
	}
	booking.Checkin = parseStayDate(firstNonEmpty(resp.Checkin, meta.Checkin))
	booking.Checkout = parseStayDate(firstNonEmpty(resp.Checkout, meta.Checkout))
	return booking
}

func (s *BookingService) countBooking(status string) {
	if s.metrics != nil {
		s.metrics.IncBookings(status)
	}
}

// ============================================================================
// LOOKUPS
// ============================================================================

// GetBooking returns a booking by id
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// GetBookingByReference returns a booking by its upstream reference
func (s *BookingService) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.bookings.GetByReference(ctx, strings.TrimSpace(reference))
}

// ListCustomerBookings returns a customer's bookings, newest first
func (s *BookingService) ListCustomerBookings(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByCustomer(ctx, customerID)
}

func parseStayDate(value string) *time.Time {
	if len(value) < len(validator.DateLayout) {
		return nil
	}
	t, err := time.Parse(validator.DateLayout, value[:len(validator.DateLayout)])
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
