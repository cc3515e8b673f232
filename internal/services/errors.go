package services

import (
	"errors"
	"fmt"

	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
)

var (
	// ErrHotelNotFound is returned when a hotel is unknown locally and upstream
	ErrHotelNotFound = errors.New("hotel not found")
	// ErrCityNotFound is returned when a city id does not exist
	ErrCityNotFound = errors.New("city not found")
	// ErrCustomerNotFound is returned when a customer id does not exist
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrInvalidCredentials is returned on a failed admin login
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMissingOfferID is returned when a prebook request carries a blank offer id
	ErrMissingOfferID = errors.New("offer id is missing")

	ErrBookingNotFound      = database.ErrBookingNotFound
	ErrBookingNotRefundable = database.ErrBookingNotRefundable
	ErrRefundExceedsPrice   = database.ErrRefundExceedsPrice
	ErrInsufficientBalance  = database.ErrInsufficientBalance
)

// OfferExpiredError is returned when an offer expired and could not be
// replaced with a fresh one. The guest has to search again.
type OfferExpiredError struct {
	OfferID string
	Cause   error
}

func (e *OfferExpiredError) Error() string {
	return "offer has expired, please search again for current prices"
}

func (e *OfferExpiredError) Unwrap() error {
	return e.Cause
}

// BookingError is a generic prebook or finalize failure
type BookingError struct {
	Stage string // prebook, book, persist
	Cause error
}

func (e *BookingError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("booking error (%s)", e.Stage)
	}
	return fmt.Sprintf("booking error (%s): %v", e.Stage, e.Cause)
}

func (e *BookingError) Unwrap() error {
	return e.Cause
}

// isUpstreamConfigError reports whether err means the upstream connection is not configured
func isUpstreamConfigError(err error) bool {
	var cfgErr *liteapi.ConfigurationError
	return errors.As(err, &cfgErr)
}
