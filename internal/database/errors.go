package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrBookingNotFound is returned when a booking does not exist
	ErrBookingNotFound = errors.New("booking not found")
	// ErrDuplicateBooking is returned when the upstream booking reference is already stored
	ErrDuplicateBooking = errors.New("booking reference already exists")
	// ErrBookingNotRefundable is returned when a booking is not in a refundable state
	ErrBookingNotRefundable = errors.New("booking is not refundable")
	// ErrRefundExceedsPrice is returned when a refund is larger than the booking price
	ErrRefundExceedsPrice = errors.New("refund amount exceeds booking price")
	// ErrInsufficientBalance is returned when a wallet cannot cover a deduction
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// isUniqueViolation reports whether err is a postgres unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
