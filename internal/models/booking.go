package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Customer is a guest identity, unique by email
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Booking is the durable record of a finalized hotel booking
type Booking struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	BookingReference     string        `json:"booking_reference" db:"booking_reference"`
	PrebookID            string        `json:"prebook_id" db:"prebook_id"`
	TransactionID        string        `json:"transaction_id" db:"transaction_id"`
	CustomerID           uuid.UUID     `json:"customer_id" db:"customer_id"`
	HotelID              *string       `json:"hotel_id,omitempty" db:"hotel_id"`
	HotelName            string        `json:"hotel_name" db:"hotel_name"`
	Checkin              *time.Time    `json:"checkin,omitempty" db:"checkin"`
	Checkout             *time.Time    `json:"checkout,omitempty" db:"checkout"`
	Guests               int           `json:"guests" db:"guests"`
	GuestName            string        `json:"guest_name" db:"guest_name"`
	Email                string        `json:"email" db:"email"`
	Price                float64       `json:"price" db:"price"`
	Currency             string        `json:"currency" db:"currency"`
	Status               BookingStatus `json:"status" db:"status"`
	IsRefundable         bool          `json:"is_refundable" db:"is_refundable"`
	CancellationDeadline *string       `json:"cancellation_deadline,omitempty" db:"cancellation_deadline"`
	RawResponse          RawJSON       `json:"raw_response,omitempty" db:"raw_response"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// GuestInfo is the holder identity sent with the final booking call
type GuestInfo struct {
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// WithDefaults fills empty fields with the anonymous guest identity
func (g GuestInfo) WithDefaults() GuestInfo {
	if strings.TrimSpace(g.FirstName) == "" {
		g.FirstName = "Guest"
	}
	if strings.TrimSpace(g.LastName) == "" {
		g.LastName = "User"
	}
	if strings.TrimSpace(g.Email) == "" {
		g.Email = "guest@example.com"
	}
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	return g
}

// FullName returns "first last"
func (g GuestInfo) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// BookingMeta carries what the caller knows about the stay from the prebook step
type BookingMeta struct {
	HotelID              string `json:"hotel_id"`
	HotelName            string `json:"hotel_name"`
	Checkin              string `json:"checkin" validate:"omitempty,stay_date"`
	Checkout             string `json:"checkout" validate:"omitempty,stay_date"`
	Guests               int    `json:"guests" validate:"omitempty,min=1,max=10"`
	Price                Amount `json:"price"`
	Currency             string `json:"currency"`
	IsRefundable         bool   `json:"is_refundable"`
	CancellationDeadline string `json:"cancellation_deadline"`
}

// FinalizeRequest represents the confirmation call after payment succeeded
type FinalizeRequest struct {
	PrebookID     string       `json:"prebook_id" validate:"required"`
	TransactionID string       `json:"transaction_id" validate:"required"`
	Guest         GuestInfo    `json:"guest"`
	Meta          *BookingMeta `json:"booking_meta,omitempty" validate:"omitempty"`
}
