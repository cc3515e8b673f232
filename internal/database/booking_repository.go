package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/jmoiron/sqlx"
)

// BookingRepository handles finalized bookings and their customers
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, booking_reference, prebook_id, transaction_id, customer_id,
	hotel_id, hotel_name, checkin, checkout, guests, guest_name, email,
	price, currency, status, is_refundable, cancellation_deadline,
	raw_response, created_at, updated_at`

// CreateConfirmed resolves the customer by email and stores the booking in a
// single transaction. The customer row is created on first sight and reused
// afterwards; customer and booking are filled with their stored values.
func (r *BookingRepository) CreateConfirmed(ctx context.Context, customer *models.Customer, booking *models.Booking) error {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusConfirmed
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		customerQuery := `
			INSERT INTO customers (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
			RETURNING id, name, email, created_at, updated_at
		`
		if err := tx.GetContext(ctx, customer, customerQuery, customer.ID, customer.Name, customer.Email); err != nil {
			return fmt.Errorf("failed to resolve customer: %w", err)
		}

		booking.CustomerID = customer.ID

		bookingQuery := `
			INSERT INTO bookings (
				id, booking_reference, prebook_id, transaction_id, customer_id,
				hotel_id, hotel_name, checkin, checkout, guests, guest_name, email,
				price, currency, status, is_refundable, cancellation_deadline,
				raw_response, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17,
				$18, NOW(), NOW()
			)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, bookingQuery,
			booking.ID, booking.BookingReference, booking.PrebookID, booking.TransactionID, booking.CustomerID,
			booking.HotelID, booking.HotelName, booking.Checkin, booking.Checkout, booking.Guests, booking.GuestName, booking.Email,
			booking.Price, booking.Currency, booking.Status, booking.IsRefundable, booking.CancellationDeadline,
			booking.RawResponse,
		).Scan(&booking.CreatedAt, &booking.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateBooking
			}
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a booking by its local id
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// GetByReference retrieves a booking by the upstream booking id
func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = $1`
	if err := r.db.GetContext(ctx, &booking, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by reference: %w", err)
	}
	return &booking, nil
}

// ListByCustomer returns a customer's bookings, newest first
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to list customer bookings: %w", err)
	}
	return bookings, nil
}
