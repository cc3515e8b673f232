package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/jmoiron/sqlx"
)

// RefundRepository cancels bookings with a refund to the customer's wallet
type RefundRepository struct {
	db DB
}

// NewRefundRepository creates a new refund repository
func NewRefundRepository(db DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// RefundToWallet credits the wallet, records the refund audit and cancels the
// booking in one transaction. Only confirmed bookings can be refunded.
func (r *RefundRepository) RefundToWallet(ctx context.Context, audit *models.RefundAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var booking struct {
			Status     models.BookingStatus `db:"status"`
			CustomerID uuid.UUID            `db:"customer_id"`
			Price      float64              `db:"price"`
			Currency   string               `db:"currency"`
		}
		err := tx.GetContext(ctx, &booking,
			`SELECT status, customer_id, price, currency FROM bookings WHERE id = $1 FOR UPDATE`, audit.BookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}
		if booking.Status != models.BookingStatusConfirmed {
			return ErrBookingNotRefundable
		}
		if audit.Amount > booking.Price {
			return ErrRefundExceedsPrice
		}

		walletID, err := lockWallet(ctx, tx, booking.CustomerID, booking.Currency)
		if err != nil {
			return err
		}

		bookingID := audit.BookingID
		if err := insertWalletTransaction(ctx, tx, &models.WalletTransaction{
			ID:        uuid.New(),
			WalletID:  walletID,
			Type:      models.WalletTransactionRefund,
			Amount:    audit.Amount,
			Reference: "REFUND-" + audit.BookingID.String(),
			BookingID: &bookingID,
			CreatedAt: audit.CreatedAt,
		}); err != nil {
			return err
		}

		auditQuery := `
			INSERT INTO refund_audits (id, booking_id, amount, reason, approved_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, auditQuery,
			audit.ID, audit.BookingID, audit.Amount, audit.Reason, audit.ApprovedBy, audit.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert refund audit: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.BookingStatusCancelled, audit.BookingID,
		); err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}
		return nil
	})
}
