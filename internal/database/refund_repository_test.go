package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lockedBookingColumns = []string{"status", "customer_id", "price", "currency"}

func TestRefundToWallet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefundRepository(db)
	ctx := context.Background()

	bookingID := uuid.New()
	customerID := uuid.New()

	t.Run("Confirmed booking is refunded and cancelled", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, customer_id, price, currency FROM bookings WHERE id = \$1 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(lockedBookingColumns).
				AddRow("confirmed", customerID.String(), 995.0, "SAR"))
		mock.ExpectExec(`INSERT INTO wallets`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id FROM wallets WHERE customer_id = \$1 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
		mock.ExpectExec(`INSERT INTO wallet_transactions`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "refund", 500.0, "REFUND-"+bookingID.String(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO refund_audits`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 500.0, "hotel overbooked", "ops@example.com", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET status = \$1`).
			WithArgs("cancelled", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		audit := &models.RefundAudit{BookingID: bookingID, Amount: 500, Reason: "hotel overbooked", ApprovedBy: "ops@example.com"}
		require.NoError(t, repo.RefundToWallet(ctx, audit))
		assert.NotEqual(t, uuid.Nil, audit.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled booking is not refundable", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, customer_id, price, currency FROM bookings`).
			WillReturnRows(sqlmock.NewRows(lockedBookingColumns).
				AddRow("cancelled", customerID.String(), 995.0, "SAR"))
		mock.ExpectRollback()

		err := repo.RefundToWallet(ctx, &models.RefundAudit{BookingID: bookingID, Amount: 10, Reason: "again"})
		assert.ErrorIs(t, err, ErrBookingNotRefundable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refund larger than price", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, customer_id, price, currency FROM bookings`).
			WillReturnRows(sqlmock.NewRows(lockedBookingColumns).
				AddRow("confirmed", customerID.String(), 100.0, "SAR"))
		mock.ExpectRollback()

		err := repo.RefundToWallet(ctx, &models.RefundAudit{BookingID: bookingID, Amount: 150, Reason: "goodwill"})
		assert.ErrorIs(t, err, ErrRefundExceedsPrice)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown booking", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, customer_id, price, currency FROM bookings`).
			WillReturnRows(sqlmock.NewRows(lockedBookingColumns))
		mock.ExpectRollback()

		err := repo.RefundToWallet(ctx, &models.RefundAudit{BookingID: uuid.New(), Amount: 10, Reason: "x"})
		assert.ErrorIs(t, err, ErrBookingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
