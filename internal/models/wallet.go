package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletTransactionType categorizes wallet movements
type WalletTransactionType string

const (
	WalletTransactionTopUp   WalletTransactionType = "topup"
	WalletTransactionBooking WalletTransactionType = "booking"
	WalletTransactionRefund  WalletTransactionType = "refund"
)

// Wallet is a customer's prepaid balance. Balance is the sum of its transactions.
type Wallet struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	Currency   string    `json:"currency" db:"currency"`
	Balance    float64   `json:"balance" db:"balance"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// WalletTransaction is one ledger line. Top-ups and refunds are positive,
// booking payments negative.
type WalletTransaction struct {
	ID        uuid.UUID             `json:"id" db:"id"`
	WalletID  uuid.UUID             `json:"wallet_id" db:"wallet_id"`
	Type      WalletTransactionType `json:"type" db:"type"`
	Amount    float64               `json:"amount" db:"amount"`
	Reference string                `json:"reference" db:"reference"`
	BookingID *uuid.UUID            `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt time.Time             `json:"created_at" db:"created_at"`
}

// TopUpRequest represents a manual wallet top-up by an admin
type TopUpRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference" validate:"required,max=200"`
}

// RefundAudit records who refunded a booking to the wallet, and why
type RefundAudit struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BookingID  uuid.UUID `json:"booking_id" db:"booking_id"`
	Amount     float64   `json:"amount" db:"amount"`
	Reason     string    `json:"reason" db:"reason"`
	ApprovedBy string    `json:"approved_by" db:"approved_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RefundRequest represents a cancellation with refund to wallet
type RefundRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason" validate:"required,max=1000"`
}
