package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/sirupsen/logrus"
)

// WalletStore reads and appends wallet ledger lines
type WalletStore interface {
	GetOrCreate(ctx context.Context, customerID uuid.UUID, currency string) (*models.Wallet, error)
	AddTransaction(ctx context.Context, customerID uuid.UUID, currency string, txn *models.WalletTransaction) error
	Transactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

// CustomerStore looks customers up
type CustomerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// RefundStore cancels bookings with a refund to the wallet
type RefundStore interface {
	RefundToWallet(ctx context.Context, audit *models.RefundAudit) error
}

// WalletService manages customer wallets and refunds into them
type WalletService struct {
	wallets   WalletStore
	customers CustomerStore
	refunds   RefundStore
	currency  string
	logger    *logrus.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(wallets WalletStore, customers CustomerStore, refunds RefundStore, currency string, logger *logrus.Logger) *WalletService {
	return &WalletService{
		wallets:   wallets,
		customers: customers,
		refunds:   refunds,
		currency:  currency,
		logger:    logger,
	}
}

// GetOrCreate returns the customer's wallet with its balance
func (s *WalletService) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Wallet, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return s.wallets.GetOrCreate(ctx, customerID, s.currency)
}

// Balance returns the current wallet balance
func (s *WalletService) Balance(ctx context.Context, customerID uuid.UUID) (float64, error) {
	wallet, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Transactions returns the newest ledger lines of the customer's wallet
func (s *WalletService) Transactions(ctx context.Context, customerID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	wallet, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.wallets.Transactions(ctx, wallet.ID, limit)
}

// TopUp credits the wallet
func (s *WalletService) TopUp(ctx context.Context, customerID uuid.UUID, amount float64, reference string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("top-up amount must be positive")
	}
	txn := &models.WalletTransaction{
		Type:      models.WalletTransactionTopUp,
		Amount:    amount,
		Reference: strings.TrimSpace(reference),
	}
	return s.apply(ctx, customerID, txn)
}

// Deduct pays for a booking from the wallet. Fails with ErrInsufficientBalance
// when the balance is lower than amount.
func (s *WalletService) Deduct(ctx context.Context, customerID uuid.UUID, amount float64, reference string, bookingID *uuid.UUID) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deduction amount must be positive")
	}
	txn := &models.WalletTransaction{
		Type:      models.WalletTransactionBooking,
		Amount:    -math.Abs(amount),
		Reference: strings.TrimSpace(reference),
		BookingID: bookingID,
	}
	return s.apply(ctx, customerID, txn)
}

func (s *WalletService) apply(ctx context.Context, customerID uuid.UUID, txn *models.WalletTransaction) (*models.Wallet, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	if err := s.wallets.AddTransaction(ctx, customerID, s.currency, txn); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"customer_id": customerID.String(),
		"type":        txn.Type,
		"amount":      txn.Amount,
		"reference":   txn.Reference,
	}).Info("Wallet transaction recorded")

	return s.wallets.GetOrCreate(ctx, customerID, s.currency)
}

// Refund cancels a confirmed booking and credits amount to the customer's wallet
func (s *WalletService) Refund(ctx context.Context, bookingID uuid.UUID, amount float64, reason, approvedBy string) (*models.RefundAudit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}

	audit := &models.RefundAudit{
		BookingID:  bookingID,
		Amount:     amount,
		Reason:     strings.TrimSpace(reason),
		ApprovedBy: approvedBy,
	}
	if err := s.refunds.RefundToWallet(ctx, audit); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID.String(),
		"amount":      amount,
		"approved_by": approvedBy,
	}).Info("Booking refunded to wallet")

	return audit, nil
}
