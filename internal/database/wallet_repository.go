package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/jmoiron/sqlx"
)

// WalletRepository handles customer wallets and their ledger
type WalletRepository struct {
	db DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetOrCreate returns the customer's wallet with its current balance, creating
// an empty wallet on first access
func (r *WalletRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID, currency string) (*models.Wallet, error) {
	insert := `
		INSERT INTO wallets (id, customer_id, currency, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (customer_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, uuid.New(), customerID, currency); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	query := `
		SELECT w.id, w.customer_id, w.currency, w.created_at,
		       COALESCE(SUM(t.amount), 0) AS balance
		FROM wallets w
		LEFT JOIN wallet_transactions t ON t.wallet_id = w.id
		WHERE w.customer_id = $1
		GROUP BY w.id
	`
	var wallet models.Wallet
	if err := r.db.GetContext(ctx, &wallet, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// AddTransaction appends a ledger line to the customer's wallet. Negative
// amounts are rejected with ErrInsufficientBalance when the balance cannot
// cover them. The balance check and insert share one locked transaction.
func (r *WalletRepository) AddTransaction(ctx context.Context, customerID uuid.UUID, currency string, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		walletID, err := lockWallet(ctx, tx, customerID, currency)
		if err != nil {
			return err
		}
		txn.WalletID = walletID

		if txn.Amount < 0 {
			var balance float64
			if err := tx.GetContext(ctx, &balance,
				`SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_id = $1`, walletID); err != nil {
				return fmt.Errorf("failed to read wallet balance: %w", err)
			}
			if balance < math.Abs(txn.Amount) {
				return ErrInsufficientBalance
			}
		}

		return insertWalletTransaction(ctx, tx, txn)
	})
}

// Transactions returns the newest ledger lines of a wallet
func (r *WalletRepository) Transactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txns := []models.WalletTransaction{}
	query := `
		SELECT id, wallet_id, type, amount, reference, booking_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &txns, query, walletID, limit); err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return txns, nil
}

// lockWallet ensures the wallet exists and locks its row for the rest of tx
func lockWallet(ctx context.Context, tx *sqlx.Tx, customerID uuid.UUID, currency string) (uuid.UUID, error) {
	insert := `
		INSERT INTO wallets (id, customer_id, currency, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (customer_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, uuid.New(), customerID, currency); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	var walletID uuid.UUID
	if err := tx.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE customer_id = $1 FOR UPDATE`, customerID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return walletID, nil
}

func insertWalletTransaction(ctx context.Context, tx *sqlx.Tx, txn *models.WalletTransaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, type, amount, reference, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query,
		txn.ID, txn.WalletID, txn.Type, txn.Amount, txn.Reference, txn.BookingID, txn.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}
