package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// CustomerRepository handles customer lookups
type CustomerRepository struct {
	db DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer by id
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	query := `SELECT id, name, email, created_at, updated_at FROM customers WHERE id = $1`
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Customer not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// GetByEmail retrieves a customer by email (case-insensitive)
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	query := `SELECT id, name, email, created_at, updated_at FROM customers WHERE email = $1`
	if err := r.db.GetContext(ctx, &customer, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}
	return &customer, nil
}
