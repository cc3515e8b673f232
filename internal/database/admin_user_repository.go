package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new admin user repository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

const adminUserColumns = `
	id, email, password_hash, full_name, role, is_active, last_login_at,
	created_at, updated_at`

// GetByEmail retrieves an admin user by email. Returns nil when there is none.
func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE email = $1`

	var admin models.AdminUser
	if err := r.db.GetContext(ctx, &admin, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}

	return &admin, nil
}

// Create creates a new admin user
func (r *AdminUserRepository) Create(ctx context.Context, admin *models.AdminUser) error {
	// Generate UUID if not provided
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	if admin.Role == "" {
		admin.Role = "admin"
	}

	query := `
		INSERT INTO admin_users (id, email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, full_name = EXCLUDED.full_name, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	row := struct {
		ID        uuid.UUID `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}{}
	err := r.db.GetContext(ctx, &row, query,
		admin.ID,
		strings.ToLower(strings.TrimSpace(admin.Email)),
		admin.PasswordHash,
		admin.FullName,
		admin.Role,
		admin.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	admin.ID, admin.CreatedAt, admin.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

// UpdateLastLogin updates the last login timestamp
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE admin_users
		SET last_login_at = $1, updated_at = $1
		WHERE id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}
