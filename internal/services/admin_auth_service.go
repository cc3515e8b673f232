package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminStore reads and writes back-office users
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, admin *models.AdminUser) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// AdminAuthService handles admin authentication business logic
type AdminAuthService struct {
	adminRepo  AdminStore
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(adminRepo AdminStore, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *AdminAuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AdminAuthService{
		adminRepo:  adminRepo,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Login authenticates an admin user and returns an access token
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*models.AdminLoginResponse, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin user: %w", err)
	}
	if admin == nil || !admin.IsActive {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.GenerateAccessToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// Log error but don't fail the login
	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID); err != nil {
		s.logger.WithFields(logrus.Fields{
			"admin_id": admin.ID.String(),
			"error":    err.Error(),
		}).Warn("Failed to update admin last login")
	}

	return &models.AdminLoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtService.Expiry().Seconds()),
		AdminUser:   admin,
	}, nil
}

// CreateAdmin creates an admin user, or resets the password of an existing one
func (s *AdminAuthService) CreateAdmin(ctx context.Context, email, password, fullName, role string) (*models.AdminUser, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     fullName,
		Role:         role,
		IsActive:     true,
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return admin, nil
}
