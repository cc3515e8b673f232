package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/internal/utils"
	"github.com/sirupsen/logrus"
)

// SettingStore reads and writes system settings
type SettingStore interface {
	GetValues(ctx context.Context, keys ...string) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}

// SettingsService manages the upstream connection settings. Values stored in
// system_settings take precedence over the environment.
type SettingsService struct {
	store          SettingStore
	fallbackURL    string
	fallbackAPIKey string
	logger         *logrus.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(store SettingStore, fallbackURL, fallbackAPIKey string, logger *logrus.Logger) *SettingsService {
	return &SettingsService{
		store:          store,
		fallbackURL:    fallbackURL,
		fallbackAPIKey: fallbackAPIKey,
		logger:         logger,
	}
}

// Credentials implements liteapi.CredentialsProvider
func (s *SettingsService) Credentials(ctx context.Context) (string, string, error) {
	baseURL, apiKey := s.fallbackURL, s.fallbackAPIKey

	values, err := s.store.GetValues(ctx, models.SettingLiteAPIBaseURL, models.SettingLiteAPIAPIKey)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read LiteAPI settings, using environment")
		return baseURL, apiKey, nil
	}
	if v := strings.TrimSpace(values[models.SettingLiteAPIBaseURL]); v != "" {
		baseURL = v
	}
	if v := strings.TrimSpace(values[models.SettingLiteAPIAPIKey]); v != "" {
		apiKey = v
	}
	return baseURL, apiKey, nil
}

// GetLiteAPISettings returns the effective connection settings with the key masked
func (s *SettingsService) GetLiteAPISettings(ctx context.Context) (*models.LiteAPISettings, error) {
	baseURL, apiKey, err := s.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	settings := &models.LiteAPISettings{
		BaseURL:   baseURL,
		IsSandbox: strings.HasPrefix(apiKey, "sand_"),
	}
	if apiKey != "" {
		settings.APIKeyMasked = utils.MaskSecret(apiKey)
	}
	return settings, nil
}

// UpdateLiteAPISettings stores the non-empty fields of req
func (s *SettingsService) UpdateLiteAPISettings(ctx context.Context, req models.UpdateLiteAPISettingsRequest, updatedBy string) (*models.LiteAPISettings, error) {
	if v := strings.TrimSpace(req.BaseURL); v != "" {
		if err := s.store.Upsert(ctx, models.SettingLiteAPIBaseURL, strings.TrimRight(v, "/")); err != nil {
			return nil, fmt.Errorf("failed to save base URL: %w", err)
		}
	}
	if v := strings.TrimSpace(req.APIKey); v != "" {
		if err := s.store.Upsert(ctx, models.SettingLiteAPIAPIKey, v); err != nil {
			return nil, fmt.Errorf("failed to save API key: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"updated_by":      updatedBy,
		"base_url_change": req.BaseURL != "",
		"api_key_change":  req.APIKey != "",
	}).Info("LiteAPI settings updated")

	return s.GetLiteAPISettings(ctx)
}
