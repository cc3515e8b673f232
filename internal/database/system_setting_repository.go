package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// SystemSettingRepository handles database operations for system_settings table
type SystemSettingRepository struct {
	db DB
}

// NewSystemSettingRepository creates a new SystemSettingRepository
func NewSystemSettingRepository(db DB) *SystemSettingRepository {
	return &SystemSettingRepository{db: db}
}

// GetAll retrieves all system settings
func (r *SystemSettingRepository) GetAll(ctx context.Context) ([]models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, description, created_at, updated_at
		FROM system_settings
		ORDER BY setting_key
	`

	settings := []models.SystemSetting{}
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// GetByKey retrieves a system setting by its key. Returns nil when the key is not set.
func (r *SystemSettingRepository) GetByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, description, created_at, updated_at
		FROM system_settings
		WHERE setting_key = $1
	`

	var setting models.SystemSetting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	return &setting, nil
}

// GetValues returns the values of the given keys. Missing keys are absent from the map.
func (r *SystemSettingRepository) GetValues(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		setting, err := r.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if setting != nil {
			values[key] = setting.SettingValue
		}
	}
	return values, nil
}

// Upsert sets a system setting's value, creating the key if needed
func (r *SystemSettingRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (id, setting_key, setting_value, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, NOW(), NOW())
		ON CONFLICT (setting_key) DO UPDATE
		SET setting_value = EXCLUDED.setting_value, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to update setting %s: %w", key, err)
	}
	return nil
}
