package models

import (
	"time"
)

// Setting keys for the upstream connection
const (
	SettingLiteAPIBaseURL = "liteapi.base_url"
	SettingLiteAPIAPIKey  = "liteapi.api_key"
)

// SystemSetting represents a system-wide configuration setting
type SystemSetting struct {
	ID           string    `json:"id" db:"id"`
	SettingKey   string    `json:"setting_key" db:"setting_key"`
	SettingValue string    `json:"setting_value" db:"setting_value"`
	Description  *string   `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// LiteAPISettings is the admin view of the upstream connection. The key is masked.
type LiteAPISettings struct {
	BaseURL      string `json:"base_url"`
	APIKeyMasked string `json:"api_key_masked"`
	IsSandbox    bool   `json:"is_sandbox"`
}

// UpdateLiteAPISettingsRequest represents the request to change the upstream connection
type UpdateLiteAPISettingsRequest struct {
	BaseURL string `json:"base_url" validate:"omitempty,url"`
	APIKey  string `json:"api_key" validate:"omitempty,min=8"`
}
