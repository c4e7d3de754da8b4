package model

import (
	"encoding/json"
	"time"
)

// SystemSetting is a keyed JSON blob in the settings table. The email
// channel configuration lives here so operators can change providers
// without a redeploy.
type SystemSetting struct {
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Setting keys the notifier reads.
const (
	SettingEmailProvider = "email_provider"
	SettingSMTPConfig    = "smtp_config"
	SettingEmailAPI      = "email_api_config"
)
