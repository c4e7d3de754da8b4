package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smartdoc/tracker-api/internal/repository"
)

type settingsRepository struct {
	BaseRepository
}

func NewSettingsRepository(base BaseRepository) repository.SettingsRepository {
	return &settingsRepository{base}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	query := `SELECT value FROM system_settings WHERE key = $1`

	var value json.RawMessage
	if err := r.GetDB().GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return value, nil
}

func (r *settingsRepository) Set(ctx context.Context, key string, value json.RawMessage) error {
	query := `
        INSERT INTO system_settings (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
    `

	if _, err := r.GetDB().ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}

	return nil
}
