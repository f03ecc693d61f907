package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SettingsRepository persists keyed JSON settings documents. The attendance
// rules live under a single key so every update is one atomic write.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get loads the settings document stored under key into dest. It returns
// sql.ErrNoRows untouched when the key has never been written.
func (r *SettingsRepository) Get(ctx context.Context, key string, dest interface{}) error {
	const query = `SELECT value FROM settings WHERE key = $1 LIMIT 1`
	var raw []byte
	if err := r.db.GetContext(ctx, &raw, query, key); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("get settings %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode settings %q: %w", key, err)
	}
	return nil
}

// Set stores the settings document under key, replacing any previous value.
func (r *SettingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode settings %q: %w", key, err)
	}
	const query = `INSERT INTO settings (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("set settings %q: %w", key, err)
	}
	return nil
}
