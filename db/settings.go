package db

import (
	"context"
	"database/sql"
	"os"
)

// SettingLogLevel holds the log level applied at startup
const SettingLogLevel = "preferences_log_level"

// Default settings
var defaultSettings = map[string]string{
	SettingLogLevel: "info",
}

// GetSetting retrieves a setting by key, falling back to its default
func (d *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultSettings[key], nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllSettings retrieves all settings, defaults included
func (d *DB) GetAllSettings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	for k, v := range defaultSettings {
		settings[k] = v
	}

	rows, err := d.conn.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

// UpdateSettings updates multiple settings at once
func (d *DB) UpdateSettings(ctx context.Context, settings map[string]string) error {
	return d.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := NowMs()
		for key, value := range settings {
			if _, err := stmt.ExecContext(ctx, key, value, now); err != nil {
				return err
			}
		}

		return nil
	})
}

// LogLevel picks the log level preference: DB > LOG_LEVEL env > default
func (d *DB) LogLevel(ctx context.Context) string {
	var stored string
	err := d.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", SettingLogLevel).Scan(&stored)
	if err == nil && stored != "" {
		return stored
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		return env
	}
	return defaultSettings[SettingLogLevel]
}
