package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/glean/internal/errors"
)

// GetSetting reads a value from the settings table.
// ok is false when the name has never been written.
func GetSetting(ctx context.Context, db *sql.DB, name string) (value string, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewStoreUnavailable("get setting", err)
	}
	return value, true, nil
}

// PutSetting writes or replaces a value in the settings table.
func PutSetting(ctx context.Context, db *sql.DB, name, value string) error {
	query := `
		INSERT INTO settings (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, name, value, time.Now().Unix()); err != nil {
		return errors.NewStoreUnavailable("put setting", err)
	}
	return nil
}
