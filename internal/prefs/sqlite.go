package prefs

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/hpungsan/glean/internal/db"
)

// SQLite keeps settings in the capture database's settings table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a Store backed by an initialized glean database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) Enabled(ctx context.Context) (bool, error) {
	v, ok, err := db.GetSetting(ctx, s.db, EnabledKey)
	if err != nil || !ok {
		return false, err
	}
	return parseBool(v), nil
}

func (s *SQLite) SetEnabled(ctx context.Context, enabled bool) error {
	return db.PutSetting(ctx, s.db, EnabledKey, strconv.FormatBool(enabled))
}

func (s *SQLite) Counter(ctx context.Context, name string) (int64, error) {
	v, ok, err := db.GetSetting(ctx, s.db, counterKey(name))
	if err != nil || !ok {
		return 0, err
	}
	return parseInt(v), nil
}

func (s *SQLite) SetCounter(ctx context.Context, name string, value int64) error {
	return db.PutSetting(ctx, s.db, counterKey(name), strconv.FormatInt(value, 10))
}

func counterKey(name string) string {
	return "counter:" + name
}
