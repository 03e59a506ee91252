package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/glean/internal/errors"
)

// CapturedItem is one persisted text capture.
type CapturedItem struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	SourceID   string `json:"source_id"`
	ElementID  string `json:"element_id"`
	CapturedAt int64  `json:"captured_at"` // unix milliseconds
	DedupKey   string `json:"dedup_key"`
}

// InsertResult reports whether Insert wrote a row.
type InsertResult int

const (
	// Ignored means a row with the same dedup_key already existed.
	Ignored InsertResult = iota
	// Inserted means a new row was written.
	Inserted
)

func (r InsertResult) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "ignored"
}

// Insert stores item unless a row with the same dedup_key exists.
// A conflict is not an error: it yields Ignored.
// On Inserted, item.ID is set to the new row id.
func Insert(ctx context.Context, db *sql.DB, item *CapturedItem) (InsertResult, error) {
	if item == nil || item.DedupKey == "" {
		return Ignored, errors.NewInvalidRequest("dedup_key is required")
	}
	if item.CapturedAt == 0 {
		item.CapturedAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO captured_text (content, source_id, element_id, captured_at, dedup_key)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO NOTHING
	`

	result, err := db.ExecContext(ctx, query,
		item.Content, item.SourceID, item.ElementID, item.CapturedAt, item.DedupKey,
	)
	if err != nil {
		return Ignored, errors.NewStoreUnavailable("insert", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Ignored, errors.NewStoreUnavailable("insert", err)
	}
	if rowsAffected == 0 {
		return Ignored, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		item.ID = id
	}
	return Inserted, nil
}

// Recent returns the content of at most n captures, newest first.
func Recent(ctx context.Context, db *sql.DB, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT content FROM captured_text
		ORDER BY captured_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, errors.NewStoreUnavailable("recent", err)
	}
	defer rows.Close()

	contents := make([]string, 0, n)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, errors.NewStoreUnavailable("recent", err)
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreUnavailable("recent", err)
	}

	return contents, nil
}

// RecentItems returns at most n full rows, newest first.
func RecentItems(ctx context.Context, db *sql.DB, n int) ([]CapturedItem, error) {
	if n <= 0 {
		return []CapturedItem{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, content, source_id, element_id, captured_at, dedup_key
		FROM captured_text
		ORDER BY captured_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, errors.NewStoreUnavailable("recent", err)
	}
	defer rows.Close()

	items := make([]CapturedItem, 0, n)
	for rows.Next() {
		it, err := ScanItem(rows)
		if err != nil {
			return nil, errors.NewStoreUnavailable("recent", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreUnavailable("recent", err)
	}

	return items, nil
}

// Count returns the number of stored captures.
func Count(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM captured_text`).Scan(&n); err != nil {
		return 0, errors.NewStoreUnavailable("count", err)
	}
	return n, nil
}

// StreamItems returns every row in capture order, oldest first.
// The caller must close the returned rows.
func StreamItems(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, content, source_id, element_id, captured_at, dedup_key
		FROM captured_text
		ORDER BY captured_at ASC, id ASC
	`)
	if err != nil {
		return nil, errors.NewStoreUnavailable("stream", err)
	}
	return rows, nil
}

// ScanItem reads one row produced by RecentItems or StreamItems.
func ScanItem(rows *sql.Rows) (*CapturedItem, error) {
	var it CapturedItem
	if err := rows.Scan(&it.ID, &it.Content, &it.SourceID, &it.ElementID, &it.CapturedAt, &it.DedupKey); err != nil {
		return nil, err
	}
	return &it, nil
}
