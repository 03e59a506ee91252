package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/glean/internal/db"
)

// RecentInput contains parameters for the Recent operation.
type RecentInput struct {
	Limit int // default: DefaultRecentLimit, max: MaxRecentLimit
}

// RecentOutput contains the result of the Recent operation.
type RecentOutput struct {
	Items []db.CapturedItem `json:"items"`
	Total int               `json:"total"`
}

// Recent returns the newest captures and the total row count.
func Recent(ctx context.Context, database *sql.DB, input RecentInput) (*RecentOutput, error) {
	limit, err := normalizeLimit(input.Limit, DefaultRecentLimit, MaxRecentLimit)
	if err != nil {
		return nil, err
	}

	items, err := db.RecentItems(ctx, database, limit)
	if err != nil {
		return nil, err
	}
	total, err := db.Count(ctx, database)
	if err != nil {
		return nil, err
	}

	return &RecentOutput{Items: items, Total: total}, nil
}
