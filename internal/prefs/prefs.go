// Package prefs stores the process-wide enabled flag and named counters.
//
// Both live outside the capture core so that a UI toggle takes effect on
// the very next event, and survive restarts.
package prefs

import (
	"context"
	"strconv"
)

// Fixed setting names.
const (
	EnabledKey = "is_active"
	SavedCount = "saved_count"
)

// Store reads and writes the enabled flag and counters.
// Unset values read as false and 0.
type Store interface {
	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Counter(ctx context.Context, name string) (int64, error)
	SetCounter(ctx context.Context, name string, value int64) error
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
