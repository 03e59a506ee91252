// Package ops implements the read and control operations shared by the
// CLI, web and MCP surfaces.
package ops

import "github.com/hpungsan/glean/internal/errors"

// Result limits
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 500
)

// normalizeLimit applies the default for 0 and rejects values outside
// [1, max].
func normalizeLimit(limit, def, max int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 0 {
		return 0, errors.NewInvalidRequest("limit must not be negative")
	}
	if limit > max {
		return 0, errors.NewInvalidRequest("limit exceeds maximum")
	}
	return limit, nil
}
