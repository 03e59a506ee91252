package ops

import (
	"context"

	"github.com/hpungsan/glean/internal/prefs"
)

// ToggleOutput contains the result of the Toggle operation.
type ToggleOutput struct {
	Enabled bool `json:"enabled"`
	Changed bool `json:"changed"`
}

// Toggle sets the enabled flag. The running pipeline picks it up on the
// next event.
func Toggle(ctx context.Context, store prefs.Store, enabled bool) (*ToggleOutput, error) {
	prev, err := store.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.SetEnabled(ctx, enabled); err != nil {
		return nil, err
	}
	return &ToggleOutput{Enabled: enabled, Changed: prev != enabled}, nil
}
