package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/glean/internal/prefs"
)

func TestToggle(t *testing.T) {
	database := setupDB(t)
	store := prefs.NewSQLite(database)
	ctx := context.Background()

	out, err := Toggle(ctx, store, true)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !out.Enabled || !out.Changed {
		t.Errorf("got %+v, want enabled and changed", out)
	}

	out, err = Toggle(ctx, store, true)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if out.Changed {
		t.Error("second enable should not report a change")
	}

	enabled, err := store.Enabled(ctx)
	if err != nil {
		t.Fatalf("Enabled failed: %v", err)
	}
	if !enabled {
		t.Error("flag should be persisted")
	}

	out, err = Toggle(ctx, store, false)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if out.Enabled || !out.Changed {
		t.Errorf("got %+v, want disabled and changed", out)
	}
}
