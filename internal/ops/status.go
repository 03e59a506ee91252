package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/glean/internal/db"
	"github.com/hpungsan/glean/internal/pipeline"
	"github.com/hpungsan/glean/internal/prefs"
)

// StatsSource exposes live pipeline counters. *pipeline.Coordinator
// implements it.
type StatsSource interface {
	Stats() pipeline.Stats
}

// StatusOutput contains the result of the Status operation.
type StatusOutput struct {
	Enabled  bool            `json:"enabled"`
	Total    int             `json:"total"`
	Saved    int64           `json:"saved"`
	Live     bool            `json:"live"`
	Pipeline *pipeline.Stats `json:"pipeline,omitempty"`
}

// Status reports the enabled flag, the stored row count and the saved
// counter. With a live source the counter comes from the running pipeline;
// otherwise it is the last value the feed mirrored into the store.
func Status(ctx context.Context, database *sql.DB, store prefs.Store, live StatsSource) (*StatusOutput, error) {
	enabled, err := store.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	total, err := db.Count(ctx, database)
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{Enabled: enabled, Total: total}
	if live != nil {
		st := live.Stats()
		out.Live = true
		out.Saved = st.Saved
		out.Pipeline = &st
		return out, nil
	}

	out.Saved, err = store.Counter(ctx, prefs.SavedCount)
	if err != nil {
		return nil, err
	}
	return out, nil
}
