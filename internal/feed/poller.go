// Package feed periodically reads the most recent captures for display,
// off the event-handling path.
package feed

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hpungsan/glean/internal/db"
	"github.com/hpungsan/glean/internal/prefs"
)

// DefaultInterval is how often the poller refreshes.
const DefaultInterval = 5 * time.Second

// Snapshot is one refresh published to the display.
type Snapshot struct {
	Items []string  `json:"items"`
	Saved int64     `json:"saved"`
	At    time.Time `json:"at"`
}

// Poller reads the newest Limit rows every Interval and hands them to
// Publish. Saved supplies the process-local saved counter, which is also
// mirrored into Prefs when set.
//
// The mirror overwrites prefs.SavedCount. When several observers share a
// Redis store, the stored value is the count of whichever one refreshed
// last; it is not a sum across observers.
type Poller struct {
	DB       *sql.DB
	Limit    int
	Interval time.Duration
	Saved    func() int64
	Prefs    prefs.Store
	Publish  func(Snapshot)
	Logger   *slog.Logger
}

// Run polls until ctx is done. The first refresh happens immediately.
// It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.Refresh(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh performs one read and publish. A failed read is logged and
// nothing is published.
func (p *Poller) Refresh(ctx context.Context) {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	items, err := db.Recent(ctx, p.DB, p.Limit)
	if err != nil {
		log.Warn("feed refresh failed", "err", err)
		return
	}

	var saved int64
	if p.Saved != nil {
		saved = p.Saved()
	}
	if p.Prefs != nil {
		if err := p.Prefs.SetCounter(ctx, prefs.SavedCount, saved); err != nil {
			log.Warn("mirroring saved counter failed", "err", err)
		}
	}

	if p.Publish != nil {
		p.Publish(Snapshot{Items: items, Saved: saved, At: time.Now()})
	}
}
