// Package pipeline turns snapshot events into persisted, de-duplicated
// text items.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hpungsan/glean/internal/capture"
	"github.com/hpungsan/glean/internal/db"
	"github.com/hpungsan/glean/internal/dedup"
	"github.com/hpungsan/glean/internal/metrics"
	"github.com/hpungsan/glean/internal/prefs"
	"github.com/hpungsan/glean/internal/throttle"
)

// Options configures a Coordinator. DB and Prefs are required.
type Options struct {
	DB    *sql.DB
	Prefs prefs.Store

	CacheCapacity    int           // <= 0 uses dedup.DefaultCapacity
	ThrottleInterval time.Duration // 0 disables throttling
	AsyncInserts     bool
	QueueSize        int

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Now overrides the clock used for throttling and timestamps.
	Now func() time.Time
}

// Stats is a point-in-time view of the coordinator's counters.
type Stats struct {
	Saved        int64 `json:"saved"`
	Events       int64 `json:"events"`
	Processed    int64 `json:"processed"`
	Throttled    int64 `json:"throttled"`
	Disabled     int64 `json:"disabled"`
	CacheEntries int   `json:"cache_entries"`
	CacheCap     int   `json:"cache_capacity"`
	QueuePending int   `json:"queue_pending"`
}

// Coordinator gates events on the enabled flag and the rate limiter, walks
// the tree and persists each new item once.
type Coordinator struct {
	db      *sql.DB
	prefs   prefs.Store
	cache   *dedup.Cache
	limiter *throttle.Limiter
	writer  *Writer
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time

	saved     atomic.Int64
	events    atomic.Int64
	processed atomic.Int64
	throttled atomic.Int64
	disabled  atomic.Int64
}

// New builds a Coordinator. With AsyncInserts it also starts a Writer,
// which Close drains.
func New(opts Options) (*Coordinator, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("pipeline: DB is required")
	}
	if opts.Prefs == nil {
		return nil, fmt.Errorf("pipeline: Prefs is required")
	}
	c := &Coordinator{
		db:      opts.DB,
		prefs:   opts.Prefs,
		cache:   dedup.NewCache(opts.CacheCapacity),
		limiter: throttle.New(opts.ThrottleInterval),
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.AsyncInserts {
		c.writer = NewWriter(opts.DB, opts.QueueSize, c.afterAsyncInsert, c.log)
	}
	return c, nil
}

// HandleEvent processes one event to completion. It never fails: store
// errors lose the affected item and are logged.
//
// A disabled event leaves the limiter, the cache and the saved counter
// alone. Only the events/disabled stats and the events metric record it.
func (c *Coordinator) HandleEvent(ctx context.Context, ev Event) Result {
	c.events.Add(1)
	res := Result{EventID: ev.ID}
	log := c.log.With("event", ev.ID)

	enabled, err := c.prefs.Enabled(ctx)
	if err != nil {
		log.Warn("reading enabled flag failed, treating as disabled", "err", err)
	}
	if err != nil || !enabled {
		c.disabled.Add(1)
		c.metrics.Event(metrics.EventDisabled)
		res.Outcome = OutcomeDisabled
		return res
	}

	at := ev.At
	if at.IsZero() {
		at = c.now()
	}
	if !c.limiter.Allow(at) {
		c.throttled.Add(1)
		c.metrics.Event(metrics.EventThrottled)
		log.Debug("event throttled")
		res.Outcome = OutcomeThrottled
		return res
	}

	res.Outcome = OutcomeProcessed
	start := time.Now()
	res.Walk = capture.Walk(ev.Root, func(item capture.Item) {
		c.handleItem(ctx, log, item, &res)
	})
	c.metrics.ObserveTraversal(time.Since(start))
	c.metrics.SetCacheEntries(c.cache.Len())
	c.metrics.Event(metrics.EventProcessed)
	c.processed.Add(1)

	log.Debug("event processed",
		"visited", res.Walk.Visited,
		"emitted", res.Walk.Emitted,
		"saved", res.Saved,
		"queued", res.Queued,
		"duplicates", res.Duplicates,
	)
	return res
}

func (c *Coordinator) handleItem(ctx context.Context, log *slog.Logger, item capture.Item, res *Result) {
	if strings.TrimSpace(item.Content) == "" {
		res.Blank++
		c.metrics.Item(metrics.ItemBlank)
		return
	}

	key := dedup.DeriveKey(item.SourceID, item.ElementID, item.Content)
	if c.cache.IsDuplicate(key) {
		res.Duplicates++
		c.metrics.Item(metrics.ItemDuplicate)
		return
	}

	elementID := item.ElementID
	if elementID == "" {
		elementID = dedup.NoElementID
	}
	row := &db.CapturedItem{
		Content:    item.Content,
		SourceID:   item.SourceID,
		ElementID:  elementID,
		CapturedAt: c.now().UnixMilli(),
		DedupKey:   key,
	}

	if c.writer != nil {
		if c.writer.Enqueue(row) {
			res.Queued++
			return
		}
		res.Dropped++
		c.metrics.Item(metrics.ItemDropped)
		log.Warn("insert queue full, item dropped", "dedup_key", key)
		return
	}

	ins, err := db.Insert(ctx, c.db, row)
	switch {
	case err != nil:
		res.Failed++
		c.metrics.Item(metrics.ItemFailed)
		log.Warn("insert failed", "dedup_key", key, "err", err)
	case ins == db.Inserted:
		res.Saved++
		c.saved.Add(1)
		c.metrics.Item(metrics.ItemSaved)
	default:
		res.Ignored++
		c.metrics.Item(metrics.ItemIgnored)
	}
}

func (c *Coordinator) afterAsyncInsert(_ *db.CapturedItem, ins db.InsertResult, err error) {
	switch {
	case err != nil:
		c.metrics.Item(metrics.ItemFailed)
	case ins == db.Inserted:
		c.saved.Add(1)
		c.metrics.Item(metrics.ItemSaved)
	default:
		c.metrics.Item(metrics.ItemIgnored)
	}
}

// Saved returns the number of rows inserted since the process started.
func (c *Coordinator) Saved() int64 {
	return c.saved.Load()
}

// Stats returns the current counters.
func (c *Coordinator) Stats() Stats {
	st := Stats{
		Saved:        c.saved.Load(),
		Events:       c.events.Load(),
		Processed:    c.processed.Load(),
		Throttled:    c.throttled.Load(),
		Disabled:     c.disabled.Load(),
		CacheEntries: c.cache.Len(),
		CacheCap:     c.cache.Cap(),
	}
	if c.writer != nil {
		st.QueuePending = c.writer.Pending()
	}
	return st
}

// Close drains the async writer, if any.
func (c *Coordinator) Close(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close(ctx)
}
