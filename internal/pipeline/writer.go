package pipeline

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"github.com/hpungsan/glean/internal/db"
)

// DefaultQueueSize bounds the async insert queue.
const DefaultQueueSize = 256

// InsertFunc is called on the writer goroutine after every insert attempt.
type InsertFunc func(item *db.CapturedItem, res db.InsertResult, err error)

// Writer performs inserts on one background goroutine so the event path
// never waits on the store. Enqueue never blocks: a full queue drops the item.
type Writer struct {
	db       *sql.DB
	queue    chan *db.CapturedItem
	onInsert InsertFunc
	log      *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewWriter starts the writer goroutine. size <= 0 uses DefaultQueueSize.
func NewWriter(database *sql.DB, size int, onInsert InsertFunc, logger *slog.Logger) *Writer {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		db:       database,
		queue:    make(chan *db.CapturedItem, size),
		onInsert: onInsert,
		log:      logger,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// Enqueue hands item to the writer. It returns false if the queue is full
// or the writer is closed.
func (w *Writer) Enqueue(item *db.CapturedItem) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- item:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued items.
func (w *Writer) Pending() int {
	return len(w.queue)
}

// Close stops accepting items, drains the queue and waits for the last
// insert to finish or ctx to end.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer close(w.done)
	for item := range w.queue {
		res, err := db.Insert(context.Background(), w.db, item)
		if err != nil {
			w.log.Warn("async insert failed", "dedup_key", item.DedupKey, "err", err)
		}
		if w.onInsert != nil {
			w.onInsert(item, res, err)
		}
	}
}
