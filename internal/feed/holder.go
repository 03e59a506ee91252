package feed

import "sync"

// Holder keeps the latest Snapshot for readers on other goroutines.
// Its Publish method is suitable as Poller.Publish.
type Holder struct {
	mu   sync.RWMutex
	snap Snapshot
	set  bool
}

// Publish replaces the held snapshot.
func (h *Holder) Publish(s Snapshot) {
	h.mu.Lock()
	h.snap = s
	h.set = true
	h.mu.Unlock()
}

// Latest returns the held snapshot and whether one was ever published.
func (h *Holder) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap, h.set
}
