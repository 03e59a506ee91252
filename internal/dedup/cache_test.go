package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_FirstSightingIsNew(t *testing.T) {
	c := NewCache(10)

	require.False(t, c.IsDuplicate("a"))
	require.True(t, c.IsDuplicate("a"))
	require.True(t, c.IsDuplicate("a"))
	require.Equal(t, 1, c.Len())
}

func TestCache_DefaultCapacity(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewCache(0).Cap())
	require.Equal(t, DefaultCapacity, NewCache(-3).Cap())
	require.Equal(t, 7, NewCache(7).Cap())
}

func TestCache_RepeatWithinWindowSuppressed(t *testing.T) {
	c := NewCache(200)

	require.False(t, c.IsDuplicate("target"))
	for i := 0; i < 199; i++ {
		require.False(t, c.IsDuplicate(fmt.Sprintf("k%d", i)))
	}
	// 199 other keys since "target": still resident
	require.True(t, c.IsDuplicate("target"))
}

func TestCache_EvictsLeastRecentlyInserted(t *testing.T) {
	c := NewCache(200)

	for i := 0; i < 201; i++ {
		require.False(t, c.IsDuplicate(fmt.Sprintf("k%d", i)))
	}
	require.Equal(t, 200, c.Len())

	// k0 was pushed out by the 201st key and counts as new again
	require.False(t, c.IsDuplicate("k0"))
	// k2 was never evicted (k1 went when k0 came back)
	require.True(t, c.IsDuplicate("k2"))
}

func TestCache_AccessRefreshesRecency(t *testing.T) {
	c := NewCache(200)

	for i := 0; i < 200; i++ {
		c.IsDuplicate(fmt.Sprintf("k%d", i))
	}
	// Touch k0 so k1 becomes the least recently used
	require.True(t, c.IsDuplicate("k0"))

	require.False(t, c.IsDuplicate("k200"))

	require.True(t, c.IsDuplicate("k0"), "re-accessed key must survive eviction")
	_, ok := c.SeenAt("k1")
	require.False(t, ok, "least recently used key must be evicted")
}

func TestCache_HitKeepsFirstSeenTime(t *testing.T) {
	c := NewCache(5)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	c.IsDuplicate("a")
	now = base.Add(time.Minute)
	require.True(t, c.IsDuplicate("a"))

	seen, ok := c.SeenAt("a")
	require.True(t, ok)
	require.Equal(t, base, seen)
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(1000)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !c.IsDuplicate(fmt.Sprintf("k%d", i)) {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// Every key is reported new exactly once across all goroutines
	require.Equal(t, 100, fresh)
	require.Equal(t, 100, c.Len())
}
