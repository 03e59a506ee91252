package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Event(EventProcessed)
	m.Event(EventProcessed)
	m.Event(EventThrottled)
	m.Item(ItemSaved)
	m.SetCacheEntries(7)
	m.ObserveTraversal(3 * time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(EventProcessed)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(EventThrottled)))
	require.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues(EventDisabled)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues(ItemSaved)))
	require.Equal(t, 7.0, testutil.ToFloat64(m.cacheItems))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.Event(EventProcessed)
		m.Item(ItemSaved)
		m.ObserveTraversal(time.Second)
		m.SetCacheEntries(1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Item(ItemDuplicate)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	require.True(t, strings.Contains(text, `glean_items_total{outcome="duplicate"} 1`), text)
	require.True(t, strings.Contains(text, `glean_events_total{outcome="disabled"} 0`))
	require.True(t, strings.Contains(text, "glean_traversal_duration_seconds"))
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.Event(EventProcessed)
	require.Equal(t, 0.0, testutil.ToFloat64(b.events.WithLabelValues(EventProcessed)))
}
