package web

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hpungsan/glean/internal/errors"
	"github.com/hpungsan/glean/internal/feed"
	"github.com/hpungsan/glean/internal/ops"
	"github.com/hpungsan/glean/internal/prefs"
)

// Handlers contains HTTP route handlers.
type Handlers struct {
	db       *sql.DB
	prefs    prefs.Store
	stats    ops.StatsSource
	feed     *feed.Holder
	renderer *Renderer
	log      *slog.Logger
}

// HandleFeedPage handles GET /, the auto-refreshing capture feed.
func (h *Handlers) HandleFeedPage(w http.ResponseWriter, r *http.Request) {
	data := FeedPageData{
		PageData: PageData{Title: "Recent captures", Version: h.renderer.version},
	}

	if snap, ok := h.latest(); ok {
		data.Items = snap.Items
		data.Saved = snap.Saved
		data.UpdatedAt = snap.At
		data.HasFeed = true
	} else {
		// No poller running: read directly.
		items, err := ops.Recent(r.Context(), h.db, ops.RecentInput{})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		for _, it := range items.Items {
			data.Items = append(data.Items, it.Content)
		}
	}

	enabled, err := h.prefs.Enabled(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Enabled = enabled

	h.renderer.renderPage(w, r, "feed", data)
}

// HandleFeed handles GET /feed: the latest poller snapshot as JSON.
func (h *Handlers) HandleFeed(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest()
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("feed"))
		return
	}
	renderJSON(w, http.StatusOK, snap)
}

// HandleRecent handles GET /recent?limit=N.
func (h *Handlers) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.Recent(r.Context(), h.db, ops.RecentInput{Limit: limit})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Status(r.Context(), h.db, h.prefs, h.stats)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleToggle handles POST /toggle?enabled=true|false.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("enabled")
	if raw == "" {
		raw = r.FormValue("enabled")
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("enabled must be true or false"))
		return
	}

	out, err := ops.Toggle(r.Context(), h.prefs, enabled)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info("capture toggled", "enabled", out.Enabled, "changed", out.Changed)

	// Form posts from the feed page go back to it.
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

func (h *Handlers) latest() (feed.Snapshot, bool) {
	if h.feed == nil {
		return feed.Snapshot{}, false
	}
	return h.feed.Latest()
}

// parseIntParam reads an integer query parameter, returning def when absent.
func parseIntParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewInvalidRequest(name + " must be an integer")
	}
	return n, nil
}
