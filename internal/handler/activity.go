package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/streamconsole/internal/activity"
	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/types"
)

// ActivityHandler serves the change history recorded by activity.Indexer.
type ActivityHandler struct {
	store   activity.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(st activity.Store, cat *catalog.Catalog, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{store: st, catalog: cat, logger: logger}
}

// Routes registers GET / (recent activity) and GET /{kind}/{id} (one
// record's history).
func (h *ActivityHandler) Routes(r chi.Router) {
	r.Get("/", h.Recent)
	r.Get("/{kind}/{id}", h.History)
}

type historyPage struct {
	List       []activity.Entry `json:"list"`
	Total      int              `json:"total"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func (h *ActivityHandler) History(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if _, ok := h.catalog.Entity(kind); !ok {
		writeError(w, http.StatusBadRequest, "UNKNOWN_KIND", "unknown kind: "+kind)
		return
	}
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	params := r.URL.Query()
	opts := activity.DefaultQueryOptions()
	opts.Cursor = params.Get("cursor")
	opts.Ops = parseOps(params.Get("op"))
	opts.Limit = atoiOr(params.Get("limit"), opts.Limit)
	var err error
	if opts.Since, err = parseTime(params.Get("since")); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_TIME", "since: "+err.Error())
		return
	}
	if opts.Until, err = parseTime(params.Get("until")); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_TIME", "until: "+err.Error())
		return
	}

	entries, next, total, err := h.store.QueryByRecord(r.Context(), kind, id, opts)
	if errors.Is(err, activity.ErrBadCursor) {
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", err.Error())
		return
	}
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	writeData(w, historyPage{List: entries, Total: total, NextCursor: next})
}

func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	opts := activity.DefaultRecentOptions()
	opts.Kind = params.Get("kind")
	if opts.Kind != "" {
		if _, ok := h.catalog.Entity(opts.Kind); !ok {
			writeError(w, http.StatusBadRequest, "UNKNOWN_KIND", "unknown kind: "+opts.Kind)
			return
		}
	}
	opts.Ops = parseOps(params.Get("op"))
	opts.Limit = atoiOr(params.Get("limit"), opts.Limit)
	var err error
	if opts.Since, err = parseTime(params.Get("since")); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_TIME", "since: "+err.Error())
		return
	}

	entries, total, err := h.store.Recent(r.Context(), opts)
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	writeData(w, historyPage{List: entries, Total: total})
}

// parseOps splits a comma-separated op filter.
func parseOps(raw string) []types.ChangeOp {
	if raw == "" {
		return nil
	}
	var out []types.ChangeOp
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, types.ChangeOp(s))
		}
	}
	return out
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func atoiOr(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}
