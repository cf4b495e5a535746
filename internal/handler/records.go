// Package handler serves the manager API over the reference store: list,
// save, update and delete for every catalog kind, plus the catalog itself.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/event"
	"github.com/matthewbaird/streamconsole/internal/form"
	"github.com/matthewbaird/streamconsole/internal/store"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// RecordHandler implements the record endpoints.
type RecordHandler struct {
	store    store.Store
	catalog  *catalog.Catalog
	registry *variant.Registry
	events   *event.Recorder
	logger   *slog.Logger
}

// Option configures a RecordHandler.
type Option func(*RecordHandler)

// WithRecorder publishes a change event after every committed mutation.
func WithRecorder(r *event.Recorder) Option {
	return func(h *RecordHandler) { h.events = r }
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *RecordHandler) { h.logger = l }
}

// NewRecordHandler creates a RecordHandler. reg must hold the catalog's
// variants.
func NewRecordHandler(st store.Store, cat *catalog.Catalog, reg *variant.Registry, opts ...Option) *RecordHandler {
	h := &RecordHandler{store: st, catalog: cat, registry: reg, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes registers the record endpoints on r.
func (h *RecordHandler) Routes(r chi.Router) {
	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.knownKind)
		r.Get("/list", h.List)
		r.Post("/save", h.Save)
		r.Post("/update/{id}", h.Update)
		r.Delete("/delete/{id}", h.Delete)
	})
}

// knownKind rejects kinds the catalog does not declare.
func (h *RecordHandler) knownKind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := chi.URLParam(r, "kind")
		if _, ok := h.catalog.Entity(kind); !ok {
			writeError(w, http.StatusBadRequest, "UNKNOWN_KIND", "unknown kind: "+kind)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	res, err := h.store.List(r.Context(), kind, parseListQuery(r))
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	writeData(w, res)
}

func (h *RecordHandler) Save(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body: "+err.Error())
		return
	}
	if !h.validate(w, kind, rec.Values) {
		return
	}
	id, err := h.store.Create(r.Context(), kind, rec.Values)
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	h.events.Record(r.Context(), event.Created(kind, id))
	writeData(w, id)
}

// Update merges the body into the stored record. The merged record must
// still validate.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body: "+err.Error())
		return
	}
	if rec.ID != 0 && rec.ID != id {
		writeError(w, http.StatusBadRequest, "ID_MISMATCH", fmt.Sprintf("body id %d does not match path id %d", rec.ID, id))
		return
	}
	current, err := h.store.Get(r.Context(), kind, id)
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	if !h.validate(w, kind, current.WithValues(rec.Values).Values) {
		return
	}
	if err := h.store.Update(r.Context(), kind, id, rec.Values); err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	h.events.Record(r.Context(), event.Updated(kind, id))
	writeData(w, nil)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), kind, id, queryParams(r)); err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	h.events.Record(r.Context(), event.Deleted(kind, id))
	writeData(w, nil)
}

// validate checks a backend payload against the variant it selects. It
// writes the error response and returns false when the payload is rejected.
func (h *RecordHandler) validate(w http.ResponseWriter, kind string, payload map[string]any) bool {
	tag := variant.DefaultTag
	if d := h.catalog.Discriminator(kind); d != "" {
		s, _ := payload[d].(string)
		tag = s
	}
	descs, err := h.catalog.Fields(kind, tag)
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return false
	}
	values, err := h.registry.FromBackend(kind, tag, payload)
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return false
	}
	resolved, err := form.Resolve(descs, values)
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return false
	}
	if errs := form.Validate(resolved, values); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, envelope{
			ErrMsg: errs.Error(),
			Code:   "VALIDATION_ERROR",
			Data:   errs,
		})
		return false
	}
	return true
}

// Catalog serves the declaration of one kind.
func (h *RecordHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	e, ok := h.catalog.Entity(kind)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown kind: "+kind)
		return
	}
	writeData(w, catalogView{
		Kind:   kind,
		Tags:   h.catalog.Tags(kind),
		Entity: e,
	})
}

type catalogView struct {
	Kind string   `json:"kind"`
	Tags []string `json:"tags"`
	catalog.Entity
}

// Kinds lists the declared kinds.
func (h *RecordHandler) Kinds(w http.ResponseWriter, _ *http.Request) {
	writeData(w, h.catalog.Kinds())
}
