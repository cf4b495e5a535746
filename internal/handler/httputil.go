package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/streamconsole/internal/types"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

// envelope is the response wrapper of every API call.
type envelope struct {
	Success bool   `json:"success"`
	ErrMsg  string `json:"errMsg,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", slog.Any("error", err))
	}
}

// writeData writes a successful envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError writes a failed envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{ErrMsg: message, Code: code})
}

// decodeRecord decodes the request body as a flat record. Integral numbers
// stay int64.
func decodeRecord(r *http.Request) (types.Record, error) {
	defer r.Body.Close()
	var rec types.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return types.Record{}, err
	}
	if rec.Values == nil {
		rec.Values = map[string]any{}
	}
	return rec, nil
}

// parseID extracts and validates a numeric id path parameter.
func parseID(w http.ResponseWriter, r *http.Request, paramName string) (int64, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid id: "+raw)
		return 0, false
	}
	return id, true
}

// listParams are the reserved query parameters of a list call.
var listParams = map[string]bool{
	"pageNum": true, "pageSize": true, "sortField": true, "sortOrder": true,
}

// maxPageSize caps pageSize.
const maxPageSize = 100

// parseListQuery reads pageNum, pageSize and sorting; every other query
// parameter is an equality filter.
func parseListQuery(r *http.Request) types.ListQuery {
	params := r.URL.Query()
	q := types.ListQuery{PageNum: 1, PageSize: types.DefaultPageSize}
	if v := params.Get("pageNum"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.PageNum = n
		}
	}
	if v := params.Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.PageSize = n
		}
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if f := params.Get("sortField"); f != "" {
		order := types.SortAsc
		if types.SortOrder(params.Get("sortOrder")) == types.SortDesc {
			order = types.SortDesc
		}
		q.Sort = &types.Sort{Field: f, Order: order}
	}
	filters := make(map[string]any)
	for k, vs := range params {
		if listParams[k] || len(vs) == 0 {
			continue
		}
		filters[k] = vs[0]
	}
	q.Filters = filters
	return q
}

// queryParams flattens the query string into delete params.
func queryParams(r *http.Request) map[string]any {
	out := make(map[string]any)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

// storeErrorToHTTP maps store errors to HTTP responses.
func storeErrorToHTTP(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if errors.Is(err, variant.ErrUnknownVariant) {
		writeError(w, http.StatusBadRequest, "UNKNOWN_VARIANT", err.Error())
		return
	}
	logger.Error("internal error", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
