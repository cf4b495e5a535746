package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/event"
	"github.com/matthewbaird/streamconsole/internal/handler"
	"github.com/matthewbaird/streamconsole/internal/store"
	"github.com/matthewbaird/streamconsole/internal/types"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

type publisher struct {
	mu  sync.Mutex
	got []types.ChangeEvent
}

func (p *publisher) Publish(_ context.Context, evt types.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, evt)
}

type response struct {
	Success bool            `json:"success"`
	ErrMsg  string          `json:"errMsg"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	srv    *httptest.Server
	store  *store.MemoryStore
	events *publisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	reg := variant.NewRegistry()
	require.NoError(t, cat.Register(reg))

	st := store.NewMemoryStore()
	pub := &publisher{}
	h := handler.NewRecordHandler(st, cat, reg, handler.WithRecorder(event.NewRecorder(pub)))
	srv := httptest.NewServer(handler.NewRouter(h, nil))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: st, events: pub}
}

func (f *fixture) call(t *testing.T, method, path string, body any) (int, response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func hiveSink(name string) map[string]any {
	return map[string]any{
		"inlongGroupId":  "g1",
		"inlongStreamId": "s1",
		"sinkName":       name,
		"sinkType":       "HIVE",
		"dbName":         "db",
		"tableName":      "t",
	}
}

func TestSaveAndList(t *testing.T) {
	f := newFixture(t)

	status, res := f.call(t, http.MethodPost, "/api/sink/save", hiveSink("orders"))
	require.Equal(t, http.StatusOK, status, res.ErrMsg)
	assert.True(t, res.Success)
	assert.JSONEq(t, `1`, string(res.Data))

	f.call(t, http.MethodPost, "/api/sink/save", hiveSink("clicks"))

	status, res = f.call(t, http.MethodGet, "/api/sink/list?pageNum=1&pageSize=10&keyword=ORD", nil)
	require.Equal(t, http.StatusOK, status)
	var page types.ListResult
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, int64(1), page.List[0].ID)
	assert.Equal(t, "orders", page.List[0].Values["sinkName"])

	require.Len(t, f.events.got, 2)
	assert.Equal(t, types.OpCreated, f.events.got[0].Op)
	assert.Equal(t, "sink", f.events.got[0].Kind)
}

func TestSave_ValidationError(t *testing.T) {
	f := newFixture(t)
	payload := hiveSink("orders")
	delete(payload, "dbName")

	status, res := f.call(t, http.MethodPost, "/api/sink/save", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)
	assert.Contains(t, string(res.Data), `"dbName"`)
	assert.Empty(t, f.events.got)
}

func TestSave_DecodesEncodedFields(t *testing.T) {
	f := newFixture(t)
	payload := map[string]any{
		"consumerGroup":  "cg",
		"inlongGroupId":  "g1",
		"filterEnabled":  true,
		"inlongStreamId": "",
	}
	status, res := f.call(t, http.MethodPost, "/api/consume/save", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(res.Data), `"inlongStreamId"`)

	payload["inlongStreamId"] = "s1,s2"
	status, res = f.call(t, http.MethodPost, "/api/consume/save", payload)
	assert.Equal(t, http.StatusOK, status, res.ErrMsg)
}

func TestSave_UnknownKindAndVariant(t *testing.T) {
	f := newFixture(t)

	status, res := f.call(t, http.MethodGet, "/api/lease/list", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNKNOWN_KIND", res.Code)

	payload := hiveSink("orders")
	payload["sinkType"] = "ORACLE"
	status, res = f.call(t, http.MethodPost, "/api/sink/save", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNKNOWN_VARIANT", res.Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/api/sink/save", hiveSink("orders"))

	status, res := f.call(t, http.MethodPost, "/api/sink/update/1", map[string]any{"id": 1, "tableName": "t2"})
	require.Equal(t, http.StatusOK, status, res.ErrMsg)

	rec, err := f.store.Get(context.Background(), "sink", 1)
	require.NoError(t, err)
	assert.Equal(t, "t2", rec.Values["tableName"])
	assert.Equal(t, "orders", rec.Values["sinkName"])

	// the merged record must still validate
	status, res = f.call(t, http.MethodPost, "/api/sink/update/1", map[string]any{"tableName": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", res.Code)

	status, res = f.call(t, http.MethodPost, "/api/sink/update/1", map[string]any{"id": 2})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ID_MISMATCH", res.Code)

	status, res = f.call(t, http.MethodPost, "/api/sink/update/9", map[string]any{"tableName": "x"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", res.Code)

	status, _ = f.call(t, http.MethodPost, "/api/sink/update/abc", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	require.Len(t, f.events.got, 2)
	assert.Equal(t, types.OpUpdated, f.events.got[1].Op)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.call(t, http.MethodPost, "/api/sink/save", hiveSink("orders"))

	status, res := f.call(t, http.MethodDelete, "/api/sink/delete/1?sinkType=KAFKA", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, res.Success)

	status, res = f.call(t, http.MethodDelete, "/api/sink/delete/1?sinkType=HIVE", nil)
	require.Equal(t, http.StatusOK, status, res.ErrMsg)
	assert.True(t, res.Success)

	status, _ = f.call(t, http.MethodDelete, "/api/sink/delete/1?sinkType=HIVE", nil)
	assert.Equal(t, http.StatusNotFound, status)

	require.Len(t, f.events.got, 2)
	assert.Equal(t, types.OpDeleted, f.events.got[1].Op)
	assert.Equal(t, int64(1), f.events.got[1].RecordID)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)

	status, res := f.call(t, http.MethodGet, "/v1/catalog/sink", nil)
	require.Equal(t, http.StatusOK, status)
	var view map[string]any
	require.NoError(t, json.Unmarshal(res.Data, &view))
	assert.Equal(t, "sink", view["kind"])
	assert.Equal(t, "sinkType", view["discriminator"])
	assert.Equal(t, []any{"HIVE", "KAFKA"}, view["tags"])

	status, _ = f.call(t, http.MethodGet, "/v1/catalog/lease", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, res = f.call(t, http.MethodGet, "/v1/catalog", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(res.Data), `"node"`)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
