package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/activity"
	"github.com/matthewbaird/streamconsole/internal/catalog"
	"github.com/matthewbaird/streamconsole/internal/handler"
	"github.com/matthewbaird/streamconsole/internal/store"
	"github.com/matthewbaird/streamconsole/internal/types"
	"github.com/matthewbaird/streamconsole/internal/variant"
)

type historyPage struct {
	List       []activity.Entry `json:"list"`
	Total      int              `json:"total"`
	NextCursor string           `json:"nextCursor"`
}

func newActivityServer(t *testing.T) (*httptest.Server, *activity.MemoryStore) {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	reg := variant.NewRegistry()
	require.NoError(t, cat.Register(reg))

	hist := activity.NewMemoryStore()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, hist.WriteEntries(context.Background(), []activity.Entry{
		{EventID: "a", Kind: "sink", RecordID: 1, Op: types.OpCreated, OccurredAt: at},
		{EventID: "b", Kind: "sink", RecordID: 1, Op: types.OpUpdated, OccurredAt: at.Add(time.Minute)},
		{EventID: "c", Kind: "sink", RecordID: 1, Op: types.OpUpdated, OccurredAt: at.Add(2 * time.Minute)},
		{EventID: "d", Kind: "node", RecordID: 2, Op: types.OpCreated, OccurredAt: at.Add(3 * time.Minute)},
	}))

	records := handler.NewRecordHandler(store.NewMemoryStore(), cat, reg)
	hh := handler.NewActivityHandler(hist, cat, nil)
	srv := httptest.NewServer(handler.NewRouter(records, nil, func(r chi.Router) {
		r.Route("/v1/activity", hh.Routes)
	}))
	t.Cleanup(srv.Close)
	return srv, hist
}

func getHistory(t *testing.T, url string) (int, response, historyPage) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var page historyPage
	if env.Success {
		require.NoError(t, json.Unmarshal(env.Data, &page))
	}
	return resp.StatusCode, env, page
}

func TestActivity_HistoryPages(t *testing.T) {
	srv, _ := newActivityServer(t)

	status, _, page := getHistory(t, srv.URL+"/v1/activity/sink/1?limit=2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.List, 2)
	assert.Equal(t, "c", page.List[0].EventID)
	require.NotEmpty(t, page.NextCursor)

	_, _, page = getHistory(t, srv.URL+"/v1/activity/sink/1?limit=2&cursor="+page.NextCursor)
	require.Len(t, page.List, 1)
	assert.Equal(t, "a", page.List[0].EventID)
	assert.Empty(t, page.NextCursor)

	_, _, page = getHistory(t, srv.URL+"/v1/activity/sink/1?op=created")
	assert.Equal(t, 1, page.Total)
}

func TestActivity_Recent(t *testing.T) {
	srv, _ := newActivityServer(t)

	_, _, page := getHistory(t, srv.URL+"/v1/activity/")
	assert.Equal(t, 4, page.Total)
	require.NotEmpty(t, page.List)
	assert.Equal(t, "d", page.List[0].EventID)

	_, _, page = getHistory(t, srv.URL+"/v1/activity/?kind=sink&op=updated")
	assert.Equal(t, 2, page.Total)
}

func TestActivity_Rejects(t *testing.T) {
	srv, _ := newActivityServer(t)

	cases := map[string]string{
		"/v1/activity/robot/1":                 "UNKNOWN_KIND",
		"/v1/activity/sink/zero":               "INVALID_ID",
		"/v1/activity/sink/1?cursor=yesterday": "INVALID_CURSOR",
		"/v1/activity/sink/1?since=monday":     "INVALID_TIME",
		"/v1/activity/?kind=robot":             "UNKNOWN_KIND",
	}
	for path, code := range cases {
		t.Run(path, func(t *testing.T) {
			status, env, _ := getHistory(t, srv.URL+path)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, code, env.Code)
		})
	}
}
