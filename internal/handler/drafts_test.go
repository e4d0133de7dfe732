package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/database"
	"github.com/matthewbaird/dashgen/internal/draft"
	"github.com/matthewbaird/dashgen/internal/event"
	"github.com/matthewbaird/dashgen/internal/history"
)

func newDraftRouter(t *testing.T) (http.Handler, *history.Store) {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "file:"+filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	drafts := draft.NewStore(db)
	require.NoError(t, drafts.CreateTable(ctx))
	runs := history.NewStore(db)
	require.NoError(t, runs.CreateTable(ctx))

	log, _ := test.NewNullLogger()
	dh := NewDraftHandler(drafts, log)
	r := chi.NewRouter()
	r.Get("/api/drafts", dh.List)
	r.Post("/api/drafts", dh.Save)
	r.Get("/api/drafts/{id}", dh.Get)
	r.Delete("/api/drafts/{id}", dh.Delete)
	r.Get("/api/generations", NewHistoryHandler(runs, log).List)
	return r, runs
}

func call(t *testing.T, h http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestDraftHandler(t *testing.T) {
	h, _ := newDraftRouter(t)

	body, err := json.Marshal(map[string]string{"data": postsInput})
	require.NoError(t, err)
	status, out := call(t, h, http.MethodPost, "/api/drafts", string(body))
	require.Equal(t, http.StatusOK, status)
	saved := out["data"].(map[string]any)
	id := saved["id"].(string)
	assert.Equal(t, "posts", saved["module"])

	status, out = call(t, h, http.MethodGet, "/api/drafts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, out = call(t, h, http.MethodGet, "/api/drafts/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out["data"].(map[string]any)["data"], `"title": "STRING"`)

	status, _ = call(t, h, http.MethodDelete, "/api/drafts/"+id, "")
	assert.Equal(t, http.StatusOK, status)
	status, out = call(t, h, http.MethodGet, "/api/drafts/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Draft not found", out["message"])

	status, out = call(t, h, http.MethodPost, "/api/drafts", `{"data": "{\"namingConvention\": {}}"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["message"], "schema")
}

func TestHistoryHandler(t *testing.T) {
	h, runs := newDraftRouter(t)
	ctx := context.Background()

	info := event.ModuleInfo{UID: "u1", Module: "posts"}
	require.NoError(t, runs.HandleEvent(ctx, event.NewGenerationSucceeded(info, []string{"a.ts"}, time.Second)))
	require.NoError(t, runs.HandleEvent(ctx, event.NewGenerationFailed(event.ModuleInfo{Module: "tags"}, event.StatusRejected, nil, 0)))

	status, out := call(t, h, http.MethodGet, "/api/generations", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["data"], 2)

	status, out = call(t, h, http.MethodGet, "/api/generations?module=posts", "")
	require.Equal(t, http.StatusOK, status)
	list := out["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "succeeded", list[0].(map[string]any)["status"])
}
