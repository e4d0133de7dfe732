package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/crud"
	"github.com/matthewbaird/dashgen/internal/schema"
)

const postsInput = `{
	"schema": {"title": "STRING", "author": {"name": "STRING", "email": "EMAIL"}, "views": "INTNUMBER", "status": "SELECT#Draft,Published"},
	"namingConvention": {"Users_1_000___": "Posts", "users_2_000___": "posts", "User_3_000___": "Post", "user_4_000___": "post"}
}`

type response struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

func newModuleRouter(t *testing.T, store *crud.MemoryStore) http.Handler {
	t.Helper()
	log, _ := test.NewNullLogger()
	reg := crud.NewRegistry(store)
	in, err := schema.Load([]byte(postsInput), schema.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, schema.Validate(in, schema.DefaultOptions()))
	_, err = reg.Register(context.Background(), in)
	require.NoError(t, err)

	h := NewModuleHandler(reg, crud.NewService(store), log)
	r := chi.NewRouter()
	r.Route("/api/{module}/v1", h.Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func TestModuleHandler_CRUD(t *testing.T) {
	h := newModuleRouter(t, crud.NewMemoryStore())

	rec, resp := do(t, h, http.MethodPost, "/api/posts/v1", map[string]any{
		"title":  "Hello",
		"author": map[string]any{"name": "Ada", "email": "ada@example.com"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Post created successfully", resp.Message)
	assert.Equal(t, http.StatusCreated, resp.Status)
	var created map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	id := created["_id"].(string)
	assert.Equal(t, "Draft", created["status"])
	assert.Equal(t, float64(0), created["views"])

	rec, resp = do(t, h, http.MethodGet, "/api/posts/v1?id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post fetched successfully", resp.Message)

	rec, resp = do(t, h, http.MethodGet, "/api/posts/v1?page=1&limit=5&q=hel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Posts fetched successfully", resp.Message)
	var page struct {
		Posts []map[string]any `json:"posts"`
		Total int              `json:"total"`
		Page  int              `json:"page"`
		Limit int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Len(t, page.Posts, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.Limit)

	rec, resp = do(t, h, http.MethodPut, "/api/posts/v1?id="+id, map[string]any{"views": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post updated successfully", resp.Message)

	rec, resp = do(t, h, http.MethodPut, "/api/posts/v1", map[string]any{"_id": id, "status": "Published"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "Published", updated["status"])
	assert.Equal(t, float64(3), updated["views"])

	rec, resp = do(t, h, http.MethodDelete, "/api/posts/v1?id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post deleted successfully", resp.Message)
	assert.JSONEq(t, `{"deletedId":"`+id+`"}`, string(resp.Data))

	rec, resp = do(t, h, http.MethodGet, "/api/posts/v1?id="+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", resp.Message)
}

func TestModuleHandler_DuplicateKey(t *testing.T) {
	h := newModuleRouter(t, crud.NewMemoryStore())

	body := map[string]any{"title": "A", "author": map[string]any{"email": "a@b.co"}}
	rec, _ := do(t, h, http.MethodPost, "/api/posts/v1", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := do(t, h, http.MethodPost, "/api/posts/v1", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Duplicate key error: {"author.email":"a@b.co"}`, resp.Message)
	assert.Equal(t, "null", string(resp.Data))
}

func TestModuleHandler_Bulk(t *testing.T) {
	const (
		idA     = "00000000-0000-4000-8000-00000000000a"
		idB     = "00000000-0000-4000-8000-00000000000b"
		missing = "00000000-0000-4000-8000-0000000000ff"
	)
	store := crud.NewMemoryStore()
	ids := []string{idA, idB}
	store.NewID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	h := newModuleRouter(t, store)
	for _, title := range []string{"first", "second"} {
		rec, _ := do(t, h, http.MethodPost, "/api/posts/v1", map[string]any{"title": title})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, resp := do(t, h, http.MethodPut, "/api/posts/v1?bulk=true", []map[string]any{
		{"_id": idA, "status": "Published"},
		{"_id": "zzz", "status": "Published"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bulk update completed", resp.Message)
	assert.JSONEq(t, `{"updated":1,"updatedIds":["`+idA+`"],"invalidIds":["zzz"]}`, string(resp.Data))

	rec, resp = do(t, h, http.MethodDelete, "/api/posts/v1?bulk=true", map[string]any{"ids": []string{idA, missing, idB}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bulk delete completed", resp.Message)
	assert.JSONEq(t, `{"deleted":2,"deletedIds":["`+idA+`","`+idB+`"],"invalidIds":["`+missing+`"]}`, string(resp.Data))
}

func TestModuleHandler_Errors(t *testing.T) {
	h := newModuleRouter(t, crud.NewMemoryStore())

	tests := []struct {
		name    string
		method  string
		target  string
		body    any
		status  int
		message string
	}{
		{"unknown module", http.MethodGet, "/api/widgets/v1", nil, http.StatusNotFound, "Module not found: widgets"},
		{"malformed id", http.MethodGet, "/api/posts/v1?id=nope", nil, http.StatusBadRequest, "Invalid post id"},
		{"unknown id", http.MethodGet, "/api/posts/v1?id=00000000-0000-4000-8000-0000000000ff", nil, http.StatusNotFound, "Post not found"},
		{"delete without id", http.MethodDelete, "/api/posts/v1", nil, http.StatusBadRequest, "Invalid post id"},
		{"update without id", http.MethodPut, "/api/posts/v1", map[string]any{"title": "x"}, http.StatusBadRequest, "Invalid post id"},
		{"bad enum", http.MethodPost, "/api/posts/v1", map[string]any{"status": "Gone"}, http.StatusBadRequest, "Post validation failed: status: Gone is not a valid enum value"},
		{"empty body", http.MethodPost, "/api/posts/v1", nil, http.StatusBadRequest, "request body is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestModuleHandler_Summary(t *testing.T) {
	h := newModuleRouter(t, crud.NewMemoryStore())
	for range 3 {
		rec, _ := do(t, h, http.MethodPost, "/api/posts/v1", map[string]any{"title": "x"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, resp := do(t, h, http.MethodGet, "/api/posts/v1/summary?months=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Posts summary fetched successfully", resp.Message)
	var sum crud.Summary
	require.NoError(t, json.Unmarshal(resp.Data, &sum))
	assert.Equal(t, int64(3), sum.Total)
	require.Len(t, sum.Monthly, 1)
	assert.Equal(t, int64(3), sum.Monthly[0].Count)
}
