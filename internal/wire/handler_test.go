package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/schema"
	"github.com/matthewbaird/dashgen/internal/writer"
)

type reply struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *Sessions, context.Context) {
	t.Helper()
	log, _ := test.NewNullLogger()
	gen := generator.New(generator.Config{
		Writer: writer.New(t.TempDir(), log),
		Schema: schema.DefaultOptions(),
		Log:    log,
	})
	sessions := NewSessions()
	srv := httptest.NewServer(NewHandler(sessions, gen, log))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn.SetReadLimit(8 << 20)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	var hello reply
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	require.Equal(t, "session", hello.Type)
	return conn, sessions, ctx
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, msg map[string]any) reply {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
	var r reply
	require.NoError(t, wsjson.Read(ctx, conn, &r))
	return r
}

func finance(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "examples", "templates", "finance.json"))
	require.NoError(t, err)
	return string(raw)
}

func TestHandler_PingAndUnknown(t *testing.T) {
	conn, sessions, ctx := dial(t)
	assert.Equal(t, 1, sessions.Len())

	r := roundTrip(t, ctx, conn, map[string]any{"type": "ping", "id": "1"})
	assert.Equal(t, "pong", r.Type)
	assert.Equal(t, "1", r.RequestID)

	r = roundTrip(t, ctx, conn, map[string]any{"type": "explode", "id": "2"})
	assert.Equal(t, "error", r.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(r.Data, &e))
	assert.Equal(t, "unknown_type", e.Code)
}

func TestHandler_Render(t *testing.T) {
	conn, _, ctx := dial(t)

	r := roundTrip(t, ctx, conn, map[string]any{"type": "render", "id": "r1", "data": map[string]any{"input": finance(t)}})
	require.Equal(t, "artifacts", r.Type, string(r.Data))
	var data ArtifactsData
	require.NoError(t, json.Unmarshal(r.Data, &data))
	assert.Len(t, data.Artifacts, 16)
	assert.NotEmpty(t, data.UID)

	r = roundTrip(t, ctx, conn, map[string]any{
		"type": "render", "id": "r2",
		"data": map[string]any{"input": json.RawMessage(finance(t)), "kinds": []string{"model", "route"}},
	})
	require.Equal(t, "artifacts", r.Type)
	require.NoError(t, json.Unmarshal(r.Data, &data))
	require.Len(t, data.Artifacts, 2)
	assert.Equal(t, "src/app/api/finances/v1/model.ts", data.Artifacts[0].Path)

	r = roundTrip(t, ctx, conn, map[string]any{"type": "render", "id": "r3", "data": map[string]any{"input": finance(t), "kinds": []string{"widget"}}})
	assert.Equal(t, "error", r.Type)
}

func TestHandler_Validate(t *testing.T) {
	conn, _, ctx := dial(t)

	r := roundTrip(t, ctx, conn, map[string]any{"type": "validate", "id": "v1", "data": map[string]any{"input": finance(t)}})
	require.Equal(t, "valid", r.Type, string(r.Data))
	var ok ValidData
	require.NoError(t, json.Unmarshal(r.Data, &ok))
	assert.Equal(t, "finances", ok.Module)
	assert.Positive(t, ok.Fields)

	bad := `{"schema": {"a": "NOPE", "b": "ALSO_NOPE"}, "namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}}`
	r = roundTrip(t, ctx, conn, map[string]any{"type": "validate", "id": "v2", "data": map[string]any{"input": bad}})
	require.Equal(t, "error", r.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(r.Data, &e))
	assert.Equal(t, "invalid_input", e.Code)
	require.Len(t, e.Problems, 2)
	assert.Equal(t, "a", e.Problems[0].Path)

	r = roundTrip(t, ctx, conn, map[string]any{"type": "validate", "id": "v3", "data": map[string]any{}})
	require.Equal(t, "error", r.Type)
	require.NoError(t, json.Unmarshal(r.Data, &e))
	assert.Equal(t, "invalid_data", e.Code)
}
