package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/codegen"
	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/schema"
)

// maxMessageBytes bounds a client message; the default of 32KiB is too small
// for large template inputs.
const maxMessageBytes = 4 << 20

// Previewer decodes and renders template inputs without writing them.
type Previewer interface {
	Decode(raw []byte, format schema.Format) (*schema.TemplateInput, error)
	Preview(ctx context.Context, raw []byte, format schema.Format) (*generator.Result, error)
}

// Handler manages WebSocket connections for live previews.
type Handler struct {
	sessions *Sessions
	preview  Previewer
	log      logrus.FieldLogger
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessions *Sessions, preview Previewer, log logrus.FieldLogger) *Handler {
	return &Handler{sessions: sessions, preview: preview, log: log}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.WithError(err).Warn("preview: websocket accept")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageBytes)

	sess := h.sessions.Create()
	defer h.sessions.Remove(sess.ID)
	ctx := r.Context()
	log := h.log.WithField("session", sess.ID)

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: sess.ID},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.WithField("status", websocket.CloseStatus(err)).Debug("preview: connection closed")
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case "render":
			h.handleRender(ctx, conn, msg)
		case "validate":
			h.handleValidate(ctx, conn, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, ErrorData{Code: "unknown_type", Message: fmt.Sprintf("unknown message type: %s", msg.Type)})
		}
	}
}

// input extracts the template input of a render or validate message.
func input(msg ClientMessage) ([]byte, InputData, error) {
	var data InputData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, data, errors.New("invalid " + msg.Type + " data")
	}
	if len(data.Input) == 0 || string(data.Input) == "null" {
		return nil, data, errors.New("input is required")
	}
	if data.Format == "" {
		data.Format = schema.FormatJSON
	}
	var s string
	if err := json.Unmarshal(data.Input, &s); err == nil {
		return []byte(s), data, nil
	}
	return data.Input, data, nil
}

func (h *Handler) handleRender(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	start := time.Now()
	raw, data, err := input(msg)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "invalid_data", Message: err.Error()})
		return
	}
	for _, k := range data.Kinds {
		if _, err := codegen.ParseKind(k); err != nil {
			h.sendError(ctx, conn, msg.ID, ErrorData{Code: "invalid_data", Message: err.Error()})
			return
		}
	}

	res, err := h.preview.Preview(ctx, raw, data.Format)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, h.errorData(err))
		return
	}
	arts := res.Artifacts
	if len(data.Kinds) > 0 {
		arts = slices.DeleteFunc(slices.Clone(arts), func(a codegen.Artifact) bool {
			return !slices.Contains(data.Kinds, string(a.Kind))
		})
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "artifacts",
		RequestID: msg.ID,
		Data: ArtifactsData{
			UID:       res.Input.UID,
			Artifacts: arts,
			Elapsed:   time.Since(start).String(),
		},
	})
}

func (h *Handler) handleValidate(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	raw, data, err := input(msg)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "invalid_data", Message: err.Error()})
		return
	}
	in, err := h.preview.Decode(raw, data.Format)
	if err != nil {
		h.sendError(ctx, conn, msg.ID, h.errorData(err))
		return
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "valid",
		RequestID: msg.ID,
		Data: ValidData{
			UID:    in.UID,
			Module: naming.RouteSegment(in.NamingConvention.PluralLower),
			Fields: len(schema.Flatten(in.Schema)),
		},
	})
}

func (h *Handler) errorData(err error) ErrorData {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return ErrorData{Code: "invalid_input", Message: err.Error(), Problems: verr.Problems}
	}
	h.log.WithError(err).Error("preview: render failed")
	return ErrorData{Code: "render_error", Message: "Failed to render preview"}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.WithError(err).Debug("preview: write error")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID string, data ErrorData) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      data,
	})
}
