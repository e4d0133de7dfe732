// Package wire defines the WebSocket protocol for live previews.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/dashgen/internal/codegen"
	"github.com/matthewbaird/dashgen/internal/schema"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "render", "validate", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// InputData is the payload for "render" and "validate" messages. Input is
// the template input as a string or inline JSON.
type InputData struct {
	Input  json.RawMessage `json:"input"`
	Format schema.Format   `json:"format,omitempty"`
	Kinds  []string        `json:"kinds,omitempty"` // render only these artifacts
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "artifacts", "valid", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData is sent once when the connection opens.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// ArtifactsData carries a rendered preview.
type ArtifactsData struct {
	UID       string             `json:"uid"`
	Artifacts []codegen.Artifact `json:"artifacts"`
	Elapsed   string             `json:"elapsed"`
}

// ValidData confirms an input passed validation.
type ValidData struct {
	UID    string `json:"uid"`
	Module string `json:"module"`
	Fields int    `json:"fields"` // leaf count
}

// ErrorData carries an error message. Problems lists every validation
// problem when the input was rejected.
type ErrorData struct {
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Problems []schema.Problem `json:"problems,omitempty"`
}
