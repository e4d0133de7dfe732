package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/codegen"
	"github.com/matthewbaird/dashgen/internal/generator"
	"github.com/matthewbaird/dashgen/internal/schema"
)

// Generator is the pipeline behind the generate and preview endpoints.
type Generator interface {
	Generate(ctx context.Context, raw []byte, format schema.Format) (*generator.Result, error)
	Preview(ctx context.Context, raw []byte, format schema.Format) (*generator.Result, error)
}

// GenerateRequest is the body of POST /api/generate and /api/preview. Data
// is the template input, either as a JSON-encoded string or inline.
type GenerateRequest struct {
	Data   json.RawMessage `json:"data"`
	Format schema.Format   `json:"format,omitempty"`
}

// Input returns the template input source and its format.
func (req GenerateRequest) Input() ([]byte, schema.Format, error) {
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return nil, "", errors.New("data is required")
	}
	format := req.Format
	if format == "" {
		format = schema.FormatJSON
	}
	var s string
	if err := json.Unmarshal(req.Data, &s); err == nil {
		return []byte(s), format, nil
	}
	if format != schema.FormatJSON {
		return nil, "", errors.New("data must be a string for " + string(format) + " input")
	}
	return req.Data, format, nil
}

type GenerateHandler struct {
	gen Generator
	log logrus.FieldLogger
}

func NewGenerateHandler(gen Generator, log logrus.FieldLogger) *GenerateHandler {
	return &GenerateHandler{gen: gen, log: log}
}

// lenientHint follows validation messages that only strict mode rejects.
const lenientHint = " (set generator.strict to false to render unknown types as text inputs)"

// inputFailure answers 400 with the validation message, or a generic 500.
func (h *GenerateHandler) inputFailure(w http.ResponseWriter, err error, generic string) {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		msg := err.Error()
		if verr.UnknownTypes() {
			msg += lenientHint
		}
		writeMessage(w, h.log, http.StatusBadRequest, msg)
		return
	}
	h.log.WithError(err).Error(generic)
	writeMessage(w, h.log, http.StatusInternalServerError, generic)
}

// Generate renders the module and writes it into the project.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	raw, format, err := req.Input()
	if err != nil {
		writeMessage(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.gen.Generate(r.Context(), raw, format); err != nil {
		h.inputFailure(w, err, "Failed to generate files")
		return
	}
	writeMessage(w, h.log, http.StatusOK, "Files generated successfully")
}

// PreviewResponse lists the rendered artifacts without writing them.
type PreviewResponse struct {
	UID  string             `json:"uid"`
	Data []codegen.Artifact `json:"data"`
}

func (h *GenerateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	raw, format, err := req.Input()
	if err != nil {
		writeMessage(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.gen.Preview(r.Context(), raw, format)
	if err != nil {
		h.inputFailure(w, err, "Failed to render preview")
		return
	}
	writeJSON(w, h.log, http.StatusOK, PreviewResponse{UID: res.Input.UID, Data: res.Artifacts})
}
