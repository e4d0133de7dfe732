package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/draft"
	"github.com/matthewbaird/dashgen/internal/history"
	"github.com/matthewbaird/dashgen/internal/schema"
)

// DraftStore is the persistence behind the drafts endpoints.
type DraftStore interface {
	Save(ctx context.Context, in *schema.TemplateInput) (draft.Draft, error)
	Get(ctx context.Context, id string) (draft.Draft, error)
	List(ctx context.Context) ([]draft.Draft, error)
	Delete(ctx context.Context, id string) error
}

type DraftHandler struct {
	drafts DraftStore
	log    logrus.FieldLogger
}

func NewDraftHandler(drafts DraftStore, log logrus.FieldLogger) *DraftHandler {
	return &DraftHandler{drafts: drafts, log: log}
}

func (h *DraftHandler) storeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, draft.ErrNotFound) {
		writeMessage(w, h.log, http.StatusNotFound, "Draft not found")
		return
	}
	h.log.WithError(err).Error("draft request failed")
	writeMessage(w, h.log, http.StatusInternalServerError, "Internal server error")
}

func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.drafts.List(r.Context())
	if err != nil {
		h.storeFailure(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"data": drafts})
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeFailure(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"data": d})
}

// Save stores the input in the body. Drafts are only loaded, not validated,
// so work in progress with unknown tags can be kept.
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
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
	in, err := schema.Load(raw, format)
	if err != nil {
		writeMessage(w, h.log, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.drafts.Save(r.Context(), in)
	if err != nil {
		h.storeFailure(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"data": d, "message": "Draft saved"})
}

func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeFailure(w, err)
		return
	}
	writeMessage(w, h.log, http.StatusOK, "Draft deleted")
}

// RunLister is the history query behind GET /api/generations.
type RunLister interface {
	List(ctx context.Context, module string, limit int) ([]history.Run, error)
}

type HistoryHandler struct {
	runs RunLister
	log  logrus.FieldLogger
}

func NewHistoryHandler(runs RunLister, log logrus.FieldLogger) *HistoryHandler {
	return &HistoryHandler{runs: runs, log: log}
}

// List returns recent generation runs, optionally filtered by ?module=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.List(r.Context(), r.URL.Query().Get("module"), queryInt(r, "limit", 50))
	if err != nil {
		h.log.WithError(err).Error("listing generation runs")
		writeMessage(w, h.log, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{"data": runs})
}
