package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/crud"
)

// ModuleHandler serves the REST contract of every registered module, with the
// same statuses and messages as the generated Next.js controller.
type ModuleHandler struct {
	modules *crud.Registry
	svc     *crud.Service
	log     logrus.FieldLogger
}

func NewModuleHandler(modules *crud.Registry, svc *crud.Service, log logrus.FieldLogger) *ModuleHandler {
	return &ModuleHandler{modules: modules, svc: svc, log: log}
}

// Routes registers the module endpoints on a router mounted at
// /api/{module}/v1.
func (h *ModuleHandler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Create)
	r.Put("/", h.Update)
	r.Delete("/", h.Delete)
	r.Get("/summary", h.Summary)
}

func (h *ModuleHandler) collection(w http.ResponseWriter, r *http.Request) (*crud.Collection, bool) {
	name := chi.URLParam(r, "module")
	c, ok := h.modules.Get(name)
	if !ok {
		writeEnvelope(w, h.log, http.StatusNotFound, nil, "Module not found: "+name)
		return nil, false
	}
	return c, true
}

// fail maps service errors to the controller's responses.
func (h *ModuleHandler) fail(w http.ResponseWriter, c *crud.Collection, err error) {
	var dup *crud.DuplicateKeyError
	var verr *crud.ValidationError
	switch {
	case errors.As(err, &dup):
		writeEnvelope(w, h.log, http.StatusBadRequest, nil, dup.Error())
	case errors.As(err, &verr):
		writeEnvelope(w, h.log, http.StatusBadRequest, nil, verr.Error())
	case errors.Is(err, crud.ErrInvalidID):
		writeEnvelope(w, h.log, http.StatusBadRequest, nil, "Invalid "+c.ID.SingularLower+" id")
	case errors.Is(err, crud.ErrNotFound):
		writeEnvelope(w, h.log, http.StatusNotFound, nil, c.ID.SingularPascal+" not found")
	default:
		h.log.WithError(err).WithField("module", c.Name).Error("module request failed")
		writeEnvelope(w, h.log, http.StatusInternalServerError, nil, "Internal server error")
	}
}

// Get returns one document when ?id= is set, otherwise a page filtered by
// ?q=.
func (h *ModuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		doc, err := h.svc.Get(r.Context(), c, id)
		if err != nil {
			h.fail(w, c, err)
			return
		}
		writeEnvelope(w, h.log, http.StatusOK, doc, c.ID.SingularPascal+" fetched successfully")
		return
	}

	page, err := h.svc.List(r.Context(), c,
		queryInt(r, "page", 1), queryInt(r, "limit", crud.DefaultLimit), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, c, err)
		return
	}
	writeEnvelope(w, h.log, http.StatusOK, map[string]any{
		c.ID.ListKey: page.Items,
		"total":      page.Total,
		"page":       page.Page,
		"limit":      page.Limit,
	}, c.ID.PluralPascal+" fetched successfully")
}

func (h *ModuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	var body crud.Document
	if err := decodeJSON(r, &body); err != nil {
		writeEnvelope(w, h.log, http.StatusBadRequest, nil, err.Error())
		return
	}
	doc, err := h.svc.Create(r.Context(), c, body)
	if err != nil {
		h.fail(w, c, err)
		return
	}
	writeEnvelope(w, h.log, http.StatusCreated, doc, c.ID.SingularPascal+" created successfully")
}

// Update changes one document, or many when ?bulk=true and the body is an
// array of {_id, ...fields}.
func (h *ModuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("bulk") == "true" {
		var items []crud.Document
		if err := decodeJSON(r, &items); err != nil {
			writeEnvelope(w, h.log, http.StatusBadRequest, nil, err.Error())
			return
		}
		res, err := h.svc.BulkUpdate(r.Context(), c, items)
		if err != nil {
			h.fail(w, c, err)
			return
		}
		writeEnvelope(w, h.log, http.StatusOK, res, "Bulk update completed")
		return
	}

	var body crud.Document
	if err := decodeJSON(r, &body); err != nil {
		writeEnvelope(w, h.log, http.StatusBadRequest, nil, err.Error())
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		id, _ = body[crud.KeyID].(string)
	}
	if id == "" {
		h.fail(w, c, crud.ErrInvalidID)
		return
	}
	doc, err := h.svc.Update(r.Context(), c, id, body)
	if err != nil {
		h.fail(w, c, err)
		return
	}
	writeEnvelope(w, h.log, http.StatusOK, doc, c.ID.SingularPascal+" updated successfully")
}

// Delete removes one document by ?id=, or many when ?bulk=true with a body
// of {ids}.
func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("bulk") == "true" {
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeEnvelope(w, h.log, http.StatusBadRequest, nil, err.Error())
			return
		}
		res, err := h.svc.BulkDelete(r.Context(), c, body.IDs)
		if err != nil {
			h.fail(w, c, err)
			return
		}
		writeEnvelope(w, h.log, http.StatusOK, res, "Bulk delete completed")
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.fail(w, c, crud.ErrInvalidID)
		return
	}
	if err := h.svc.Delete(r.Context(), c, id); err != nil {
		h.fail(w, c, err)
		return
	}
	writeEnvelope(w, h.log, http.StatusOK, map[string]string{"deletedId": id}, c.ID.SingularPascal+" deleted successfully")
}

// Summary returns the total and the per-month counts of the last ?months=
// months.
func (h *ModuleHandler) Summary(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r)
	if !ok {
		return
	}
	sum, err := h.svc.Summary(r.Context(), c, queryInt(r, "months", crud.DefaultMonths))
	if err != nil {
		h.fail(w, c, err)
		return
	}
	writeEnvelope(w, h.log, http.StatusOK, sum, c.ID.PluralPascal+" summary fetched successfully")
}
