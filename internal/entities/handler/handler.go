// Package handler exposes the entity endpoints. It delegates to the entity
// service without embedding business logic so transport concerns remain
// isolated.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leukaemiamedtech/hiascdi/internal/broker"
	"github.com/leukaemiamedtech/hiascdi/internal/entities/service"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/middleware"
	"github.com/leukaemiamedtech/hiascdi/internal/query"
	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

// Handler handles entity-related endpoints.
type Handler struct {
	logger   *slog.Logger
	entities *service.Service
}

// New creates a new entity Handler.
func New(entities *service.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, entities: entities}
}

// Register registers the entity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/entities", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{entityID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleDelete)
			r.Route("/attrs", func(r chi.Router) {
				r.Post("/", h.handleAppend)
				r.Patch("/", h.handleUpdate)
				r.Put("/", h.handleReplace)
				r.Route("/{attrName}", func(r chi.Router) {
					r.Get("/", h.handleGetAttribute)
					r.Put("/", h.handlePutAttribute)
					r.Delete("/", h.handleDeleteAttribute)
					r.Get("/value", h.handleGetAttributeValue)
					r.Put("/value", h.handlePutAttributeValue)
				})
			})
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	body, count, err := h.entities.List(r.Context(), r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	headers := map[string]string{}
	if count != nil {
		headers["Count"] = strconv.FormatInt(*count, 10)
	}
	broker.Respond(w, r, http.StatusOK, body, headers)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := broker.DecodeJSONBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	location, err := h.entities.Create(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.Respond(w, r, http.StatusCreated, map[string]any{}, map[string]string{"Location": location})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	entityType, ok := h.requireType(w, r)
	if !ok {
		return
	}
	body, err := h.entities.Get(r.Context(), chi.URLParam(r, "entityID"), entityType, r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.Respond(w, r, http.StatusOK, body, nil)
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireType(w, r); !ok {
		return
	}
	body, err := broker.DecodeJSONBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	opts := query.ParseOptions(r.URL.Query().Get("options"))
	if err := h.entities.Append(r.Context(), chi.URLParam(r, "entityID"), body, opts.Append); err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireType(w, r); !ok {
		return
	}
	body, err := broker.DecodeJSONBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.entities.Update(r.Context(), chi.URLParam(r, "entityID"), body); err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireType(w, r); !ok {
		return
	}
	body, err := broker.DecodeJSONBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.entities.Replace(r.Context(), chi.URLParam(r, "entityID"), body); err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	attr, err := h.entities.GetAttribute(r.Context(),
		chi.URLParam(r, "entityID"), r.URL.Query().Get("type"), chi.URLParam(r, "attrName"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.Respond(w, r, http.StatusOK, attr, nil)
}

// handleGetAttributeValue always answers text/plain, regardless of the
// negotiated type.
func (h *Handler) handleGetAttributeValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.entities.GetAttributeValue(r.Context(),
		chi.URLParam(r, "entityID"), r.URL.Query().Get("type"), chi.URLParam(r, "attrName"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.RespondText(w, http.StatusOK, value, nil)
}

func (h *Handler) handlePutAttribute(w http.ResponseWriter, r *http.Request) {
	value, err := h.decodeAttributeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.entities.SetAttribute(r.Context(),
		chi.URLParam(r, "entityID"), r.URL.Query().Get("type"), chi.URLParam(r, "attrName"), value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) handlePutAttributeValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.decodeAttributeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	err = h.entities.SetAttributeValue(r.Context(),
		chi.URLParam(r, "entityID"), r.URL.Query().Get("type"), chi.URLParam(r, "attrName"), value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) handleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	err := h.entities.DeleteAttribute(r.Context(),
		chi.URLParam(r, "entityID"), r.URL.Query().Get("type"), chi.URLParam(r, "attrName"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.entities.Delete(r.Context(), r.URL.Query().Get("type"), chi.URLParam(r, "entityID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

// decodeAttributeBody reads the attribute payload: text bodies go through
// the scalar coercion rules, JSON bodies may be any JSON value.
func (h *Handler) decodeAttributeBody(r *http.Request) (any, error) {
	if broker.IsTextRequest(r) {
		raw, err := broker.ReadTextBody(r)
		if err != nil {
			return nil, err
		}
		return service.CoerceScalar(raw)
	}
	return broker.DecodeJSONValue(r)
}

func (h *Handler) requireType(w http.ResponseWriter, r *http.Request) (string, bool) {
	entityType := r.URL.Query().Get("type")
	if entityType == "" {
		h.writeError(w, r, domainerrors.New(domainerrors.CodeBadRequest, "type parameter is required"))
		return "", false
	}
	return entityType, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "entity request failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err.Error(),
	)
	broker.WriteError(w, err)
}
