package subscriptions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leukaemiamedtech/hiascdi/internal/broker"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/middleware"
)

// Handler handles the subscription endpoints.
type Handler struct {
	logger        *slog.Logger
	subscriptions *Service
}

// NewHandler creates a new subscription Handler.
func NewHandler(subscriptions *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, subscriptions: subscriptions}
}

// Register registers the subscription routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{subscriptionID}", h.handleGet)
		r.Patch("/{subscriptionID}", h.handleUpdate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	body, count, err := h.subscriptions.List(r.Context(), r.URL.Query())
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
	location, err := h.subscriptions.Create(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.Respond(w, r, http.StatusCreated, map[string]any{}, map[string]string{"Location": location})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	body, err := h.subscriptions.Get(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.Respond(w, r, http.StatusOK, body, nil)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := broker.DecodeJSONBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.subscriptions.Update(r.Context(), chi.URLParam(r, "subscriptionID"), body); err != nil {
		h.writeError(w, r, err)
		return
	}
	broker.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "subscription request failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err.Error(),
	)
	broker.WriteError(w, err)
}
