package broker

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leukaemiamedtech/hiascdi/internal/telemetry"
)

// Discovery serves the API root: the resource URLs a client needs to
// navigate the broker, plus a vitals snapshot.
type Discovery struct {
	logger     *slog.Logger
	apiVersion string
}

func NewDiscovery(apiVersion string, logger *slog.Logger) *Discovery {
	return &Discovery{logger: logger, apiVersion: apiVersion}
}

// Register registers the discovery route with the chi router.
func (d *Discovery) Register(r chi.Router) {
	r.Get("/", d.handleRoot)
}

func (d *Discovery) handleRoot(w http.ResponseWriter, r *http.Request) {
	vitals := telemetry.Sample(r.Context())
	body := map[string]any{
		"entities_url":      fmt.Sprintf("/%s/entities", d.apiVersion),
		"types_url":         fmt.Sprintf("/%s/types", d.apiVersion),
		"subscriptions_url": fmt.Sprintf("/%s/subscriptions", d.apiVersion),
		"vitals":            vitals,
	}
	Respond(w, r, http.StatusOK, body, nil)
}
