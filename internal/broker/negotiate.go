// Package broker implements the content negotiation and response codec
// every endpoint runs through: Accept/Content-Type gating before any
// business logic, and pretty-JSON or scalar-text serialization after it.
package broker

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/munnerz/goautoneg"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

type contextKeyAccepted struct{}

// ContextKeyAccepted carries the negotiated response media type.
var ContextKeyAccepted = contextKeyAccepted{}

// Negotiated returns the media type negotiated for the response, defaulting
// to JSON when the middleware did not run (tests hitting handlers directly).
func Negotiated(ctx context.Context) string {
	if mt, ok := ctx.Value(ContextKeyAccepted).(string); ok && mt != "" {
		return mt
	}
	return MediaJSON
}

const (
	// MediaJSON and MediaText are the representations this broker serves.
	MediaJSON = "application/json"
	MediaText = "text/plain"
)

// Negotiator gates requests on their Accept and Content-Type headers
// against the configured acceptable set.
type Negotiator struct {
	accepted []string
	logger   *slog.Logger
}

// NewNegotiator builds a Negotiator for the configured media types.
func NewNegotiator(accepted []string, logger *slog.Logger) *Negotiator {
	return &Negotiator{accepted: accepted, logger: logger}
}

// NegotiateAccept resolves the request's Accept header against the
// configured set. A missing header or one naming no supported type is a
// not_acceptable error.
func (n *Negotiator) NegotiateAccept(r *http.Request) (string, error) {
	header := r.Header.Get("Accept")
	if header == "" {
		return "", domainerrors.New(domainerrors.CodeNotAcceptable, "no acceptable representation")
	}
	best := goautoneg.Negotiate(header, n.accepted)
	if best == "" {
		return "", domainerrors.New(domainerrors.CodeNotAcceptable, "no acceptable representation")
	}
	return best, nil
}

// CheckContentType verifies that a request carrying a body declares a
// supported media type.
func (n *Negotiator) CheckContentType(r *http.Request) error {
	header := r.Header.Get("Content-Type")
	if header == "" {
		return domainerrors.New(domainerrors.CodeUnsupportedMedia, "unsupported media type")
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return domainerrors.New(domainerrors.CodeUnsupportedMedia, "unsupported media type")
	}
	for _, accepted := range n.accepted {
		if mediaType == accepted {
			return nil
		}
	}
	return domainerrors.New(domainerrors.CodeUnsupportedMedia, "unsupported media type")
}

// Middleware runs the negotiation checks before any handler and stores the
// negotiated response type in the request context. Negotiation failures
// never reach the store.
func (n *Negotiator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		best, err := n.NegotiateAccept(r)
		if err != nil {
			WriteError(w, err)
			return
		}
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if err := n.CheckContentType(r); err != nil {
				WriteError(w, err)
				return
			}
		}
		ctx := context.WithValue(r.Context(), ContextKeyAccepted, best)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
