package types

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/leukaemiamedtech/hiascdi/internal/broker"
)

func newTypeRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := NewService(NewMemoryStore(), logger, "v1")
	negotiator := broker.NewNegotiator([]string{"application/json", "text/plain"}, logger)

	h := NewHandler(svc, logger)
	r := chi.NewRouter()
	r.Use(negotiator.Middleware)
	h.Register(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(buf)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetType(t *testing.T) {
	router := newTypeRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/types", map[string]any{
		"type":        "Device",
		"description": "connected devices",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "v1/types/Device" {
		t.Fatalf("unexpected Location: %q", loc)
	}

	rec = doJSON(t, router, http.MethodGet, "/types/Device", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var doc map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode type: %v", err)
	}
	if doc["description"] != "connected devices" {
		t.Fatalf("unexpected descriptor: %#v", doc)
	}
	if _, ok := doc["type"]; ok {
		t.Fatalf("type key must not echo in the descriptor: %#v", doc)
	}
}

func TestCreateTypeRequiresName(t *testing.T) {
	router := newTypeRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/types", map[string]any{"description": "nameless"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListTypes(t *testing.T) {
	router := newTypeRouter(t)
	for _, name := range []string{"Device", "Robotics", "Zone"} {
		rec := doJSON(t, router, http.MethodPost, "/types", map[string]any{"type": name})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d", rec.Code)
		}
	}

	t.Run("count header and paging window", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/types?options=count&limit=2", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Count"); got != "3" {
			t.Fatalf("expected Count 3, got %q", got)
		}
		var listed []map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
			t.Fatalf("failed to decode list: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 windowed types, got %d", len(listed))
		}
	})

	t.Run("values option lists names only", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/types?options=values", nil)
		var names []string
		if err := json.NewDecoder(rec.Body).Decode(&names); err != nil {
			t.Fatalf("failed to decode names: %v", err)
		}
		if len(names) != 3 || names[0] != "Device" {
			t.Fatalf("unexpected names: %#v", names)
		}
	})
}

func TestUpdateType(t *testing.T) {
	router := newTypeRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/types", map[string]any{"type": "Device"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed failed: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPatch, "/types/Device", map[string]any{"description": "updated"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/types/Device", nil)
	var doc map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode type: %v", err)
	}
	if doc["description"] != "updated" {
		t.Fatalf("unexpected descriptor: %#v", doc)
	}

	rec = doJSON(t, router, http.MethodPatch, "/types/Missing", map[string]any{"description": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown type, got %d", rec.Code)
	}
}

func TestGetUnknownType(t *testing.T) {
	router := newTypeRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/types/Missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
