package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

func TestRespondJSONRendersOrderedDocumentsAsObjects(t *testing.T) {
	rec := httptest.NewRecorder()
	doc := bson.D{
		{Key: "id", Value: "e1"},
		{Key: "temperature", Value: bson.D{{Key: "value", Value: 21}}},
		{Key: "tags", Value: bson.A{"a", "b"}},
	}
	RespondJSON(rec, http.StatusOK, doc, nil)

	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("response is not a JSON object: %v", err)
	}
	if out["id"] != "e1" {
		t.Fatalf("unexpected id: %#v", out)
	}
	nested, ok := out["temperature"].(map[string]any)
	if !ok || nested["value"] != float64(21) {
		t.Fatalf("nested document not rendered as object: %#v", out["temperature"])
	}
}

func TestRespondHonorsNegotiatedText(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContextKeyAccepted, MediaText))

	t.Run("scalar bodies render as text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Respond(rec, req, http.StatusOK, 42, nil)
		if rec.Header().Get("Content-Type") != MediaText {
			t.Fatalf("expected text/plain, got %q", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != "42" {
			t.Fatalf("expected 42, got %q", rec.Body.String())
		}
	})

	t.Run("compound bodies are a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Respond(rec, req, http.StatusOK, bson.D{{Key: "id", Value: "e1"}}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRespondTextForcesCompoundToJSONEncoding(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondText(rec, http.StatusOK, bson.A{1, 2}, nil)
	if rec.Header().Get("Content-Type") != MediaText {
		t.Fatalf("expected text/plain, got %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "[1,2]" {
		t.Fatalf("expected [1,2], got %q", rec.Body.String())
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domainerrors.New(domainerrors.CodeNotFound, "entity not found"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var envelope map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope["error"] != "not_found" || envelope["description"] != "entity not found" {
		t.Fatalf("unexpected envelope: %#v", envelope)
	}
}
