package service

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/internal/entities/store"
	"github.com/leukaemiamedtech/hiascdi/internal/query"
	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

func newService() (*Service, *store.Memory) {
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(mem, logger, nil, "v1"), mem
}

func seed(t *testing.T, svc *Service, docs ...map[string]any) {
	t.Helper()
	for _, doc := range docs {
		if _, err := svc.Create(context.Background(), doc); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	t.Run("returns the canonical location", func(t *testing.T) {
		location, err := svc.Create(ctx, map[string]any{"id": "e1", "type": "Device"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if location != "v1/entities/e1?type=Device" {
			t.Fatalf("unexpected location: %s", location)
		}
	})

	t.Run("unknown type falls back to Thing", func(t *testing.T) {
		location, err := svc.Create(ctx, map[string]any{"id": "e2", "type": "Spaceship"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if location != "v1/entities/e2?type=Thing" {
			t.Fatalf("unexpected location: %s", location)
		}
	})

	t.Run("missing id is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, map[string]any{"type": "Device"})
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("duplicate identity is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, map[string]any{"id": "e1", "type": "Device"})
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})
}

func TestListShapesAndCount(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	seed(t, svc,
		map[string]any{"id": "e1", "type": "Device", "temperature": map[string]any{"value": 21, "type": "Number"}},
		map[string]any{"id": "e2", "type": "Device", "temperature": map[string]any{"value": 30, "type": "Number"}},
	)

	t.Run("count reflects matches before the window", func(t *testing.T) {
		_, count, err := svc.List(ctx, url.Values{"type": {"Device"}, "options": {"count"}, "limit": {"1"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count == nil || *count != 2 {
			t.Fatalf("expected count 2, got %v", count)
		}
	})

	t.Run("keyValues collapses structured attributes", func(t *testing.T) {
		body, _, err := svc.List(ctx, url.Values{"id": {"e1"}, "options": {"keyValues"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		list, ok := body.([]any)
		if !ok || len(list) != 1 {
			t.Fatalf("unexpected body: %#v", body)
		}
		entity := list[0].(bson.M)["temperature"]
		if entity != 21 {
			t.Fatalf("expected bare value 21, got %#v", entity)
		}
	})

	t.Run("no matches is not found", func(t *testing.T) {
		_, _, err := svc.List(ctx, url.Values{"type": {"Zone"}})
		if !domainerrors.HasCode(err, domainerrors.CodeNotFound) {
			t.Fatalf("expected not_found, got %v", err)
		}
	})
}

func TestGet(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	seed(t, svc, map[string]any{"id": "e1", "type": "Device", "status": "active"})

	t.Run("returns the entity", func(t *testing.T) {
		body, err := svc.Get(ctx, "e1", "Device", url.Values{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body == nil {
			t.Fatalf("expected entity body")
		}
	})

	t.Run("missing entity is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "nope", "Device", url.Values{})
		if !domainerrors.HasCode(err, domainerrors.CodeNotFound) {
			t.Fatalf("expected not_found, got %v", err)
		}
	})

	t.Run("ambiguous identity is a conflict", func(t *testing.T) {
		seed(t, svc, map[string]any{"id": "dup", "type": "Device"})
		seed(t, svc, map[string]any{"id": "dup", "type": "Robotics"})
		_, err := svc.Get(ctx, "dup", "", url.Values{})
		if !domainerrors.HasCode(err, domainerrors.CodeConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts new and existing attributes", func(t *testing.T) {
		svc, _ := newService()
		seed(t, svc, map[string]any{"id": "e1", "type": "Device", "status": "active"})
		err := svc.Append(ctx, "e1", map[string]any{"status": "retired", "zone": "a"}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		body, err := svc.Get(ctx, "e1", "Device", url.Values{"options": {"keyValues"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entity := body.(bson.M)
		if entity["status"] != "retired" || entity["zone"] != "a" {
			t.Fatalf("unexpected entity: %#v", entity)
		}
	})

	t.Run("append option rejects existing attributes", func(t *testing.T) {
		svc, _ := newService()
		seed(t, svc, map[string]any{"id": "e1", "type": "Device", "status": "active"})
		err := svc.Append(ctx, "e1", map[string]any{"status": "retired"}, true)
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("id and type never update through the attribute path", func(t *testing.T) {
		svc, _ := newService()
		seed(t, svc, map[string]any{"id": "e1", "type": "Device"})
		err := svc.Append(ctx, "e1", map[string]any{"id": "hijack", "type": "Zone"}, false)
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request for empty effective body, got %v", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("writes only existing attributes", func(t *testing.T) {
		svc, _ := newService()
		seed(t, svc, map[string]any{"id": "e1", "type": "Device", "status": "active"})
		err := svc.Update(ctx, "e1", map[string]any{"status": "retired", "zone": "a"})
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request for partially unknown attributes, got %v", err)
		}

		// The present attribute was still written.
		body, err := svc.Get(ctx, "e1", "Device", url.Values{"options": {"keyValues"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entity := body.(bson.M)
		if entity["status"] != "retired" {
			t.Fatalf("expected status written, got %#v", entity)
		}
		if _, ok := entity["zone"]; ok {
			t.Fatalf("zone must not be created by update")
		}
	})

	t.Run("missing entity is a bad request", func(t *testing.T) {
		svc, _ := newService()
		err := svc.Update(ctx, "nope", map[string]any{"status": "retired"})
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})
}

func TestReplace(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	seed(t, svc, map[string]any{"id": "e1", "type": "Device", "status": "active", "zone": "a"})

	if err := svc.Replace(ctx, "e1", map[string]any{"temperature": map[string]any{"value": 21}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, err := svc.Get(ctx, "e1", "Device", url.Values{"options": {"keyValues"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entity := body.(bson.M)
	if _, ok := entity["status"]; ok {
		t.Fatalf("replace must drop prior attributes: %#v", entity)
	}
	if entity["temperature"] != 21 {
		t.Fatalf("expected replaced attribute, got %#v", entity)
	}
	if entity["id"] != "e1" || entity["type"] != "Device" {
		t.Fatalf("identity must survive replace: %#v", entity)
	}
}

func TestAttributeOperations(t *testing.T) {
	ctx := context.Background()
	newSeeded := func(t *testing.T) *Service {
		svc, _ := newService()
		seed(t, svc, map[string]any{
			"id": "e1", "type": "Device",
			"temperature": map[string]any{"value": 21, "type": "Number"},
			"status":      "active",
		})
		return svc
	}

	t.Run("get attribute returns it as stored", func(t *testing.T) {
		svc := newSeeded(t)
		attr, err := svc.GetAttribute(ctx, "e1", "Device", "temperature")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := query.AttributeValue(attr); !ok {
			t.Fatalf("expected structured attribute, got %#v", attr)
		}
	})

	t.Run("get value of bare attribute fails", func(t *testing.T) {
		svc := newSeeded(t)
		_, err := svc.GetAttributeValue(ctx, "e1", "Device", "status")
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("get value of structured attribute", func(t *testing.T) {
		svc := newSeeded(t)
		v, err := svc.GetAttributeValue(ctx, "e1", "Device", "temperature")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 21 {
			t.Fatalf("expected 21, got %#v", v)
		}
	})

	t.Run("set attribute requires it to exist", func(t *testing.T) {
		svc := newSeeded(t)
		err := svc.SetAttribute(ctx, "e1", "Device", "missing", 1)
		if !domainerrors.HasCode(err, domainerrors.CodeNotFound) {
			t.Fatalf("expected not_found, got %v", err)
		}
	})

	t.Run("set value requires a structured attribute", func(t *testing.T) {
		svc := newSeeded(t)
		err := svc.SetAttributeValue(ctx, "e1", "Device", "status", "retired")
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("set value rewrites only the value field", func(t *testing.T) {
		svc := newSeeded(t)
		if err := svc.SetAttributeValue(ctx, "e1", "Device", "temperature", 30); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, err := svc.GetAttributeValue(ctx, "e1", "Device", "temperature")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 30 {
			t.Fatalf("expected 30, got %#v", v)
		}
		attr, err := svc.GetAttribute(ctx, "e1", "Device", "temperature")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entity, ok := attr.(map[string]any)
		if !ok {
			t.Fatalf("unexpected attribute shape: %#v", attr)
		}
		if entity["type"] != "Number" {
			t.Fatalf("value write must keep attribute metadata: %#v", entity)
		}
	})

	t.Run("delete attribute removes it", func(t *testing.T) {
		svc := newSeeded(t)
		if err := svc.DeleteAttribute(ctx, "e1", "Device", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := svc.GetAttribute(ctx, "e1", "Device", "status")
		if !domainerrors.HasCode(err, domainerrors.CodeNotFound) {
			t.Fatalf("expected not_found, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	seed(t, svc, map[string]any{"id": "e1", "type": "Device"})

	t.Run("unknown type", func(t *testing.T) {
		err := svc.Delete(ctx, "Spaceship", "e1")
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %v", err)
		}
	})

	t.Run("removes the entity", func(t *testing.T) {
		if err := svc.Delete(ctx, "Device", "e1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := svc.Delete(ctx, "Device", "e1")
		if !domainerrors.HasCode(err, domainerrors.CodeBadRequest) {
			t.Fatalf("expected bad_request for missing entity, got %v", err)
		}
	})
}
