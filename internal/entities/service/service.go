// Package service implements the entity read orchestration and the
// mutation engine: create, append-or-update, update-existing-only,
// full-replace and delete over semi-structured attribute documents.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/internal/entities/models"
	"github.com/leukaemiamedtech/hiascdi/internal/entities/store"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/metrics"
	"github.com/leukaemiamedtech/hiascdi/internal/query"
	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

// Service orchestrates entity reads and writes against the injected store.
type Service struct {
	store      store.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
	apiVersion string
}

// New creates the entity service.
func New(st store.Store, logger *slog.Logger, m *metrics.Metrics, apiVersion string) *Service {
	return &Service{store: st, logger: logger, metrics: m, apiVersion: apiVersion}
}

// List translates the filter parameters into a predicate query, runs it and
// shapes the result. The count, when requested, reflects the total match
// count before the limit applies.
func (s *Service) List(ctx context.Context, params url.Values) (any, *int64, error) {
	pred, err := query.Build(params)
	if err != nil {
		return nil, nil, err
	}
	opts := query.ParseOptions(params.Get("options"))
	offset, limit, err := query.ParsePaging(params.Get("offset"), params.Get("limit"))
	if err != nil {
		return nil, nil, err
	}
	q := &query.Query{
		Predicate: pred,
		Selection: query.ParseFields(params.Get("attrs")),
		Shape:     opts.Shape,
		Sort:      query.ParseOrderBy(params.Get("orderBy")),
		Offset:    offset,
		Limit:     limit,
	}

	docs, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "no entities found")
	}
	if len(docs) == 0 {
		return nil, nil, domainerrors.New(domainerrors.CodeNotFound, "no entities found")
	}

	var count *int64
	if opts.Count {
		n, err := s.store.Count(ctx, pred)
		if err != nil {
			return nil, nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "no entities found")
		}
		count = &n
	}
	return query.ReduceEntities(docs, opts.Shape), count, nil
}

// Get retrieves one entity by id and type, shaping it per the options.
func (s *Service) Get(ctx context.Context, id, entityType string, params url.Values) (any, error) {
	opts := query.ParseOptions(params.Get("options"))
	projection := query.ParseFields(params.Get("attrs")).Projection(true, query.ShapeDefault)
	doc, err := s.findOne(ctx, id, entityType, projection)
	if err != nil {
		return nil, err
	}
	return query.ReduceEntity(doc, opts.Shape), nil
}

// Create inserts a whole entity document. An unknown type silently falls
// back to the generic Thing type. Returns the canonical entity location.
func (s *Service) Create(ctx context.Context, body map[string]any) (string, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return "", domainerrors.New(domainerrors.CodeBadRequest, "entity id is required")
	}
	entityType, _ := body["type"].(string)
	if !s.store.KnownType(entityType) {
		entityType = models.TypeFallback
		body["type"] = entityType
	}
	if err := s.store.Insert(ctx, body); err != nil {
		s.logger.WarnContext(ctx, "entity insert failed", "entity_id", id, "error", err.Error())
		return "", domainerrors.Wrap(err, domainerrors.CodeBadRequest, "entity could not be created")
	}
	s.metrics.IncrementEntitiesCreated()
	return fmt.Sprintf("%s/entities/%s?type=%s", s.apiVersion, id, entityType), nil
}

// Append upserts each attribute in the body individually. With the append
// option set, an attribute already present on the target is a per-attribute
// error; attributes before it are still written.
func (s *Service) Append(ctx context.Context, id string, body map[string]any, appendOnly bool) error {
	models.StripImmutable(body)
	if len(body) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "no attributes to update")
	}

	var existing bson.D
	if appendOnly {
		docs, err := s.store.FindByID(ctx, id, "", nil)
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "attribute update failed")
		}
		if len(docs) > 0 {
			existing = docs[0]
		}
	}

	failed := false
	for name, value := range body {
		if appendOnly {
			if _, present := query.Lookup(existing, name); present {
				failed = true
				continue
			}
		}
		if _, err := s.store.SetAttribute(ctx, id, name, value, true); err != nil {
			s.logger.WarnContext(ctx, "attribute write failed", "entity_id", id, "attribute", name, "error", err.Error())
			failed = true
		}
	}
	if failed {
		return domainerrors.New(domainerrors.CodeBadRequest, "one or more attributes could not be appended")
	}
	return nil
}

// Update writes only attributes already present on the entity. Missing
// attributes are per-attribute errors; present ones in the same request are
// still written.
func (s *Service) Update(ctx context.Context, id string, body map[string]any) error {
	models.StripImmutable(body)
	if len(body) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "no attributes to update")
	}

	docs, err := s.store.FindByID(ctx, id, "", nil)
	if err != nil || len(docs) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "entity not found")
	}
	existing := docs[0]

	applied := 0
	failed := false
	for name, value := range body {
		if _, present := query.Lookup(existing, name); !present {
			failed = true
			continue
		}
		matched, err := s.store.SetAttribute(ctx, id, name, value, false)
		if err != nil || matched == 0 {
			failed = true
			continue
		}
		applied++
	}
	if failed || applied == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "one or more attributes could not be updated")
	}
	return nil
}

// Replace unsets every existing non-builtin attribute, then sets the body
// attributes. The two passes are separate store operations.
func (s *Service) Replace(ctx context.Context, id string, body map[string]any) error {
	models.StripImmutable(body)

	docs, err := s.store.FindByID(ctx, id, "", nil)
	if err != nil || len(docs) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "entity not found")
	}

	for _, elem := range docs[0] {
		if models.IsIdentity(elem.Key) || isBuiltin(elem.Key) {
			continue
		}
		if _, err := s.store.UnsetAttribute(ctx, id, elem.Key); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "attribute replace failed")
		}
	}
	for name, value := range body {
		if _, err := s.store.SetAttribute(ctx, id, name, value, true); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "attribute replace failed")
		}
	}
	return nil
}

// GetAttribute returns one named attribute as stored.
func (s *Service) GetAttribute(ctx context.Context, id, entityType, name string) (any, error) {
	doc, err := s.findOne(ctx, id, entityType, nil)
	if err != nil {
		return nil, err
	}
	attr, ok := query.Lookup(doc, name)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "attribute not found")
	}
	return attr, nil
}

// GetAttributeValue returns the bare value of a structured attribute.
func (s *Service) GetAttributeValue(ctx context.Context, id, entityType, name string) (any, error) {
	attr, err := s.GetAttribute(ctx, id, entityType, name)
	if err != nil {
		return nil, err
	}
	value, ok := query.AttributeValue(attr)
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "attribute has no value field")
	}
	return value, nil
}

// SetAttribute replaces one existing attribute.
func (s *Service) SetAttribute(ctx context.Context, id, entityType, name string, value any) error {
	if err := s.requireAttribute(ctx, id, entityType, name); err != nil {
		return err
	}
	matched, err := s.store.SetAttributeIfExists(ctx, id, name, name, value)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "attribute update failed")
	}
	if matched == 0 {
		return domainerrors.New(domainerrors.CodeNotFound, "attribute not found")
	}
	return nil
}

// SetAttributeValue replaces the value sub-field of one existing structured
// attribute.
func (s *Service) SetAttributeValue(ctx context.Context, id, entityType, name string, value any) error {
	doc, err := s.findOne(ctx, id, entityType, nil)
	if err != nil {
		return err
	}
	attr, ok := query.Lookup(doc, name)
	if !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "attribute not found")
	}
	if _, structured := query.AttributeValue(attr); !structured {
		return domainerrors.New(domainerrors.CodeBadRequest, "attribute has no value field")
	}
	matched, err := s.store.SetAttributeIfExists(ctx, id, name, name+".value", value)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "attribute update failed")
	}
	if matched == 0 {
		return domainerrors.New(domainerrors.CodeNotFound, "attribute not found")
	}
	return nil
}

// DeleteAttribute unsets one existing attribute.
func (s *Service) DeleteAttribute(ctx context.Context, id, entityType, name string) error {
	if err := s.requireAttribute(ctx, id, entityType, name); err != nil {
		return err
	}
	if _, err := s.store.UnsetAttribute(ctx, id, name); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "attribute delete failed")
	}
	return nil
}

// Delete removes an entity through its type's backing collection.
func (s *Service) Delete(ctx context.Context, entityType, id string) error {
	if err := s.store.Delete(ctx, entityType, id); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrUnknownType):
			return domainerrors.New(domainerrors.CodeBadRequest, "unknown entity type")
		case errors.Is(err, sentinel.ErrNotFound):
			return domainerrors.New(domainerrors.CodeBadRequest, "entity could not be deleted")
		default:
			return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "entity could not be deleted")
		}
	}
	return nil
}

// findOne resolves an id (+optional type) to exactly one document: zero
// matches is not found, more than one is an identity integrity conflict.
func (s *Service) findOne(ctx context.Context, id, entityType string, projection bson.M) (bson.D, error) {
	docs, err := s.store.FindByID(ctx, id, entityType, projection)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeNotFound, "entity not found")
	}
	switch {
	case len(docs) == 0:
		return nil, domainerrors.New(domainerrors.CodeNotFound, "entity not found")
	case len(docs) > 1:
		return nil, domainerrors.New(domainerrors.CodeConflict, "entity id and type match more than one document")
	}
	return docs[0], nil
}

func (s *Service) requireAttribute(ctx context.Context, id, entityType, name string) error {
	doc, err := s.findOne(ctx, id, entityType, nil)
	if err != nil {
		return err
	}
	if _, ok := query.Lookup(doc, name); !ok {
		return domainerrors.New(domainerrors.CodeNotFound, "attribute not found")
	}
	return nil
}

func isBuiltin(field string) bool {
	for _, builtin := range query.BuiltinAttributes {
		if field == builtin {
			return true
		}
	}
	return false
}
