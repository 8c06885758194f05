package types

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/internal/query"
	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

// Service implements the type descriptor operations.
type Service struct {
	store      Store
	logger     *slog.Logger
	apiVersion string
}

// NewService creates a new type Service.
func NewService(store Store, logger *slog.Logger, apiVersion string) *Service {
	return &Service{store: store, logger: logger, apiVersion: apiVersion}
}

// List returns the registered type descriptors. With options=values only the
// type names are returned; options=count adds the pre-window total.
func (s *Service) List(ctx context.Context, params url.Values) (any, *int64, error) {
	opts := query.ParseOptions(params.Get("options"))
	offset, limit, err := query.ParsePaging(params.Get("offset"), params.Get("limit"))
	if err != nil {
		return nil, nil, err
	}

	docs, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "type listing failed")
	}

	var count *int64
	if opts.Count {
		total, err := s.store.Count(ctx)
		if err != nil {
			return nil, nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "type count failed")
		}
		count = &total
	}

	if opts.Shape == query.ShapeValues {
		names := make([]any, 0, len(docs))
		for _, doc := range docs {
			if name, ok := query.Lookup(doc, "type"); ok {
				names = append(names, name)
			}
		}
		return names, count, nil
	}
	return docs, count, nil
}

// Create registers a new type descriptor. The document must carry its type
// name under the type key.
func (s *Service) Create(ctx context.Context, doc map[string]any) (string, error) {
	name, ok := doc["type"].(string)
	if !ok || name == "" {
		return "", domainerrors.New(domainerrors.CodeBadRequest, "type field is required")
	}
	if err := s.store.Insert(ctx, doc); err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeBadRequest, "type creation failed")
	}
	return fmt.Sprintf("%s/types/%s", s.apiVersion, name), nil
}

// Get returns a single type descriptor by name.
func (s *Service) Get(ctx context.Context, name string) (bson.D, error) {
	doc, err := s.store.FindByName(ctx, name)
	if err == sentinel.ErrNotFound {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "type not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "type lookup failed")
	}
	return doc, nil
}

// Update patches the named descriptor attribute by attribute.
func (s *Service) Update(ctx context.Context, name string, attrs map[string]any) error {
	if len(attrs) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "empty request body")
	}
	if _, err := s.store.FindByName(ctx, name); err != nil {
		if err == sentinel.ErrNotFound {
			return domainerrors.New(domainerrors.CodeNotFound, "type not found")
		}
		return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "type lookup failed")
	}
	if err := s.store.Update(ctx, name, attrs); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "type update failed")
	}
	return nil
}
