package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/internal/query"
	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

// Service implements the subscription operations.
type Service struct {
	store      Store
	logger     *slog.Logger
	apiVersion string
}

// NewService creates a new subscription Service.
func NewService(store Store, logger *slog.Logger, apiVersion string) *Service {
	return &Service{store: store, logger: logger, apiVersion: apiVersion}
}

// List returns the registered subscriptions. options=count adds the
// pre-window total.
func (s *Service) List(ctx context.Context, params url.Values) ([]bson.D, *int64, error) {
	opts := query.ParseOptions(params.Get("options"))
	offset, limit, err := query.ParsePaging(params.Get("offset"), params.Get("limit"))
	if err != nil {
		return nil, nil, err
	}

	docs, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "subscription listing failed")
	}

	var count *int64
	if opts.Count {
		total, err := s.store.Count(ctx)
		if err != nil {
			return nil, nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "subscription count failed")
		}
		count = &total
	}
	return docs, count, nil
}

// Create registers a new subscription. The broker assigns its id.
func (s *Service) Create(ctx context.Context, doc map[string]any) (string, error) {
	if len(doc) == 0 {
		return "", domainerrors.New(domainerrors.CodeBadRequest, "empty request body")
	}
	id := uuid.NewString()
	doc["id"] = id
	if err := s.store.Insert(ctx, doc); err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeBadRequest, "subscription creation failed")
	}
	return fmt.Sprintf("%s/subscriptions/%s", s.apiVersion, id), nil
}

// Get returns a single subscription by id.
func (s *Service) Get(ctx context.Context, id string) (bson.D, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err == sentinel.ErrNotFound {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "subscription not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "subscription lookup failed")
	}
	return doc, nil
}

// Update patches the subscription field by field. The id itself is not
// updatable.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return domainerrors.New(domainerrors.CodeBadRequest, "empty request body")
	}
	delete(fields, "id")
	if err := s.store.Update(ctx, id, fields); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeBadRequest, "subscription update failed")
	}
	return nil
}
