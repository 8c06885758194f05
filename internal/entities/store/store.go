// Package store persists context entities. Implementations are
// interface-driven so the mutation engine stays testable against the
// in-memory fake.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/leukaemiamedtech/hiascdi/internal/query"
)

// Store is the document-store surface the entity service consumes. The
// single-document write operations are atomic; multi-step flows in the
// service are not.
type Store interface {
	// Insert stores a whole entity document.
	Insert(ctx context.Context, doc map[string]any) error
	// Search runs a predicate query with projection, ordering and paging.
	Search(ctx context.Context, q *query.Query) ([]bson.D, error)
	// Count returns the total match count for a predicate, pre-limit.
	Count(ctx context.Context, p *query.Predicate) (int64, error)
	// FindByID returns every document matching id (and type when non-empty)
	// so callers can detect identity ambiguity. A nil projection returns
	// full documents minus the store's internal id.
	FindByID(ctx context.Context, id, entityType string, projection bson.M) ([]bson.D, error)
	// SetAttribute sets one attribute path on the entity, optionally
	// upserting the document. Returns the matched document count.
	SetAttribute(ctx context.Context, id, field string, value any, upsert bool) (int64, error)
	// SetAttributeIfExists sets field only on a document that has guard
	// present, collapsing the existence check and write into one call.
	SetAttributeIfExists(ctx context.Context, id, guard, field string, value any) (int64, error)
	// UnsetAttribute removes one attribute. Returns the matched count.
	UnsetAttribute(ctx context.Context, id, field string) (int64, error)
	// Delete removes the entity via its type's backing collection.
	Delete(ctx context.Context, entityType, id string) error
	// KnownType reports whether a type maps to a backing collection.
	KnownType(entityType string) bool
}
