// Package types manages entity type descriptors: documents keyed by type
// name describing the attribute schema of entities of that type. Their
// lifecycle is independent from the entities themselves.
package types

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Store persists type descriptors.
type Store interface {
	List(ctx context.Context, offset, limit int64) ([]bson.D, error)
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, doc map[string]any) error
	// FindByName returns the descriptor minus its store id and type key.
	FindByName(ctx context.Context, name string) (bson.D, error)
	// Update sets each attribute on the descriptor individually.
	Update(ctx context.Context, name string, attrs map[string]any) error
}
