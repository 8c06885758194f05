// Package subscriptions manages context subscriptions: registrations that
// describe which entity changes a subscriber wants notifications for.
package subscriptions

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Store persists subscription documents.
type Store interface {
	List(ctx context.Context, offset, limit int64) ([]bson.D, error)
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, doc map[string]any) error
	FindByID(ctx context.Context, id string) (bson.D, error)
	// Update sets each field on the subscription individually, creating the
	// document when it does not exist.
	Update(ctx context.Context, id string, fields map[string]any) error
}
