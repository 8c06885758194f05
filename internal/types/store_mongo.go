package types

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	platformmongo "github.com/leukaemiamedtech/hiascdi/internal/platform/mongo"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

const collection = "Types"

// MongoStore persists type descriptors in MongoDB.
type MongoStore struct {
	client *platformmongo.Client
}

func NewMongoStore(client *platformmongo.Client) *MongoStore {
	return &MongoStore{client: client}
}

func (s *MongoStore) types() *mongo.Collection {
	return s.client.Database().Collection(collection)
}

func (s *MongoStore) List(ctx context.Context, offset, limit int64) ([]bson.D, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSkip(offset).
		SetLimit(limit)
	cursor, err := s.types().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.types().CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) Insert(ctx context.Context, doc map[string]any) error {
	_, err := s.types().InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) FindByName(ctx context.Context, name string) (bson.D, error) {
	var doc bson.D
	err := s.types().FindOne(ctx,
		bson.M{"type": name},
		options.FindOne().SetProjection(bson.M{"_id": 0, "type": 0}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MongoStore) Update(ctx context.Context, name string, attrs map[string]any) error {
	for field, value := range attrs {
		_, err := s.types().UpdateOne(ctx,
			bson.M{"type": name},
			bson.M{"$set": bson.M{field: value}},
		)
		if err != nil {
			return err
		}
	}
	return nil
}
