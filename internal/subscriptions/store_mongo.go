package subscriptions

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	platformmongo "github.com/leukaemiamedtech/hiascdi/internal/platform/mongo"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

const collection = "Subscriptions"

// MongoStore persists subscriptions in MongoDB.
type MongoStore struct {
	client *platformmongo.Client
}

func NewMongoStore(client *platformmongo.Client) *MongoStore {
	return &MongoStore{client: client}
}

func (s *MongoStore) subscriptions() *mongo.Collection {
	return s.client.Database().Collection(collection)
}

func (s *MongoStore) List(ctx context.Context, offset, limit int64) ([]bson.D, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSkip(offset).
		SetLimit(limit)
	cursor, err := s.subscriptions().Find(ctx, bson.M{}, opts)
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
	return s.subscriptions().CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) Insert(ctx context.Context, doc map[string]any) error {
	_, err := s.subscriptions().InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (bson.D, error) {
	var doc bson.D
	err := s.subscriptions().FindOne(ctx,
		bson.M{"id": id},
		options.FindOne().SetProjection(bson.M{"_id": 0}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, fields map[string]any) error {
	for field, value := range fields {
		_, err := s.subscriptions().UpdateOne(ctx,
			bson.M{"id": id},
			bson.M{"$set": bson.M{field: value}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
