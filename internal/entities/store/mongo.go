package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leukaemiamedtech/hiascdi/internal/entities/models"
	platformmongo "github.com/leukaemiamedtech/hiascdi/internal/platform/mongo"
	"github.com/leukaemiamedtech/hiascdi/internal/query"
	"github.com/leukaemiamedtech/hiascdi/pkg/sentinel"
)

// Mongo persists entities in MongoDB.
type Mongo struct {
	client *platformmongo.Client
}

// NewMongo builds the MongoDB-backed entity store.
func NewMongo(client *platformmongo.Client) *Mongo {
	return &Mongo{client: client}
}

func (s *Mongo) entities() *mongo.Collection {
	return s.client.Database().Collection(models.EntityCollection)
}

func (s *Mongo) Insert(ctx context.Context, doc map[string]any) error {
	if _, err := s.entities().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
		}
		return err
	}
	return nil
}

func (s *Mongo) Search(ctx context.Context, q *query.Query) ([]bson.D, error) {
	opts := options.Find().
		SetProjection(q.Selection.Projection(true, q.Shape)).
		SetSkip(q.Offset).
		SetLimit(q.Limit)
	if len(q.Sort) > 0 {
		sort := bson.D{}
		for _, key := range q.Sort {
			order := 1
			if key.Desc {
				order = -1
			}
			sort = append(sort, bson.E{Key: key.Field, Value: order})
		}
		opts.SetSort(sort)
	}
	cursor, err := s.entities().Find(ctx, q.Predicate.Filter(), opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Mongo) Count(ctx context.Context, p *query.Predicate) (int64, error) {
	return s.entities().CountDocuments(ctx, p.Filter())
}

func (s *Mongo) FindByID(ctx context.Context, id, entityType string, projection bson.M) ([]bson.D, error) {
	filter := bson.M{"id": id}
	if entityType != "" {
		filter["type"] = entityType
	}
	if projection == nil {
		projection = bson.M{"_id": 0}
	}
	cursor, err := s.entities().Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, err
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Mongo) SetAttribute(ctx context.Context, id, field string, value any, upsert bool) (int64, error) {
	res, err := s.entities().UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(upsert),
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Mongo) SetAttributeIfExists(ctx context.Context, id, guard, field string, value any) (int64, error) {
	res, err := s.entities().UpdateOne(ctx,
		bson.M{"id": id, guard: bson.M{"$exists": true}},
		bson.M{"$set": bson.M{field: value}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Mongo) UnsetAttribute(ctx context.Context, id, field string) (int64, error) {
	res, err := s.entities().UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$unset": bson.M{field: ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Mongo) Delete(ctx context.Context, entityType, id string) error {
	coll, ok := s.client.CollectionFor(entityType)
	if !ok {
		return sentinel.ErrUnknownType
	}
	res, err := coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Mongo) KnownType(entityType string) bool {
	return s.client.KnownType(entityType)
}
