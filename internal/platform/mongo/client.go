package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/leukaemiamedtech/hiascdi/internal/platform/config"
)

// Client wraps the mongo driver client with the broker's collection map and
// health checking. The connection is acquired once at startup and shared by
// all requests.
type Client struct {
	*mongo.Client
	db          *mongo.Database
	collections map[string]string
}

// New connects to MongoDB from the provided configuration and verifies the
// connection with a ping.
func New(ctx context.Context, cfg config.Config) (*Client, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	return &Client{
		Client:      cli,
		db:          cli.Database(cfg.MongoDatabase),
		collections: cfg.Collections,
	}, nil
}

// Database returns the broker database handle.
func (c *Client) Database() *mongo.Database { return c.db }

// CollectionFor resolves an entity type to its backing collection. The bool
// reports whether the type is known to the broker at all.
func (c *Client) CollectionFor(entityType string) (*mongo.Collection, bool) {
	name, ok := c.collections[entityType]
	if !ok {
		return nil, false
	}
	return c.db.Collection(name), true
}

// KnownType reports whether an entity type maps to a backing collection.
func (c *Client) KnownType(entityType string) bool {
	_, ok := c.collections[entityType]
	return ok
}

// EnsureIndexes creates the unique (id, type) index on the entity collection.
// Uniqueness violations predating the index are still detected at read time
// and surfaced as 409s.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.db.Collection("Entities").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create entity index: %w", err)
	}
	return nil
}

// Health checks if the MongoDB connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}
