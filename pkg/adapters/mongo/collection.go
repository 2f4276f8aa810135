// Package mongo adapts a MongoDB driver collection to core.Collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aretw0/introspection"

	"github.com/aretw0/odm/pkg/aggregation"
	"github.com/aretw0/odm/pkg/core"
)

// Collection wraps a *mongo.Collection.
type Collection struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// New wraps coll. A nil logger discards output.
func New(coll *mongo.Collection, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collection{coll: coll, logger: logger}
}

// Connect opens a client for uri and returns the named collection along with
// a function releasing the client.
func Connect(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*Collection, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping %s: %w", uri, err)
	}
	return New(client.Database(database).Collection(collection), logger), client.Disconnect, nil
}

// InsertOne implements core.Collection.
func (c *Collection) InsertOne(ctx context.Context, doc bson.D) (any, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("inserted document", "collection", c.coll.Name(), "id", res.InsertedID)
	return res.InsertedID, nil
}

// FindOne implements core.Collection.
func (c *Collection) FindOne(ctx context.Context, filter any) (bson.Raw, error) {
	raw, err := c.coll.FindOne(ctx, orEmpty(filter)).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Find implements core.Collection.
func (c *Collection) Find(ctx context.Context, filter any) ([]bson.Raw, error) {
	cur, err := c.coll.Find(ctx, orEmpty(filter))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)
		out = append(out, raw)
	}
	return out, cur.Err()
}

// ReplaceOne implements core.Collection.
func (c *Collection) ReplaceOne(ctx context.Context, filter any, doc bson.D, upsert bool) error {
	res, err := c.coll.ReplaceOne(ctx, orEmpty(filter), doc, options.Replace().SetUpsert(upsert))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteOne implements core.Collection.
func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, orEmpty(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Cursor opens a driver cursor for filter, for callers that stream results
// (see bsonutil.NormalizeCursor).
func (c *Collection) Cursor(ctx context.Context, filter any) (*mongo.Cursor, error) {
	return c.coll.Find(ctx, orEmpty(filter))
}

// Aggregate runs the pipeline of agg and returns the resulting documents.
func (c *Collection) Aggregate(ctx context.Context, agg aggregation.Aggregation) ([]bson.Raw, error) {
	pipeline := agg.Pipeline()
	c.logger.Debug("running aggregation", "collection", c.coll.Name(), "stages", len(pipeline))

	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		raw := make(bson.Raw, len(cur.Current))
		copy(raw, cur.Current)
		out = append(out, raw)
	}
	return out, cur.Err()
}

// CollectionState exposes internal state for observability.
type CollectionState struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	return CollectionState{Database: c.coll.Database().Name(), Collection: c.coll.Name()}
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	return "collection"
}

var _ core.Collection = (*Collection)(nil)
var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)

func orEmpty(filter any) any {
	if filter == nil {
		return bson.D{}
	}
	return filter
}
