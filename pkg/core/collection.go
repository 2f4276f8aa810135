package core

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection defines the contract the typed layer needs from a document store.
// Adhering to this interface keeps the mapper independent of the driver
// (MongoDB, in-memory, ...).
type Collection interface {
	// InsertOne stores doc and returns the identifier assigned to it.
	InsertOne(ctx context.Context, doc bson.D) (any, error)

	// FindOne returns the first document matching filter, or ErrNotFound.
	FindOne(ctx context.Context, filter any) (bson.Raw, error)

	// Find returns every document matching filter.
	Find(ctx context.Context, filter any) ([]bson.Raw, error)

	// ReplaceOne replaces the document matching filter. With upsert it inserts
	// doc when nothing matches.
	ReplaceOne(ctx context.Context, filter any, doc bson.D, upsert bool) error

	// DeleteOne removes the first document matching filter and reports how many were removed.
	DeleteOne(ctx context.Context, filter any) (int64, error)
}
