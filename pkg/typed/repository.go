// Package typed stores mapped values in a core.Collection.
package typed

import (
	"context"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/introspection"

	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/mapper"
)

// Repository converts T to and from documents of one collection.
// Documents are keyed by their _id field.
type Repository[T any] struct {
	coll   core.Collection
	mapper *mapper.Mapper
}

// NewRepository creates a repository of T over coll.
func NewRepository[T any](coll core.Collection, m *mapper.Mapper) *Repository[T] {
	return &Repository[T]{coll: coll, mapper: m}
}

// Save stores v and returns its identifier. Values with an _id replace the
// stored document (inserting it when missing); values without one are
// inserted and get an identifier from the collection.
func (r *Repository[T]) Save(ctx context.Context, v T) (any, error) {
	doc, err := r.mapper.ToDocument(v)
	if err != nil {
		return nil, fmt.Errorf("failed to map %T: %w", v, err)
	}

	id, ok := core.Lookup(doc, "_id")
	if !ok || isZero(id) {
		if ok {
			doc = without(doc, "_id")
		}
		return r.coll.InsertOne(ctx, doc)
	}

	if err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc, true); err != nil {
		return nil, err
	}
	return id, nil
}

// Get loads the document with the given identifier.
func (r *Repository[T]) Get(ctx context.Context, id any) (T, error) {
	var zero T
	raw, err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return zero, err
	}
	return mapper.FromDocument[T](r.mapper, raw)
}

// Find loads every document matching filter.
func (r *Repository[T]) Find(ctx context.Context, filter any) ([]T, error) {
	raws, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := mapper.FromDocument[T](r.mapper, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %v: %w", raw.Lookup("_id"), err)
		}
		result = append(result, v)
	}
	return result, nil
}

// List loads every document of the collection.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	return r.Find(ctx, bson.D{})
}

// Delete removes the document with the given identifier.
func (r *Repository[T]) Delete(ctx context.Context, id any) error {
	n, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %v", core.ErrNotFound, id)
	}
	return nil
}

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Type       string `json:"type"`
	Collection any    `json:"collection,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository[T]) State() any {
	state := RepositoryState{Type: reflect.TypeFor[T]().String()}
	if in, ok := r.coll.(introspection.Introspectable); ok {
		state.Collection = in.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (r *Repository[T]) ComponentType() string {
	return "repository"
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

func without(doc bson.D, key string) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}
