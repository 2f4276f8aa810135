// Package memory provides an in-process core.Collection. Documents are kept
// as raw BSON, so what is read back went through the same encoding a real
// store applies.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/introspection"

	"github.com/aretw0/odm/pkg/bsonutil"
	"github.com/aretw0/odm/pkg/core"
)

// ErrDuplicateKey is returned when a document reuses an existing _id.
var ErrDuplicateKey = errors.New("duplicate _id")

// Collection is a goroutine-safe in-memory document collection.
// Filters are equality matches on (possibly dotted) keys.
type Collection struct {
	name string
	mu   sync.RWMutex
	docs []bson.Raw
}

// NewCollection creates an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{name: name}
}

// InsertOne stores doc. A missing _id is filled with a new ObjectID.
func (c *Collection) InsertOne(ctx context.Context, doc bson.D) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.insertLocked(doc)
}

// insertLocked must be called with the write lock held.
func (c *Collection) insertLocked(doc bson.D) (any, error) {
	id, ok := core.Lookup(doc, "_id")
	if !ok || id == nil {
		id = primitive.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}

	if c.indexOf(bson.D{{Key: "_id", Value: id}}) >= 0 {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateKey, id)
	}
	c.docs = append(c.docs, raw)
	return id, nil
}

// FindOne returns the first matching document.
func (c *Collection) FindOne(ctx context.Context, filter any) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(filter)
	if i < 0 {
		return nil, core.ErrNotFound
	}
	return clone(c.docs[i]), nil
}

// Find returns every matching document in insertion order.
func (c *Collection) Find(ctx context.Context, filter any) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []bson.Raw
	for _, raw := range c.docs {
		if bsonutil.Match(raw, filter) {
			out = append(out, clone(raw))
		}
	}
	return out, nil
}

// ReplaceOne replaces the first matching document, or inserts doc with upsert.
func (c *Collection) ReplaceOne(ctx context.Context, filter any, doc bson.D, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(filter)
	if i >= 0 {
		prev, _ := c.docs[i].LookupErr("_id")
		if _, ok := core.Lookup(doc, "_id"); !ok && prev.Type != 0 {
			doc = append(bson.D{{Key: "_id", Value: prev}}, doc...)
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		c.docs[i] = raw
		return nil
	}

	if !upsert {
		return core.ErrNotFound
	}
	_, err := c.insertLocked(doc)
	return err
}

// DeleteOne removes the first matching document.
func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(filter)
	if i < 0 {
		return 0, nil
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return 1, nil
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// CollectionState exposes internal state for observability.
type CollectionState struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	return CollectionState{Name: c.name, Documents: c.Len()}
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	return "collection"
}

var _ core.Collection = (*Collection)(nil)
var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)

// indexOf must be called with the lock held.
func (c *Collection) indexOf(filter any) int {
	for i, raw := range c.docs {
		if bsonutil.Match(raw, filter) {
			return i
		}
	}
	return -1
}

func clone(raw bson.Raw) bson.Raw {
	out := make(bson.Raw, len(raw))
	copy(out, raw)
	return out
}
