// Package core holds the document model shared by the mapper, its registries
// and the storage adapters.
package core

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Document is the ordered key/value structure produced by the mapper.
// It is the driver's own bson.D so it can be handed to a collection untouched.
type Document = bson.D

// Record is the unordered form of a document.
type Record = bson.M

// Lookup reads key from a generic record. It accepts the ordered driver form
// (bson.D), the unordered one (bson.M) and plain map[string]any.
func Lookup(rec any, key string) (any, bool) {
	switch r := rec.(type) {
	case bson.D:
		for _, e := range r {
			if e.Key == key {
				return e.Value, true
			}
		}
	case bson.M:
		v, ok := r[key]
		return v, ok
	case map[string]any:
		v, ok := r[key]
		return v, ok
	}
	return nil, false
}

// IsRecord reports whether v is one of the generic record forms understood by Lookup.
func IsRecord(v any) bool {
	switch v.(type) {
	case bson.D, bson.M, map[string]any:
		return true
	}
	return false
}

// Ordered converts any generic record into a bson.D.
// Ordered input keeps its order; map input is emitted in map iteration order.
func Ordered(rec any) bson.D {
	switch r := rec.(type) {
	case bson.D:
		return r
	case bson.M:
		d := make(bson.D, 0, len(r))
		for k, v := range r {
			d = append(d, bson.E{Key: k, Value: v})
		}
		return d
	case map[string]any:
		d := make(bson.D, 0, len(r))
		for k, v := range r {
			d = append(d, bson.E{Key: k, Value: v})
		}
		return d
	}
	return nil
}

// Set assigns key in d. An existing key keeps its position and takes the new
// value, otherwise the pair is appended.
func Set(d bson.D, key string, value any) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}
