// Package bsonutil holds helpers around driver-native BSON values: turning
// them into plain Go values, building dates and identifiers, and projecting
// documents by key path.
package bsonutil

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RawDocument decodes a raw BSON document into its ordered form.
// Nested documents come back as bson.D and arrays as bson.A.
func RawDocument(raw bson.Raw) (bson.D, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid bson document: %w", err)
	}
	return doc, nil
}

// Normalize turns driver-native values into plain Go values, recursively:
// documents become map[string]any, arrays []any and datetimes time.Time.
// Other values are returned unchanged.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case bson.Raw:
		doc, err := RawDocument(x)
		if err != nil {
			return nil, err
		}
		return Normalize(doc)
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			n, err := Normalize(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			out[e.Key] = n
		}
		return out, nil
	case bson.M:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	case bson.A:
		return normalizeSlice(x)
	case []any:
		return normalizeSlice(x)
	case primitive.DateTime:
		return x.Time().UTC(), nil
	}
	return v, nil
}

// NormalizeDocument is Normalize for a raw document.
func NormalizeDocument(raw bson.Raw) (map[string]any, error) {
	n, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return n.(map[string]any), nil
}

// Cursor is the part of a driver cursor NormalizeCursor needs.
// *mongo.Cursor satisfies it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
}

// NormalizeCursor drains c and normalizes every document it yields.
func NormalizeCursor(ctx context.Context, c Cursor) ([]any, error) {
	var out []any
	for c.Next(ctx) {
		var raw bson.Raw
		if err := c.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode cursor element: %w", err)
		}
		n, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func normalizeSlice(s []any) ([]any, error) {
	out := make([]any, len(s))
	for i, v := range s {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}
