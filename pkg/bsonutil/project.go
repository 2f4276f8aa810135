package bsonutil

import (
	"fmt"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"go.mongodb.org/mongo-driver/bson"
)

// Project keeps the parts of doc whose key path matches one of patterns.
// Paths join nested keys and array indexes with "/" ("friends/0/name") and
// patterns follow doublestar syntax ("friends/**", "*_at"). A matching
// document or array is kept whole; otherwise its children are filtered.
// With no pattern the document is returned unchanged.
func Project(doc bson.D, patterns ...string) (bson.D, error) {
	if len(patterns) == 0 {
		return doc, nil
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	out, _ := projectDoc(doc, "", patterns)
	return out, nil
}

func projectDoc(doc bson.D, prefix string, patterns []string) (bson.D, bool) {
	out := bson.D{}
	for _, e := range doc {
		if v, ok := projectValue(e.Value, join(prefix, e.Key), patterns); ok {
			out = append(out, bson.E{Key: e.Key, Value: v})
		}
	}
	return out, len(out) > 0
}

func projectValue(v any, path string, patterns []string) (any, bool) {
	if matches(path, patterns) {
		return v, true
	}

	switch x := v.(type) {
	case bson.D:
		return projectDoc(x, path, patterns)
	case bson.A:
		out := bson.A{}
		for i, item := range x {
			if p, ok := projectValue(item, join(path, strconv.Itoa(i)), patterns); ok {
				out = append(out, p)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

func matches(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
